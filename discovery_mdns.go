package sense

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// mdnsServiceName is the mDNS service type network-bridged ScientISST
// dev kits and bench rigs advertise themselves under (see
// WebSocketTransport), grounded on the teacher's
// instance_discovery.go StartLocalDiscovery, which browses
// "_ubersdr._tcp" the same way.
const mdnsServiceName = "_scientisst._tcp"

// MDNSDiscoverer finds network-bridged ScientISST rigs advertised over
// mDNS, for development and CI setups that don't have real Bluetooth
// hardware attached. Each discovered instance becomes a
// DiscoveredDevice whose Address is a ws:// URL suitable for
// DialWebSocket rather than a MAC address — Find only filters by name,
// so this composes with BluetoothctlDiscoverer without special-casing.
type MDNSDiscoverer struct {
	// Timeout bounds the mDNS browse; zero means 3 seconds.
	Timeout time.Duration
}

func (d MDNSDiscoverer) Discover() ([]DiscoveredDevice, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, wrapErr(DeviceNotFound, "initializing mDNS resolver", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var devices []DiscoveredDevice
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			devices = append(devices, serviceEntryToDevice(entry))
		}
	}()

	if err := resolver.Browse(ctx, mdnsServiceName, "local.", entries); err != nil {
		return nil, wrapErr(DeviceNotFound, "browsing mDNS for scientisst bridges", err)
	}

	<-ctx.Done()
	<-done

	return devices, nil
}

func serviceEntryToDevice(entry *zeroconf.ServiceEntry) DiscoveredDevice {
	host := entry.HostName
	if len(entry.AddrIPv4) > 0 {
		host = entry.AddrIPv4[0].String()
	}

	txt := make(map[string]string)
	for _, kv := range entry.Text {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			txt[kv[:i]] = kv[i+1:]
		}
	}
	name := entry.Instance
	if n, ok := txt["name"]; ok && n != "" {
		name = n
	}

	return DiscoveredDevice{
		Name:    name,
		Address: websocketBridgeURL(host, entry.Port),
	}
}

func websocketBridgeURL(host string, port int) string {
	return fmt.Sprintf("ws://%s:%d/scientisst", host, port)
}
