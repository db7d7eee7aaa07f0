package sense

import (
	"bufio"
	"os/exec"
	"strings"
)

// DiscoveredDevice is one bonded/paired radio a Discoverer found.
type DiscoveredDevice struct {
	Name    string
	Address string
}

// Discoverer enumerates bonded/paired devices. It is the external
// collaborator named in SPEC_FULL.md §6 — the core never talks to a
// Bluetooth stack directly, it only ever asks a Discoverer for a list.
type Discoverer interface {
	Discover() ([]DiscoveredDevice, error)
}

// Find runs every discoverer and returns the addresses of bonded
// devices whose name contains "scientisst" (case-insensitive),
// de-duplicated by address. At least one Discoverer must be supplied;
// BluetoothctlDiscoverer{} is the default choice on Linux.
func Find(discoverers ...Discoverer) ([]string, error) {
	seen := make(map[string]bool)
	var addrs []string

	for _, d := range discoverers {
		devices, err := d.Discover()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if !strings.Contains(strings.ToLower(dev.Name), "scientisst") {
				continue
			}
			if seen[dev.Address] {
				continue
			}
			seen[dev.Address] = true
			addrs = append(addrs, dev.Address)
		}
	}

	return addrs, nil
}

// BluetoothctlDiscoverer enumerates bonded devices by shelling out to
// bluetoothctl rather than linking a Bluetooth stack in-process.
type BluetoothctlDiscoverer struct{}

func (BluetoothctlDiscoverer) Discover() ([]DiscoveredDevice, error) {
	out, err := exec.Command("bluetoothctl", "devices", "Paired").Output()
	if err != nil {
		return nil, wrapErr(DeviceNotFound, "listing paired bluetooth devices", err)
	}
	return parseBluetoothctlDevices(out)
}

// parseBluetoothctlDevices parses lines of the form:
//
//	Device AA:BB:CC:DD:EE:FF ScientISST Sense
func parseBluetoothctlDevices(out []byte) ([]DiscoveredDevice, error) {
	var devices []DiscoveredDevice

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[0] != "Device" {
			continue
		}
		devices = append(devices, DiscoveredDevice{
			Address: fields[1],
			Name:    strings.Join(fields[2:], " "),
		})
	}

	return devices, nil
}
