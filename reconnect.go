package sense

import (
	"time"

	"github.com/cenkalti/backoff"
)

// maxReconnectDelay caps the exponential backoff between connect
// attempts, grounded on the teacher's websocket_manager.go
// autoReconnect loop, which caps its own backoff at 30s.
const maxReconnectDelay = 30 * time.Second

// TransportOpener opens a fresh Transport for address, wiring
// onDisconnect into whichever concrete Transport it constructs (e.g.
// OpenSerial or DialWebSocket). ConnectWithRetry calls it once per
// attempt, since a failed dial generally leaves nothing reusable.
type TransportOpener func(address string, onDisconnect func()) (Transport, error)

// ConnectWithRetry calls open repeatedly with an exponential backoff
// (capped at maxReconnectDelay) until it succeeds or ctx-equivalent
// maxElapsed is exceeded, then wires the resulting Transport into s.
// This mirrors the teacher's auto-reconnect behavior for a link that
// may be flaky at dial time (Bluetooth pairing contention, a bridge
// rig still booting) without baking retry policy into Connect itself.
func ConnectWithRetry(s *Session, open TransportOpener, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = maxReconnectDelay
	b.MaxElapsedTime = maxElapsed

	var transport Transport
	operation := func() error {
		t, err := open(s.Address(), s.OnDisconnect)
		if err != nil {
			s.logf("scientisst[%s]: connect attempt failed: %v", s.ID(), err)
			return err
		}
		transport = t
		return nil
	}

	if err := backoff.Retry(operation, b); err != nil {
		return wrapErr(DeviceNotFound, "exhausted reconnect attempts", err)
	}

	return s.Connect(transport)
}
