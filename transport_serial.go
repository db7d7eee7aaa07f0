package sense

import (
	"fmt"
	"io"
	"log"
	"time"

	"go.bug.st/serial"
)

// writeFlushDeadline bounds every Transport.Write call across
// implementations in this package.
const writeFlushDeadline = 3 * time.Second

// SerialTransport is the default Transport: it opens a serial device
// node and treats it as the duplex byte pipe to the ScientISST Sense
// device. On Linux this is typically the RFCOMM node a Bluetooth bond
// creates (e.g. /dev/rfcomm0); on other platforms it is whatever
// go.bug.st/serial enumerates (COM ports, etc). The RFCOMM bind itself
// is out of this core's scope — by the time SerialTransport opens the
// path, the node already exists.
type SerialTransport struct {
	port   serial.Port
	rx     rxQueue
	logger *log.Logger

	onDisconnect func()
	stopIngest   chan struct{}
}

// OpenSerial opens devicePath (e.g. "/dev/rfcomm0" or "COM5") and
// starts the ingest loop that feeds the transport's receive buffer.
// onDisconnect, if non-nil, is invoked once the ingest loop observes
// the link close.
func OpenSerial(devicePath string, onDisconnect func()) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, wrapErr(DeviceNotFound, fmt.Sprintf("opening serial device %s", devicePath), err)
	}

	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, wrapErr(DeviceNotFound, "setting serial read timeout", err)
	}

	t := &SerialTransport{
		port:         port,
		onDisconnect: onDisconnect,
		stopIngest:   make(chan struct{}),
	}
	go t.ingestLoop()
	return t, nil
}

// ListSerialPorts returns the names of serial devices the host
// currently sees, for callers building their own address-to-device
// mapping ahead of OpenSerial.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}

// ingestLoop reads whatever bytes are available and appends them to
// the receive queue, running on its own goroutine for the lifetime of
// the transport — the Session itself stays single-threaded and only
// ever drains the queue through AwaitBytes/Consume.
func (t *SerialTransport) ingestLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-t.stopIngest:
			return
		default:
		}

		n, err := t.port.Read(buf)
		if n > 0 {
			t.rx.push(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				t.rx.markDone()
				if t.onDisconnect != nil {
					t.onDisconnect()
				}
				return
			}
			// Read-timeout style errors from go.bug.st/serial are not
			// distinguishable from a real disconnect on every
			// platform, so we treat a read returning 0 bytes with a
			// non-EOF error as a normal timeout slice and keep polling.
		}
	}
}

func (t *SerialTransport) Write(data []byte) error {
	deadline := time.Now().Add(writeFlushDeadline)
	n, err := t.port.Write(data)
	if err != nil || n != len(data) {
		return wrapErr(ContactingDeviceError, "writing to serial transport", err)
	}
	if time.Now().After(deadline) {
		return newErr(ContactingDeviceError, "serial write did not flush within deadline")
	}
	return nil
}

func (t *SerialTransport) RxPending() int {
	return t.rx.pending()
}

func (t *SerialTransport) AwaitBytes(n int, deadline time.Time) error {
	return awaitBytesOn(&t.rx, n, deadline)
}

func (t *SerialTransport) Consume(n int) []byte {
	return t.rx.consume(n)
}

func (t *SerialTransport) Close() error {
	select {
	case <-t.stopIngest:
		// already closed
	default:
		close(t.stopIngest)
	}
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}
