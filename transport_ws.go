package sense

import (
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport is a Transport backing for lab rigs and CI
// hardware-in-the-loop setups that bridge a real device's RFCOMM byte
// stream over a WebSocket instead of a local serial device node —
// every byte the device would otherwise send/receive over Bluetooth
// is carried as a binary WebSocket message, so the Session, command
// protocol and frame codec above it are unaware of the difference.
type WebSocketTransport struct {
	conn   *websocket.Conn
	rx     rxQueue
	logger *log.Logger

	onDisconnect func()
	stopIngest   chan struct{}
}

// DialWebSocket connects to a bridge endpoint (e.g.
// "ws://bench-rig.local:8073/scientisst") and starts the ingest loop.
func DialWebSocket(url string, onDisconnect func()) (*WebSocketTransport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, wrapErr(DeviceNotFound, fmt.Sprintf("dialing websocket bridge %s", url), err)
	}

	t := &WebSocketTransport{
		conn:         conn,
		onDisconnect: onDisconnect,
		stopIngest:   make(chan struct{}),
	}
	go t.ingestLoop()
	return t, nil
}

func (t *WebSocketTransport) ingestLoop() {
	for {
		select {
		case <-t.stopIngest:
			return
		default:
		}

		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			t.rx.markDone()
			if t.onDisconnect != nil {
				t.onDisconnect()
			}
			return
		}
		if msgType == websocket.BinaryMessage && len(data) > 0 {
			t.rx.push(data)
		}
	}
}

func (t *WebSocketTransport) Write(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeFlushDeadline)); err != nil {
		return wrapErr(ContactingDeviceError, "setting websocket write deadline", err)
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return wrapErr(ContactingDeviceError, "writing to websocket transport", err)
	}
	return nil
}

func (t *WebSocketTransport) RxPending() int {
	return t.rx.pending()
}

func (t *WebSocketTransport) AwaitBytes(n int, deadline time.Time) error {
	return awaitBytesOn(&t.rx, n, deadline)
}

func (t *WebSocketTransport) Consume(n int) []byte {
	return t.rx.consume(n)
}

func (t *WebSocketTransport) Close() error {
	select {
	case <-t.stopIngest:
	default:
		close(t.stopIngest)
	}
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
