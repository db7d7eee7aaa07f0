package sense

import "time"

// fakeTransport is an in-memory Transport double for exercising
// Session/codec behavior without a real serial device, the same role
// a net.Pipe-backed fake would play in an integration-style test.
type fakeTransport struct {
	rx       rxQueue
	written  [][]byte
	closed   bool
	writeErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

// feed injects bytes as if they had arrived from the device.
func (t *fakeTransport) feed(b []byte) {
	t.rx.push(b)
}

// done marks the fake's queue as having hit end-of-stream, the same
// signal a real Transport gives when the link drops.
func (t *fakeTransport) done() {
	t.rx.markDone()
}

func (t *fakeTransport) Write(data []byte) error {
	if t.writeErr != nil {
		return t.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.written = append(t.written, cp)
	return nil
}

func (t *fakeTransport) RxPending() int {
	return t.rx.pending()
}

func (t *fakeTransport) AwaitBytes(n int, deadline time.Time) error {
	return awaitBytesOn(&t.rx, n, deadline)
}

func (t *fakeTransport) Consume(n int) []byte {
	return t.rx.consume(n)
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

var _ Transport = (*fakeTransport)(nil)
