package sense

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// commandDeadline bounds every version/read receive, per SPEC_FULL.md
// §4.1. Write flushes are bounded by each Transport's own Write.
const commandDeadline = 3 * time.Second

// Session is the state machine that owns a Transport and the current
// acquisition configuration for one ScientISST Sense device. A
// Session is single-shot in the sense that reconnecting from a
// disconnected state is supported, but a started acquisition cannot be
// reconfigured without first calling Stop.
type Session struct {
	id      uuid.UUID
	address string
	logger  *log.Logger

	mu        sync.Mutex
	transport Transport
	connected bool
	acquiring bool

	apiMode        ApiMode
	activeChannels []Channel
	numChs         int
	sampleRate     int
	packetSize     int
}

// New constructs a Session around address, validating it is one of
// the three accepted MAC-address forms. It does not open any
// transport; call Connect for that.
func New(address string) (*Session, error) {
	if err := validateAddress(address); err != nil {
		return nil, err
	}
	return &Session{
		id:      uuid.New(),
		address: address,
		apiMode: BITALINO,
	}, nil
}

// ID returns this Session's correlation id, stable for its lifetime,
// for disambiguating concurrent sessions in one process's logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SetLogger attaches an optional logger the Session will use for
// connect/disconnect/acquisition-start diagnostics (CRC resync is not
// logged). Logging itself is named out
// of this core's scope (SPEC_FULL.md §1), so a nil logger — the
// default — means total silence; no operation's success or failure
// depends on whether a logger is attached.
func (s *Session) SetLogger(logger *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// Address returns the address this Session was constructed with.
func (s *Session) Address() string { return s.address }

// Connected reports whether Connect has succeeded and Disconnect has
// not yet been called.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Acquiring reports whether Start has succeeded and Stop has not yet
// been called.
func (s *Session) Acquiring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquiring
}

// Connect wires an already-open Transport into the Session and marks
// it connected. The Transport's own onDisconnect hook (passed to
// OpenSerial/DialWebSocket when it was opened) is expected to call
// this Session's OnDisconnect method so that a mid-acquisition
// disconnect is reflected here too.
func (s *Session) Connect(transport Transport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return newErr(DeviceNotIdle, "session is already connected")
	}

	s.transport = transport
	s.connected = true
	s.logf("scientisst[%s]: connected to %s", s.id, s.address)
	return nil
}

// OnDisconnect is the hook a Transport's disconnect callback should
// invoke. It flips connected/acquiring so that subsequent calls fail
// cleanly instead of hanging against a dead transport.
func (s *Session) OnDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.logf("scientisst[%s]: transport reported disconnect", s.id)
	}
	s.connected = false
	s.acquiring = false
}

// Disconnect tears down the Session, stopping the acquisition first if
// one is active.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	transport := s.transport
	wasAcquiring := s.acquiring
	s.mu.Unlock()

	if wasAcquiring {
		if err := s.Stop(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if transport != nil {
		if err := transport.Close(); err != nil {
			return wrapErr(ContactingDeviceError, "closing transport", err)
		}
	}
	s.transport = nil
	s.connected = false
	s.logf("scientisst[%s]: disconnected", s.id)
	return nil
}

// send writes data to the current transport. It checks only that a
// transport is attached; each entry point checks its own preconditions
// (connected, idle, acquiring) before calling it.
func (s *Session) send(data []byte) error {
	if s.transport == nil {
		return newErr(DeviceNotFound, "not connected")
	}
	if err := s.transport.Write(data); err != nil {
		return err
	}
	return nil
}

// Version sends the version query and parses the streaming banner
// response: the literal prefix "ScientISST", then free-form text
// (newlines stripped) up to a terminating 0x00 byte.
func (s *Session) Version() (string, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return "", newErr(DeviceNotFound, "not connected")
	}
	transport := s.transport
	s.mu.Unlock()

	if err := transport.Write(cmdVersion()); err != nil {
		return "", err
	}

	var parser versionParser
	deadline := time.Now().Add(commandDeadline)
	for !parser.done {
		if err := transport.AwaitBytes(1, deadline); err != nil {
			return "", err
		}
		b := transport.Consume(1)[0]
		parser.feed(b)
	}

	return parser.result(), nil
}

// Start transitions the Session from idle to acquiring: it switches
// the device's API mode, sets the sample rate, clears any buffered
// bytes, sends the start command with the requested channel mask, and
// computes/stores the packet size for the acquisition's duration.
func (s *Session) Start(sampleRate int, channels []Channel, simulated bool, api ApiMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return newErr(DeviceNotFound, "not connected")
	}
	if s.numChs != 0 {
		return newErr(DeviceNotIdle, "an acquisition is already active")
	}
	if api != SCIENTISST && api != JSON {
		return newErr(InvalidParameter, "api mode must be SCIENTISST or JSON")
	}

	seen := make(map[Channel]bool, len(channels))
	for _, ch := range channels {
		if !ch.Valid() {
			return newErr(InvalidParameter, "channel out of range 1..8")
		}
		if seen[ch] {
			return newErr(InvalidParameter, "duplicate channel in active set")
		}
		seen[ch] = true
	}

	if err := s.transport.Write(cmdSetAPI(api)); err != nil {
		return err
	}
	if err := s.transport.Write(cmdSetRate(sampleRate)); err != nil {
		return err
	}
	s.transport.Consume(s.transport.RxPending())

	mask := channelMask(channels)
	if err := s.transport.Write(cmdStart(mask, simulated)); err != nil {
		return err
	}

	active := make([]Channel, len(channels))
	copy(active, channels)
	if len(active) == 0 {
		active = []Channel{AI1, AI2, AI3, AI4, AI5, AI6, AX1, AX2}
	}

	s.apiMode = api
	s.activeChannels = active
	s.numChs = len(active)
	s.sampleRate = sampleRate
	if api == SCIENTISST {
		s.packetSize = PacketSize(active)
	}
	s.acquiring = true

	s.logf("scientisst[%s]: acquisition started, rate=%dHz channels=%v packetSize=%d",
		s.id, sampleRate, active, s.packetSize)
	return nil
}

// Stop returns the Session to idle, clearing the acquisition
// configuration.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.numChs == 0 {
		return newErr(DeviceNotInAcquisition, "no acquisition is active")
	}

	if err := s.transport.Write(cmdStop()); err != nil {
		return err
	}
	s.transport.Consume(s.transport.RxPending())

	s.numChs = 0
	s.sampleRate = 0
	s.acquiring = false
	s.activeChannels = nil
	s.packetSize = 0
	return nil
}

// Read pulls up to n frames from the acquisition stream. Each frame's
// packet is read in a fixed-size window; a failed CRC check triggers
// byte-level resynchronisation (shift the window left one byte, read
// one fresh byte, retest) until it succeeds or the transport times
// out. A timeout mid-read is not an error: Read returns the frames
// decoded so far, a short read.
func (s *Session) Read(n int) ([]Frame, error) {
	s.mu.Lock()
	if s.numChs == 0 {
		s.mu.Unlock()
		return nil, newErr(DeviceNotInAcquisition, "no acquisition is active")
	}
	if s.apiMode != SCIENTISST {
		s.mu.Unlock()
		return nil, newErr(NotSupported, "only SCIENTISST api mode decoding is implemented")
	}
	transport := s.transport
	packetSize := s.packetSize
	activeChannels := s.activeChannels
	s.mu.Unlock()

	frames := make([]Frame, 0, n)
	for len(frames) < n {
		frame, ok, err := readOneFrame(transport, packetSize, activeChannels)
		if err != nil {
			if kind, _ := KindOf(err); kind == ContactingDeviceError {
				if len(frames) == 0 {
					return frames, wrapErr(UnknownError, "acquisition stream ended before delivering a frame", err)
				}
				return frames, nil
			}
			return frames, err
		}
		if !ok {
			return frames, nil
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// readOneFrame reads one packetSize window from transport, resyncing
// on CRC failure, and decodes it. ok is false exactly when err is
// non-nil: the transport could not fill the initial window, or ran dry
// while resyncing.
func readOneFrame(transport Transport, packetSize int, activeChannels []Channel) (Frame, bool, error) {
	deadline := time.Now().Add(commandDeadline)

	if err := transport.AwaitBytes(packetSize, deadline); err != nil {
		return Frame{}, false, err
	}
	window := transport.Consume(packetSize)

	for !checkCRC4(window) {
		deadline = time.Now().Add(commandDeadline)
		if err := transport.AwaitBytes(1, deadline); err != nil {
			return Frame{}, false, err
		}
		next := transport.Consume(1)
		window = append(window[1:], next...)
	}

	return decodePacket(window, activeChannels), true, nil
}

// Trigger sets the two digital outputs. outputs must have length 2;
// each element is interpreted as truthy (non-zero) or falsy.
func (s *Session) Trigger(outputs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(outputs) != 2 {
		return newErr(InvalidParameter, "trigger requires exactly 2 outputs")
	}
	if !s.connected {
		return newErr(DeviceNotFound, "not connected")
	}

	return s.send(cmdTrigger(outputs[0] != 0, outputs[1] != 0))
}

// DAC sets the DAC PWM level, 0..255.
func (s *Session) DAC(level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < 0 || level > 255 {
		return newErr(InvalidParameter, "dac level must be in 0..255")
	}
	if !s.connected {
		return newErr(DeviceNotFound, "not connected")
	}

	return s.send(cmdDAC(byte(level)))
}

// Battery sets the low-battery LED threshold, 0..63. Idle-only.
func (s *Session) Battery(value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value < 0 || value > 63 {
		return newErr(InvalidParameter, "battery threshold must be in 0..63")
	}
	if !s.connected {
		return newErr(DeviceNotFound, "not connected")
	}
	if s.numChs != 0 {
		return newErr(DeviceNotIdle, "battery threshold can only be set while idle")
	}

	return s.send(cmdBattery(byte(value)))
}

var _ io.Closer = (*Session)(nil)

// Close is an io.Closer-compatible alias for Disconnect.
func (s *Session) Close() error {
	return s.Disconnect()
}
