package sense

import "regexp"

// macAddressPattern matches the three address forms this core accepts:
// colon-separated, dash-separated, or bare hex. It is the one piece of
// state shared across every Session (a package-level constant, never
// mutated).
var macAddressPattern = regexp.MustCompile(
	`^(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$|^(?:[0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}$|^[0-9A-Fa-f]{12}$`,
)

func validateAddress(address string) error {
	if !macAddressPattern.MatchString(address) {
		return newErr(InvalidAddress, "address is not a valid MAC literal: "+address)
	}
	return nil
}

// encodeMinLE encodes v as a little-endian byte sequence using the
// minimum number of bytes needed to represent it, except that zero
// always encodes as a single 0x00 byte (there is no legal zero-byte
// encoding of a command).
func encodeMinLE(v uint64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var buf []byte
	for v > 0 {
		buf = append(buf, byte(v&0xFF))
		v >>= 8
	}
	return buf
}

// decodeLE is the inverse of encodeMinLE: it interprets buf as a
// little-endian unsigned integer.
func decodeLE(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// channelMask builds the start-command channel bitmask: bit (ch-1)
// set per requested channel. An empty channel list means "all eight".
func channelMask(channels []Channel) byte {
	if len(channels) == 0 {
		return 0xFF
	}
	var mask byte
	for _, ch := range channels {
		mask |= 1 << ch.bitIndex()
	}
	return mask
}

func cmdStop() []byte {
	return encodeMinLE(0)
}

func cmdSetAPI(mode ApiMode) []byte {
	return encodeMinLE(uint64(mode)<<4 | 0x3)
}

func cmdSetRate(sampleRate int) []byte {
	return encodeMinLE(0x43 | uint64(sampleRate)<<8)
}

func cmdVersion() []byte {
	return encodeMinLE(0x07)
}

func cmdStart(mask byte, simulated bool) []byte {
	low := uint64(0x01)
	if simulated {
		low = 0x02
	}
	return encodeMinLE(low | uint64(mask)<<8)
}

func cmdTrigger(o1, o2 bool) []byte {
	v := uint64(0xB3)
	if o1 {
		v |= 0x04
	}
	if o2 {
		v |= 0x08
	}
	return encodeMinLE(v)
}

func cmdDAC(level byte) []byte {
	return encodeMinLE(0xA3 | uint64(level)<<8)
}

func cmdBattery(value byte) []byte {
	return encodeMinLE(uint64(value) << 2)
}

// versionHeader is the fixed ASCII prefix every version banner starts
// with, before the free-form version text.
const versionHeader = "ScientISST"

// versionParser is the streaming parser for the version banner: match
// the literal header byte by byte (restarting the match on a
// mismatch, counting the current byte if it equals the header's first
// character), then collect every subsequent byte except '\n' until a
// terminating 0x00.
type versionParser struct {
	matched int
	inBody  bool
	body    []byte
	done    bool
}

// feed processes one byte, returning true once the banner is complete.
func (p *versionParser) feed(b byte) bool {
	if p.done {
		return true
	}

	if !p.inBody {
		if b == versionHeader[p.matched] {
			p.matched++
			if p.matched == len(versionHeader) {
				p.inBody = true
			}
			return false
		}
		// Mismatch: restart the match, but the current byte may itself
		// be the start of a fresh (correct) prefix.
		if b == versionHeader[0] {
			p.matched = 1
		} else {
			p.matched = 0
		}
		return false
	}

	if b == 0x00 {
		p.done = true
		return true
	}
	if b != 0x0A {
		p.body = append(p.body, b)
	}
	return false
}

func (p *versionParser) result() string {
	return string(p.body)
}
