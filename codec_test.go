package sense

import (
	"reflect"
	"testing"
)

func TestPacketSize(t *testing.T) {
	cases := []struct {
		name     string
		channels []Channel
		want     int
	}{
		{"single internal", []Channel{AI1}, 3},
		{"two internal", []Channel{AI1, AI3}, 5},
		{"three internal (odd)", []Channel{AI1, AI3, AI5}, 6},
		{"one external", []Channel{AX1}, 5},
		{"two external", []Channel{AX1, AX2}, 8},
		{"mixed", []Channel{AI1, AI3, AX1}, 8},
		{"all eight", []Channel{AI1, AI2, AI3, AI4, AI5, AI6, AX1, AX2}, 3*2 + 6*12/8 + 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := PacketSize(c.channels); got != c.want {
				t.Errorf("PacketSize(%v) = %d, want %d", c.channels, got, c.want)
			}
		})
	}
}

func TestCheckCRC4ValidPacket(t *testing.T) {
	// The worked single-frame-decode scenario: active channels [AI1],
	// on-wire bytes 0x2A 0x80 0x53.
	packet := []byte{0x2A, 0x80, 0x53}
	if !checkCRC4(packet) {
		t.Fatalf("checkCRC4(%v) = false, want true", packet)
	}
}

func TestCheckCRC4CorruptedNibbleFails(t *testing.T) {
	packet := []byte{0x2A, 0x80, 0x53}
	for i := range packet {
		corrupted := append([]byte(nil), packet...)
		corrupted[i] ^= 0x01
		if checkCRC4(corrupted) {
			t.Errorf("checkCRC4(%v) = true after flipping a bit in byte %d, want false", corrupted, i)
		}
	}
}

func TestCheckCRC4TooShort(t *testing.T) {
	if checkCRC4([]byte{0x53}) {
		t.Fatalf("checkCRC4 on a 1-byte packet = true, want false")
	}
}

func TestDecodePacketSingleFrame(t *testing.T) {
	packet := []byte{0x2A, 0x80, 0x53}
	f := decodePacket(packet, []Channel{AI1})

	if f.Seq != 5 {
		t.Errorf("Seq = %d, want 5", f.Seq)
	}
	wantDigital := [4]bool{true, false, false, false}
	if f.Digital != wantDigital {
		t.Errorf("Digital = %v, want %v", f.Digital, wantDigital)
	}
	if f.Analog[AI1-1] == nil || *f.Analog[AI1-1] != 42 {
		t.Errorf("Analog[AI1-1] = %v, want 42", f.Analog[AI1-1])
	}
	for _, ch := range []Channel{AI2, AI3, AI4, AI5, AI6, AX1, AX2} {
		if f.Analog[ch-1] != nil {
			t.Errorf("Analog[%d] = %v, want nil (channel not active)", ch-1, *f.Analog[ch-1])
		}
	}
}

func TestEncodeDecodeLERoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xFF, 0x100, 0xFFFF, 0x10000, 1000, 0x3E843}
	for _, v := range values {
		buf := encodeMinLE(v)
		if got := decodeLE(buf); got != v {
			t.Errorf("decodeLE(encodeMinLE(%d)) = %d, want %d", v, got, v)
		}
	}
}

func TestEncodeMinLEZeroIsOneByte(t *testing.T) {
	if got := encodeMinLE(0); !reflect.DeepEqual(got, []byte{0x00}) {
		t.Fatalf("encodeMinLE(0) = %v, want [0x00]", got)
	}
}

func TestResyncConsumesJunkPlusPacket(t *testing.T) {
	packet := []byte{0x2A, 0x80, 0x53}
	junk := []byte{0xDE, 0xAD}

	transport := newFakeTransport()
	transport.feed(junk)
	transport.feed(packet)

	frame, ok, err := readOneFrame(transport, PacketSize([]Channel{AI1}), []Channel{AI1})
	if err != nil {
		t.Fatalf("readOneFrame returned error: %v", err)
	}
	if !ok {
		t.Fatalf("readOneFrame returned ok=false")
	}
	if frame.Seq != 5 || frame.Analog[AI1-1] == nil || *frame.Analog[AI1-1] != 42 {
		t.Fatalf("resynced frame mismatch: %+v", frame)
	}
	if transport.RxPending() != 0 {
		t.Fatalf("RxPending() = %d after resync, want 0 (exactly junk+packetSize consumed)", transport.RxPending())
	}
}
