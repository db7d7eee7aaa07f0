package sense

import (
	"reflect"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"AA:BB:CC:DD:EE:FF",
		"aa-bb-cc-dd-ee-ff",
		"AABBCCDDEEFF",
	}
	for _, addr := range valid {
		if err := validateAddress(addr); err != nil {
			t.Errorf("validateAddress(%q) = %v, want nil", addr, err)
		}
	}

	invalid := []string{"", "not-a-mac", "AA:BB:CC:DD:EE", "AA:BB:CC:DD:EE:GG"}
	for _, addr := range invalid {
		err := validateAddress(addr)
		if err == nil {
			t.Errorf("validateAddress(%q) = nil, want error", addr)
			continue
		}
		if kind, _ := KindOf(err); kind != InvalidAddress {
			t.Errorf("validateAddress(%q) kind = %v, want InvalidAddress", addr, kind)
		}
	}
}

func TestChannelMask(t *testing.T) {
	cases := []struct {
		channels []Channel
		want     byte
	}{
		{nil, 0xFF},
		{[]Channel{AI1}, 0x01},
		{[]Channel{AI1, AI3}, 0x05},
		{[]Channel{AX2}, 0x80},
	}
	for _, c := range cases {
		if got := channelMask(c.channels); got != c.want {
			t.Errorf("channelMask(%v) = %#x, want %#x", c.channels, got, c.want)
		}
	}
}

func TestCmdSetAPI(t *testing.T) {
	// Scenario 3: start(1000, [AI1, AI3]) emits API-change byte 0x23
	// for SCIENTISST mode.
	if got, want := cmdSetAPI(SCIENTISST), []byte{0x23}; !reflect.DeepEqual(got, want) {
		t.Errorf("cmdSetAPI(SCIENTISST) = %v, want %v", got, want)
	}
}

func TestCmdSetRate(t *testing.T) {
	// Scenario 3: rate-set pair 0x43, 0x03E8 for sampleRate=1000.
	got := cmdSetRate(1000)
	want := []byte{0x43, 0xE8, 0x03}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cmdSetRate(1000) = %v, want %v", got, want)
	}
}

func TestCmdStart(t *testing.T) {
	// Scenario 3: start-live 0x01, 0x05 (mask = bit0 | bit2 for AI1, AI3).
	mask := channelMask([]Channel{AI1, AI3})
	got := cmdStart(mask, false)
	want := []byte{0x01, 0x05}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cmdStart(mask, false) = %v, want %v", got, want)
	}

	sim := cmdStart(0xFF, true)
	if sim[0] != 0x02 {
		t.Errorf("cmdStart(..., true)[0] = %#x, want 0x02", sim[0])
	}
}

func TestCmdStop(t *testing.T) {
	if got, want := cmdStop(), []byte{0x00}; !reflect.DeepEqual(got, want) {
		t.Errorf("cmdStop() = %v, want %v", got, want)
	}
}

func TestCmdVersion(t *testing.T) {
	if got, want := cmdVersion(), []byte{0x07}; !reflect.DeepEqual(got, want) {
		t.Errorf("cmdVersion() = %v, want %v", got, want)
	}
}

func TestCmdTrigger(t *testing.T) {
	cases := []struct {
		o1, o2 bool
		want   byte
	}{
		{false, false, 0xB3},
		{true, false, 0xB7},
		{false, true, 0xBB},
		{true, true, 0xBF},
	}
	for _, c := range cases {
		got := cmdTrigger(c.o1, c.o2)
		if len(got) != 1 || got[0] != c.want {
			t.Errorf("cmdTrigger(%v, %v) = %v, want [%#x]", c.o1, c.o2, got, c.want)
		}
	}
}

func TestCmdDAC(t *testing.T) {
	got := cmdDAC(200)
	want := []byte{0xA3, 200}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cmdDAC(200) = %v, want %v", got, want)
	}
}

func TestCmdBattery(t *testing.T) {
	got := cmdBattery(63)
	want := []byte{63 << 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cmdBattery(63) = %v, want %v", got, want)
	}
}

func TestVersionParser(t *testing.T) {
	banner := append([]byte("ScientISST"), []byte("v2.1\nbuild 42")...)
	banner = append(banner, 0x00)

	var p versionParser
	for _, b := range banner {
		p.feed(b)
	}
	if !p.done {
		t.Fatalf("versionParser did not finish on terminator byte")
	}
	if got, want := p.result(), "v2.1build 42"; got != want {
		t.Errorf("versionParser.result() = %q, want %q", got, want)
	}
}

func TestVersionParserRestartsOnMismatch(t *testing.T) {
	// A false-start prefix ("Scie" then garbage) must not corrupt the
	// real banner that follows.
	stream := []byte("ScieXScientISSTok")
	stream = append(stream, 0x00)

	var p versionParser
	for _, b := range stream {
		p.feed(b)
	}
	if got, want := p.result(), "ok"; got != want {
		t.Errorf("versionParser.result() = %q, want %q", got, want)
	}
}
