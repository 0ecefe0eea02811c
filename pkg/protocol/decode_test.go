package protocol

import (
	"errors"
	"testing"
)

func TestDecodeBool(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"Zero", []byte{0}, false},
		{"One", []byte{1}, true},
		{"AnyNonzero", []byte{0x80}, true},
		{"ExtraBytesIgnored", []byte{0, 1, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBool(tt.data)
			if err != nil {
				t.Fatalf("DecodeBool() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeBool(%x) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}

	if _, err := DecodeBool(nil); !errors.Is(err, ErrProtocol) {
		t.Errorf("DecodeBool(nil) error = %v, want ErrProtocol", err)
	}
}

func TestDecodeUintBigEndian(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"OneByte", []byte{0x07}, 7},
		{"TwoBytes", []byte{0x00, 0x0A}, 10},
		{"TwoBytesHighFirst", []byte{0x01, 0x00}, 256},
		{"FourBytes", []byte{0x01, 0x02, 0x03, 0x04}, 0x01020304},
		{"Max", []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeUint(tt.data)
			if err != nil {
				t.Fatalf("DecodeUint() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeUint(%x) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeUintWidth(t *testing.T) {
	for _, n := range []int{0, 5} {
		if _, err := DecodeUint(make([]byte, n)); !errors.Is(err, ErrProtocol) {
			t.Errorf("DecodeUint(%d bytes) error = %v, want ErrProtocol", n, err)
		}
	}
}

func TestCommandDecode(t *testing.T) {
	v, err := ReadCurrent.Decode([]byte{0x00, 0x0A, 0xFF})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Kind != KindUint || v.Uint != 10 {
		t.Errorf("Decode() = %+v, want UINT 10", v)
	}

	v, err = ReadPort2.Decode([]byte{1})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Kind != KindBool || !v.Bool {
		t.Errorf("Decode() = %+v, want BOOL true", v)
	}
}

func TestCommandDecodeErrors(t *testing.T) {
	if _, err := ReadCurrentCumulative.Decode([]byte{1, 2}); !errors.Is(err, ErrProtocol) {
		t.Errorf("short reply error = %v, want ErrProtocol", err)
	}
	if _, err := Heartbeat.Decode([]byte{1}); !errors.Is(err, ErrProtocol) {
		t.Errorf("no-reply command error = %v, want ErrProtocol", err)
	}
	if _, err := Decode("ReadNothing", []byte{1}); !errors.Is(err, ErrProtocol) {
		t.Errorf("unknown name error = %v, want ErrProtocol", err)
	}
}

func TestDecodeByName(t *testing.T) {
	v, err := Decode("ReadWatchdogStatus", []byte{2})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v.Uint != 2 {
		t.Errorf("Decode() = %d, want 2", v.Uint)
	}
}
