package numeric

import (
	"math/big"
	"testing"
)

func TestIsHex(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"0x", true},
		{"0xabc", true},
		{"abc123", true},
		{"0xgg", false},
		{"zz", false},
	}
	for _, tt := range tests {
		if got := IsHex(tt.in); got != tt.want {
			t.Errorf("IsHex(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnsureHexEvenLength(t *testing.T) {
	got, err := EnsureHex("0xabc", "", true, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "0x0abc" {
		t.Errorf("EnsureHex odd-length pad = %q, want 0x0abc", got)
	}
}

func TestEnsureHexInvalid(t *testing.T) {
	if _, err := EnsureHex("zz", "value", true, false); err == nil {
		t.Error("expected error for non-hex input")
	}
}

func TestBytesHexRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		{0xff, 0xff, 0xff, 0xff},
	}
	for _, b := range inputs {
		h := HexFromBytes(b, true)
		back, err := BytesFromHex(h)
		if err != nil {
			t.Fatal(err)
		}
		if len(back) != len(b) {
			t.Fatalf("round trip length mismatch for %x: got %x", b, back)
		}
		for i := range b {
			if back[i] != b[i] {
				t.Errorf("round trip mismatch for %x: got %x", b, back)
			}
		}
	}
}

func TestBytesFromBigIntCanonical(t *testing.T) {
	if got := BytesFromBigInt(big.NewInt(0)); len(got) != 0 {
		t.Errorf("BytesFromBigInt(0) = %x, want empty", got)
	}
	got := BytesFromBigInt(big.NewInt(256))
	want := []byte{0x01, 0x00}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("BytesFromBigInt(256) = %x, want %x", got, want)
	}
}

func TestIntFromHexOverflow(t *testing.T) {
	huge := "0x" + "ff" // small value, sanity baseline
	if _, err := IntFromHex(huge); err != nil {
		t.Fatal(err)
	}

	tooBig := "0x20000000000000" // 2^53, exceeds MAX_SAFE_INTEGER
	if _, err := IntFromHex(tooBig); err == nil {
		t.Error("expected overflow error")
	}
}

func TestDecimalStringFromBigInt(t *testing.T) {
	tests := []struct {
		n      int64
		places int
		want   string
	}{
		{0, 6, "0"},
		{12340000, 6, "12.34"},
		{1000000000000000000, 18, "1"},
		{1, 6, "0.000001"},
		{123, 0, "123"},
	}
	for _, tt := range tests {
		got, err := DecimalStringFromBigInt(big.NewInt(tt.n), tt.places)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("DecimalStringFromBigInt(%d, %d) = %q, want %q", tt.n, tt.places, got, tt.want)
		}
	}
}

func TestBigIntFromDecimalString(t *testing.T) {
	tests := []struct {
		s      string
		places int
		want   int64
	}{
		{"12.34", 6, 12340000},
		{"0", 6, 0},
		{"", 6, 0},
		{"1", 6, 1000000},
		{"1.2345678", 6, 1234567}, // truncated beyond places
	}
	for _, tt := range tests {
		got, err := BigIntFromDecimalString(tt.s, tt.places)
		if err != nil {
			t.Fatal(err)
		}
		if got.Int64() != tt.want {
			t.Errorf("BigIntFromDecimalString(%q, %d) = %d, want %d", tt.s, tt.places, got.Int64(), tt.want)
		}
	}
}

func TestBigIntFromDecimalStringRejectsNegative(t *testing.T) {
	if _, err := BigIntFromDecimalString("-1.5", 6); err == nil {
		t.Error("expected error for negative decimal string")
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	places := 6
	for _, n := range []int64{0, 1, 42, 12340000, 999999999999} {
		s, err := DecimalStringFromBigInt(big.NewInt(n), places)
		if err != nil {
			t.Fatal(err)
		}
		back, err := BigIntFromDecimalString(s, places)
		if err != nil {
			t.Fatal(err)
		}
		if back.Int64() != n {
			t.Errorf("round trip mismatch: n=%d s=%q back=%d", n, s, back.Int64())
		}
	}
}

func TestBlockHeightString(t *testing.T) {
	if got := BlockHeightString("latest"); got != "latest" {
		t.Errorf("BlockHeightString(latest) = %q", got)
	}
	if got := BlockHeightString(int64(255)); got != "0xff" {
		t.Errorf("BlockHeightString(255) = %q, want 0xff", got)
	}
}

func TestUnixTimeFromTimestamp(t *testing.T) {
	if got := UnixTimeFromTimestamp(1700000000123); got != 1700000000 {
		t.Errorf("UnixTimeFromTimestamp = %d, want 1700000000", got)
	}
}
