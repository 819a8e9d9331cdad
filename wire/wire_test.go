package wire

import (
	"bytes"
	"testing"

	"wirelink/internal/errors"
)

func TestAppendFrame(t *testing.T) {
	frame, err := AppendFrame(nil, []byte("0123456789"), 0)
	if err != nil {
		t.Fatal(err)
	}

	// 4-byte prefix + 10-byte payload.
	if len(frame) != 14 {
		t.Fatalf("frame length = %d, want 14", len(frame))
	}
	want := []byte{0, 0, 0, 10, '0', '1', '2', '3', '4', '5', '6', '7', '8', '9'}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = %v, want %v", frame, want)
	}
}

func TestAppendFrame_Empty(t *testing.T) {
	frame, err := AppendFrame(nil, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(frame, []byte{0, 0, 0, 0}) {
		t.Errorf("empty frame = %v", frame)
	}
}

func TestAppendFrame_TooLarge(t *testing.T) {
	_, err := AppendFrame(nil, make([]byte, 17), 16)
	if !errors.Is(err, errors.ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
}

func TestParseLength(t *testing.T) {
	n, err := ParseLength([]byte{0, 0, 3, 0xE8}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1000 {
		t.Errorf("length = %d, want 1000", n)
	}
}

func TestParseLength_RejectsOversized(t *testing.T) {
	// Declared length one past the cap must fail before any payload
	// buffer is allocated.
	_, err := ParseLength([]byte{0, 0, 0, 17}, 16)
	if err == nil {
		t.Fatal("oversized length accepted")
	}
	if !errors.Is(err, errors.ErrFrameTooLarge) {
		t.Errorf("err = %v, want ErrFrameTooLarge", err)
	}
	var de *errors.DecodeError
	if !errors.As(err, &de) {
		t.Errorf("err = %T, want *DecodeError", err)
	}
}

func TestParseLength_ShortPrefix(t *testing.T) {
	if _, err := ParseLength([]byte{0, 0, 1}, 0); err == nil {
		t.Error("3-byte prefix accepted")
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	for _, v := range []uint32{ProbePlaintext, ProbeTLS,
		ResponseTLSAccepted, ResponsePlaintext, 0xDEADBEEF} {
		buf := PutHandshake(v)
		if len(buf) != 4 {
			t.Fatalf("handshake encoding is %d bytes", len(buf))
		}
		if got := Handshake(buf); got != v {
			t.Errorf("round trip 0x%08x -> 0x%08x", v, got)
		}
	}
}

func TestHandshake_NetworkByteOrder(t *testing.T) {
	if !bytes.Equal(PutHandshake(ProbeTLS), []byte{0, 0, 0, 1}) {
		t.Error("probe is not big-endian")
	}
	if !bytes.Equal(PutHandshake(ResponsePlaintext), []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Error("plaintext sentinel is not big-endian")
	}
}

func BenchmarkAppendFrame(b *testing.B) {
	payload := make([]byte, 4096)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		frame, err := AppendFrame(make([]byte, 0, len(payload)+4), payload, 0)
		if err != nil {
			b.Fatal(err)
		}
		_ = frame
	}
}
