package errors

import (
	stderrors "errors"
	"fmt"
	"net"
	"testing"
)

func TestResolveError_Message(t *testing.T) {
	err := &ResolveError{Host: "server.example", Service: "15000",
		Err: stderrors.New("no such host")}
	want := "resolve server.example/15000: no such host"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestHandshakeError_Message(t *testing.T) {
	err := &HandshakeError{Response: 0xDEADBEEF}
	want := "handshake: unexpected response 0xdeadbeef"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	inner := stderrors.New("connection reset")
	err = &HandshakeError{Err: inner}
	if !stderrors.Is(err, inner) {
		t.Error("HandshakeError does not unwrap to its cause")
	}
}

func TestUnwrapChain(t *testing.T) {
	root := stderrors.New("boom")
	wrapped := fmt.Errorf("transfer: %w",
		WrapNetwork("read", "127.0.0.1:15000", root))

	if !stderrors.Is(wrapped, root) {
		t.Error("NetworkError broke the unwrap chain")
	}

	var ne *NetworkError
	if !As(wrapped, &ne) {
		t.Fatal("errors.As failed to find NetworkError")
	}
	if ne.Op != "read" {
		t.Errorf("Op = %q, want %q", ne.Op, "read")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"handshake violation", &HandshakeError{Response: 42}, false},
		{"decode failure", WrapDecode(stderrors.New("bad gzip")), false},
		{"connect refused", &ConnectError{Addr: "10.0.0.1:15000",
			Err: stderrors.New("connection refused")}, true},
		{"mid-frame io", WrapNetwork("write", "10.0.0.1:15000",
			stderrors.New("broken pipe")), true},
		{"temporary dns", &ResolveError{Host: "h", Service: "s",
			Err: &net.DNSError{IsTemporary: true}}, true},
		{"permanent dns", &ResolveError{Host: "h", Service: "s",
			Err: &net.DNSError{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSentinels_Distinct(t *testing.T) {
	sentinels := []error{ErrAborted, ErrClosed, ErrBusy, ErrFrameTooLarge}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && stderrors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}
