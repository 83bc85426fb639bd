package resilience

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("invalid api key"), want: false},
		{name: "explicit", err: NewTransientError(errors.New("rate limited"), 429), want: true},
		{name: "wrapped explicit", err: fmt.Errorf("create session: %w", NewTransientError(errors.New("busy"), 503)), want: true},
		{name: "eris wrapped explicit", err: eris.Wrap(NewTransientError(errors.New("busy"), 503), "extract"), want: true},
		{name: "connection reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "unexpected eof", err: fmt.Errorf("read frame: %w", io.ErrUnexpectedEOF), want: true},
		{name: "net timeout", err: &net.DNSError{Err: "timeout", IsTimeout: true}, want: true},
		{name: "websocket drop", err: errors.New("websocket: close 1006 (abnormal closure)"), want: true},
		{name: "tls", err: errors.New("net/http: TLS handshake timeout"), want: true},
		{name: "no such host", err: errors.New("dial tcp: lookup api.browserbase.com: no such host"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be permanent", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 502)
	if !errors.Is(te, inner) {
		t.Error("expected errors.Is to find inner")
	}
	if te.Error() != "inner" {
		t.Errorf("unexpected message %q", te.Error())
	}
	if te.StatusCode != 502 {
		t.Errorf("unexpected status %d", te.StatusCode)
	}
}
