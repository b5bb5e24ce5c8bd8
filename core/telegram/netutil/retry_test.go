package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", fmt.Errorf("wrap: %w", context.Canceled), false},
		{"deadline", &url.Error{Op: "Post", URL: "x", Err: context.DeadlineExceeded}, true},
		{"dial", dial, true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"plain", errors.New("bad request"), false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Fatalf("%s: ShouldRetry = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(&net.DNSError{Err: "no such host", Name: "api.telegram.org"}); got != "dns" {
		t.Fatalf("dns kind = %q", got)
	}
	if got := ErrorKind(context.DeadlineExceeded); got != "timeout" {
		t.Fatalf("timeout kind = %q", got)
	}
	if got := ErrorKind(errors.New("x")); got != "network" {
		t.Fatalf("default kind = %q", got)
	}
}

func TestRedactPath(t *testing.T) {
	cases := map[string]string{
		"/bot123:abc/sendMessage": "/bot***/sendMessage",
		"/bot123:abc":             "/bot***",
		"/healthz":                "/healthz",
	}
	for in, want := range cases {
		if got := RedactPath(in); got != want {
			t.Fatalf("RedactPath(%q) = %q, want %q", in, got, want)
		}
	}
}
