package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ShouldRetry reports whether a transport error is transient: dial failures,
// timeouts and connection resets. Cancellation by the caller never retries.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Timeout()) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

// ErrorKind names the transport failure class for logs.
func ErrorKind(err error) string {
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.Is(err, syscall.ECONNRESET):
		return "conn_reset"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "conn_refused"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "network"
}

// RedactPath hides the bot token in Telegram API paths: /bot<token>/method
// becomes /bot***/method.
func RedactPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/bot")
	if !ok {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/bot***" + rest[i:]
	}
	return "/bot***"
}
