package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/core/telegram/netutil"
)

// HTTPClientOptions tune the client used for Bot API calls. Zero fields take
// the defaults below.
type HTTPClientOptions struct {
	Timeout     time.Duration
	DialTimeout time.Duration
	Retries     int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	// LongPoll is added to the response header timeout so getUpdates can
	// hold the connection open.
	LongPoll time.Duration
	// Base replaces the tuned transport; used by tests.
	Base http.RoundTripper
}

const (
	defaultDialTimeout     = 5 * time.Second
	defaultTLSHandshake    = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	defaultResponseTimeout = 5 * time.Second
	defaultClientTimeout   = 30 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultRetries         = 3
	defaultBackoff         = 500 * time.Millisecond
	defaultMaxBackoff      = 4 * time.Second
)

func (o HTTPClientOptions) withDefaults() HTTPClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = defaultClientTimeout
	}
	if o.LongPoll > 0 && o.Timeout < o.LongPoll+defaultResponseTimeout {
		o.Timeout = o.LongPoll + defaultResponseTimeout
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = defaultRetries
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultBackoff
	}
	if o.MaxBackoff < o.Backoff {
		o.MaxBackoff = defaultMaxBackoff
	}
	return o
}

// BuildHTTPClient returns a client that retries transient transport errors.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	opts = opts.withDefaults()
	base := opts.Base
	if base == nil {
		base = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: opts.DialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshake,
			ResponseHeaderTimeout: defaultResponseTimeout + opts.LongPoll,
			ExpectContinueTimeout: time.Second,
		}
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base:       base,
			retries:    opts.Retries,
			backoff:    opts.Backoff,
			maxBackoff: opts.MaxBackoff,
		},
	}
}

type retryTransport struct {
	base       http.RoundTripper
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
}

// delay doubles per attempt up to maxBackoff.
func (t *retryTransport) delay(attempt int) time.Duration {
	d := t.backoff
	for i := 1; i < attempt && d < t.maxBackoff; i++ {
		d *= 2
	}
	if d > t.maxBackoff {
		d = t.maxBackoff
	}
	return d
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 1; ; attempt++ {
		try := req
		if attempt > 1 {
			try = req.Clone(ctx)
			if req.Body != nil {
				// A consumed body without GetBody cannot be replayed.
				if req.GetBody == nil {
					return nil, errNoReplay
				}
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				try.Body = body
			}
		}

		resp, err := t.base.RoundTrip(try)
		if err == nil {
			return resp, nil
		}
		if attempt > t.retries || !netutil.ShouldRetry(err) {
			return nil, err
		}

		wait := t.delay(attempt)
		logger.Debug(ctx, logger.CompTGWire, "http.retry",
			slog.String("status", "retry"),
			slog.String("path", netutil.RedactPath(req.URL.Path)),
			slog.Int("attempts", attempt),
			slog.String("error_kind", netutil.ErrorKind(err)),
			slog.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

var errNoReplay = errors.New("telegram: request body cannot be replayed")
