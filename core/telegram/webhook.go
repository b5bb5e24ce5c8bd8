package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/partsbot/core/config"
	"github.com/m3rciful/partsbot/core/logger"
)

const webhookShutdownTimeout = 10 * time.Second

// SecretHeader carries the webhook secret token on every Telegram update POST.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// NewWebhookHandler mounts the Telegram update endpoint and a liveness check.
// Updates are POSTed to path; GET healthPath answers 200 "ok". With a non-empty
// secret, posts without the matching SecretHeader get 401.
func NewWebhookHandler(hook http.Handler, path, healthPath, secret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get(healthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.With(requireSecret(secret)).Post(path, hook.ServeHTTP)
	return r
}

func requireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(secret)) != 1 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs rejected webhook calls; accepted ones are logged per update.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if ww.Status() < http.StatusBadRequest {
			return
		}
		logger.Warn(r.Context(), logger.CompWebhook, "request.rejected",
			slog.String("status", "fail"),
			slog.String("path", r.URL.Path),
			slog.Int("err_code", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// serveWebhook runs srv until ctx is done and then shuts it down gracefully.
func serveWebhook(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func newWebhookServer(hook *tele.Webhook, opts WebhookOptions) *http.Server {
	health := opts.HealthPath
	if health == "" {
		health = coreconfig.DefaultHealthPath
	}
	return &http.Server{
		Addr:              opts.Addr(),
		Handler:           NewWebhookHandler(hook, opts.Path(), health, opts.SecretToken),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
