package telegram

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/partsbot/core/config"
)

const defaultLongPollTimeout = 10 * time.Second

// WebhookOptions declares webhook listener settings.
type WebhookOptions struct {
	Listen      string
	Port        int
	URL         string
	SecretToken string
	HealthPath  string
}

// Addr is the local address the webhook HTTP server binds to.
func (o WebhookOptions) Addr() string {
	return fmt.Sprintf("%s:%d", o.Listen, o.Port)
}

// Path returns the URL path Telegram posts updates to, "/" when URL has none.
func (o WebhookOptions) Path() string {
	u, err := url.Parse(strings.TrimSpace(o.URL))
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// PollerOptionsFrom maps core configuration onto PollerOptions.
func PollerOptionsFrom(cfg *coreconfig.Config) PollerOptions {
	return PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen:      cfg.Webhook.Listen,
			Port:        cfg.Webhook.Port,
			URL:         cfg.Webhook.URL,
			SecretToken: cfg.Webhook.SecretToken,
			HealthPath:  cfg.Webhook.HealthPath,
		},
	}
}

// BuildPoller returns a Telebot poller based on provided options.
// The webhook poller has no Listen address: its HTTP side is served by the
// router built in NewWebhookHandler.
func BuildPoller(opts PollerOptions) tele.Poller {
	runMode := strings.ToLower(strings.TrimSpace(opts.RunMode))
	if runMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			SecretToken: opts.Webhook.SecretToken,
			Endpoint:    &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
		}
	}

	return &tele.LongPoller{Timeout: opts.longPollTimeout()}
}

// longPollTimeout is zero in webhook mode.
func (o PollerOptions) longPollTimeout() time.Duration {
	if strings.EqualFold(strings.TrimSpace(o.RunMode), coreconfig.RunModeWebhook) {
		return 0
	}
	if o.LongPollTimeoutSeconds > 0 {
		return time.Duration(o.LongPollTimeoutSeconds) * time.Second
	}
	return defaultLongPollTimeout
}
