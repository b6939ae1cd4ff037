package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// defaultLongPollSeconds applies when the config leaves the poll timeout unset.
const defaultLongPollSeconds = 10

// WebhookOptions declares the webhook listener.
type WebhookOptions struct {
	Listen      string
	Port        int
	URL         string
	SecretToken string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// BuildPoller returns a webhook listener in webhook mode and a long poller otherwise.
func BuildPoller(opts PollerOptions) tele.Poller {
	if opts.RunMode == coreconfig.RunModeWebhook {
		w := opts.Webhook
		return &tele.Webhook{
			Listen:      net.JoinHostPort(w.Listen, strconv.Itoa(w.Port)),
			SecretToken: w.SecretToken,
			Endpoint:    &tele.WebhookEndpoint{PublicURL: w.URL},
		}
	}
	seconds := opts.LongPollTimeoutSeconds
	if seconds <= 0 {
		seconds = defaultLongPollSeconds
	}
	return &tele.LongPoller{Timeout: time.Duration(seconds) * time.Second}
}
