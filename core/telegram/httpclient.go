package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/shopbot/core/netutil"

	tele "gopkg.in/telebot.v4"
)

const (
	defaultRetryAttempts = 3
	longPollHeadroom     = 10 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Long polling holds getUpdates open, so header and client timeouts grow with the poll timeout.
func BuildHTTPClient(poller tele.Poller) *http.Client {
	opts := netutil.ClientOptions{Retries: defaultRetryAttempts}
	if lp, ok := poller.(*tele.LongPoller); ok && lp.Timeout > 0 {
		opts.ResponseHeaderTimeout = lp.Timeout + longPollHeadroom
		opts.Timeout = lp.Timeout + 2*longPollHeadroom
	}
	return netutil.NewClient(opts)
}
