package logger

import (
	"log/slog"
	"strings"
)

// Status values understood by log consumers. Anything else is kept verbatim.
var knownStatus = map[string]bool{
	"ok": true, "error": true, "fail": true, "skip": true,
	"retry": true, "rate_limited": true, "cancelled": true,
}

var knownOutcome = map[string]bool{
	"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError+4:
		return "FATAL"
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// normalizeEnums lowercases status and outcome; unknown outcomes are dropped.
func normalizeEnums(fields map[string]any) {
	if s, ok := fields["status"].(string); ok && s != "" {
		if low := strings.ToLower(s); knownStatus[low] {
			fields["status"] = low
		}
	}
	if o, ok := fields["outcome"].(string); ok && o != "" {
		low := strings.ToLower(o)
		if knownOutcome[low] {
			fields["outcome"] = low
		} else {
			delete(fields, "outcome")
		}
	}
}

// defaultKeyOrder puts the envelope first, then update identity, then the shop
// and import attributes, then errors and transport details.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key", "outcome", "duration_ms",
	"version", "mode", "listen", "public_url", "username", "payload",
	"backend", "buttons", "admins", "supers", "state", "action", "button_id", "target_id",
	"run_id", "tab", "rows", "kept", "skipped", "added", "updated", "count",
	"db", "host", "port", "from_ver", "to_ver", "files",
	"err", "err_code", "cause", "http_code", "retryable", "attempts", "backoff_ms",
	"stack",
}
