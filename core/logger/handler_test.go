package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
)

func render(t *testing.T, format logFormat, stacks bool, fn func(log *slog.Logger)) (all, errs string) {
	t.Helper()
	var buf, errBuf bytes.Buffer
	aw := newAsyncWriter([]io.Writer{&buf}, &errBuf, 1024)
	h := newStructuredHandler(handlerConfig{level: slog.LevelDebug, writer: aw, format: format, stacks: stacks})
	fn(slog.New(h).With("component", "app"))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String()), strings.TrimSpace(errBuf.String())
}

func TestKVLineStartsWithEnvelope(t *testing.T) {
	ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
	line, _ := render(t, formatKV, false, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelInfo, "test.event", slog.String("status", "OK"), slog.String("cause", "unit"))
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(want) {
		t.Fatalf("line = %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s (%s)", i, tokens[i], prefix, line)
		}
	}
}

func TestJSONLineOrderAndRID(t *testing.T) {
	ctx := WithRID(Background(), "12:34:56")
	line, _ := render(t, formatJSON, false, func(log *slog.Logger) {
		LogEvent(ctx, log, slog.LevelWarn, "rid.test", slog.String("status", "retry"))
	})
	prefixes := []string{`{"ts":`, `"level":"WARN"`, `"component":"app"`, `"event":"rid.test"`, `"status":"retry"`, `"rid":"` + CompactRID("12:34:56") + `"`, `"rid_full":"12:34:56"`, `"ts_unix_nano"`}
	pos := -1
	for _, p := range prefixes {
		idx := strings.Index(line, p)
		if idx < pos {
			t.Fatalf("%s missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestDurationsGroupsAndEmptyValues(t *testing.T) {
	line, _ := render(t, formatKV, false, func(log *slog.Logger) {
		log.LogAttrs(context.Background(), slog.LevelInfo, "",
			slog.String("event", "op"),
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("backoff", 2*time.Second),
			slog.Group("tab", slog.Int("rows", 3)),
			slog.String("empty", "  "),
			slog.String("outcome", "weird"),
		)
	})
	for _, want := range []string{"duration_ms=2", "backoff_ms=2000", "tab.rows=3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("%q missing in %s", want, line)
		}
	}
	for _, gone := range []string{"empty=", "outcome="} {
		if strings.Contains(line, gone) {
			t.Fatalf("%q must be dropped: %s", gone, line)
		}
	}
}

func TestErrorsGoToErrorSinkWithStack(t *testing.T) {
	all, errs := render(t, formatKV, true, func(log *slog.Logger) {
		LogEvent(Background(), log, slog.LevelInfo, "fine")
		LogEvent(Background(), log, slog.LevelError, "broken", slog.String("err", "boom"))
	})
	if strings.Count(all, "\n") != 1 {
		t.Fatalf("main sink must hold both lines: %s", all)
	}
	if strings.Contains(errs, "event=fine") || !strings.Contains(errs, "event=broken") {
		t.Fatalf("error sink = %s", errs)
	}
	if !strings.Contains(errs, "stack=") {
		t.Fatalf("stack missing: %s", errs)
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:71"); got != "z.10.1z" {
		t.Fatalf("got %q", got)
	}
	if got := CompactRID("import:ab12"); got != "import:ab12" {
		t.Fatalf("non-numeric rid changed: %q", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 10); got != "abc\nd" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeLimit("привет", 3); got != "при" {
		t.Fatalf("got %q", got)
	}
}

func TestSampler(t *testing.T) {
	var s sampler
	s.set(1, 3)
	var kept int
	for range 9 {
		if s.allow() {
			kept++
		}
	}
	if kept != 3 {
		t.Fatalf("kept %d of 9", kept)
	}
	s.set(0, 0)
	if !s.allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseSampleRatio(t *testing.T) {
	def := [2]int{1, 50}
	cases := map[string][2]int{"": def, "1/10": {1, 10}, "20": {1, 20}, "off": {0, 0}, "0": {0, 0}, "x/y": def}
	for in, want := range cases {
		k, n := parseSampleRatio(in, def)
		if k != want[0] || n != want[1] {
			t.Fatalf("%q -> %d/%d, want %v", in, k, n, want)
		}
	}
}

func TestResolveSettings(t *testing.T) {
	cfg := &coreconfig.Config{Logging: coreconfig.LoggingConfig{
		Profile:    "dev",
		Level:      "warning",
		KeysOrder:  "event, ts",
		Stacks:     "errors",
		Dir:        "logs",
		BotFile:    "bot.log",
		ErrorsFile: "errors.log",
	}}
	s := resolve(cfg)
	if s.format != formatKV || s.level != slog.LevelWarn || !s.stacks {
		t.Fatalf("settings = %+v", s)
	}
	if len(s.order) != 2 || s.order[0] != "event" {
		t.Fatalf("order = %v", s.order)
	}
	if s.errPath == "" || s.botPath == "" {
		t.Fatalf("paths = %q %q", s.botPath, s.errPath)
	}
	if d := resolve(nil); d.format != formatJSON || d.sample != defaultDebugSample {
		t.Fatalf("defaults = %+v", d)
	}
}
