package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func renderLine(t *testing.T, format logFormat, ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	Event(WithLogger(ctx, slog.New(handler)), CompShop, level, event, attrs...)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)
	line := renderLine(t, formatKV, ctx, slog.LevelInfo, "cart.add",
		slog.String("status", "ok"),
		slog.String("item", "Side mirror"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=shop", "event=cart.add", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if !strings.Contains(line, `item="Side mirror"`) {
		t.Fatalf("expected quoted item, got %s", line)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	line := renderLine(t, formatJSON, ctx, slog.LevelError, "order.failed",
		slog.String("status", "error"),
		slog.String("err", "boom"),
		slog.String("order_ref", "abc"),
	)
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"shop"`, `"event":"order.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"order_ref":"abc"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := BuildRID(123, 456, 789)
	ctx := WithRID(context.Background(), rawRID)

	kv := renderLine(t, formatKV, ctx, slog.LevelInfo, "rid.test")
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := renderLine(t, formatJSON, ctx, slog.LevelInfo, "rid.test")
	if !strings.Contains(js, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", js)
	}
	if !strings.Contains(js, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", js)
	}
	if !strings.Contains(js, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", js)
	}
}

func TestStructuredHandlerDurationsAndOutcome(t *testing.T) {
	line := renderLine(t, formatKV, context.Background(), slog.LevelInfo, "handler.summary",
		slog.Duration("duration", 1499*time.Microsecond),
		slog.Duration("store_duration", 2*time.Millisecond),
		slog.String("outcome", "Delivered"),
	)
	for _, want := range []string{"duration_ms=1", "store_duration_ms=2", "outcome=delivered"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}

	line = renderLine(t, formatKV, context.Background(), slog.LevelInfo, "handler.summary",
		slog.String("outcome", "exploded"),
		slog.String("empty", ""),
	)
	if strings.Contains(line, "outcome=") || strings.Contains(line, "empty=") {
		t.Fatalf("unknown outcome and empty strings must be dropped: %s", line)
	}
}

func TestEventHelpersAreNilSafe(t *testing.T) {
	saved := L
	L = nil
	defer func() { L = saved }()

	Info(context.Background(), CompStore, "noop")
	Error(context.TODO(), CompOrders, "noop", slog.String("err", "x"))
	if Component(CompApp) != nil {
		t.Fatal("Component must be nil before InitLogger")
	}
}

func TestCompactRIDLeavesOtherShapes(t *testing.T) {
	cases := map[string]string{
		"1:2:35":   "1.2.z",
		"rid-123":  "rid-123",
		"1:2":      "1:2",
		"a:b:c":    "a:b:c",
		" 36:0:1 ": "10.0.1",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSamplerRatio(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
	if num, den := parseRatioSpec("2/5"); num != 2 || den != 5 {
		t.Fatalf("parseRatioSpec(2/5) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("10"); num != 1 || den != 10 {
		t.Fatalf("parseRatioSpec(10) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("25%"); num != 25 || den != 100 {
		t.Fatalf("parseRatioSpec(25%%) = %d/%d", num, den)
	}
	if num, den := parseRatioSpec("x/y"); num != 0 || den != 0 {
		t.Fatalf("parseRatioSpec(x/y) = %d/%d", num, den)
	}
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterKeepsHealthySinks(t *testing.T) {
	good := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{brokenWriter{}, good}, 1)
	for _, line := range []string{"a\n", "b\n"} {
		if err := aw.Write([]byte(line)); err != nil && !strings.Contains(err.Error(), "disk full") {
			t.Fatalf("write: %v", err)
		}
	}
	if err := aw.Close(); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("close err = %v", err)
	}
	if good.String() != "a\nb\n" {
		t.Fatalf("healthy sink got %q", good.String())
	}
	if err := aw.Write([]byte("late")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("write after close = %v", err)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\nd", 4); got != "abc\n" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}

func TestStatusAndSummaries(t *testing.T) {
	if Status(nil) != "ok" || Status(context.Canceled) != "cancelled" || Status(errors.New("x")) != "fail" {
		t.Fatal("unexpected status mapping")
	}
	preview, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	if preview != "a, b, +1 more" || !cut {
		t.Fatalf("preview = %q, %v", preview, cut)
	}
	if preview, cut := SummarizeStrings([]string{"a"}, 2); preview != "a" || cut {
		t.Fatalf("preview = %q, %v", preview, cut)
	}
	if RoundMS(1499*time.Microsecond) != time.Millisecond {
		t.Fatal("RoundMS")
	}
}
