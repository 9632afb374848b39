package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithAttrsOverridesByKey(t *testing.T) {
	ctx := WithAttrs(context.Background(), slog.String("component", "issues"), slog.String("user_id", "u1"))
	ctx = WithAttrs(ctx, slog.String("component", "session"))

	attrs := Attrs(ctx)
	if len(attrs) != 2 {
		t.Fatalf("len(attrs) = %d, want 2", len(attrs))
	}
	if attrs[0].Key != "component" || attrs[0].Value.String() != "session" {
		t.Fatalf("attrs[0] = %v", attrs[0])
	}
	if attrs[1].Key != "user_id" || attrs[1].Value.String() != "u1" {
		t.Fatalf("attrs[1] = %v", attrs[1])
	}
}

func TestLoggerFromContextReceivesAttrs(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewTextLogger(&buf, slog.LevelInfo))
	ctx = WithAttrs(ctx, slog.String("component", "issues"))

	Info(ctx, "issue created", slog.String("issue_id", "i-1"))
	Debug(ctx, "hidden")

	out := buf.String()
	if !strings.Contains(out, "component=issues") || !strings.Contains(out, "issue_id=i-1") {
		t.Fatalf("log output = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range testCases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
