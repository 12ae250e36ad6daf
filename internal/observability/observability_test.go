package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/contrib/processors/minsev"
)

func TestSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  minsev.Severity
	}{
		{slog.LevelDebug, minsev.SeverityDebug},
		{slog.LevelInfo, minsev.SeverityInfo},
		{slog.LevelWarn, minsev.SeverityWarn},
		{slog.LevelError, minsev.SeverityError},
	}

	for _, tt := range tests {
		if got := severity(tt.level); got != tt.want {
			t.Errorf("severity(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestTeeHandlerFanOut(t *testing.T) {
	var a, b bytes.Buffer
	tee := newTeeHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)

	logger := slog.New(tee)
	logger.Info("hello", "key", "value")

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		if !bytes.Contains(buf.Bytes(), []byte("hello")) {
			t.Errorf("%s handler missing record: %q", name, buf.String())
		}
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var quiet, chatty bytes.Buffer
	tee := newTeeHandler(
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&chatty, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	if !tee.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("tee should be enabled when any handler is")
	}

	slog.New(tee).Debug("details")

	if quiet.Len() != 0 {
		t.Errorf("error-level handler received debug record: %q", quiet.String())
	}
	if !bytes.Contains(chatty.Bytes(), []byte("details")) {
		t.Errorf("debug-level handler missing record: %q", chatty.String())
	}
}

func TestInstrumentRejectsUnknownFormat(t *testing.T) {
	if err := Instrument(slog.LevelInfo, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
