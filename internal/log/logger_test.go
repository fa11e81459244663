package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerAddsComponentAndFamily(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentApp, Output: &buf}).
		WithComponent(ComponentReconciler).
		WithFamily("fam-1")

	logger.Info("Reconcile pass complete", FieldCount, 2)

	out := buf.String()
	for _, want := range []string{"component=reconciler", "family_id=fam-1", "count=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
	if strings.Count(out, "component=") != 1 {
		t.Errorf("component logged more than once: %q", out)
	}
}

func TestFromContext(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentWorker)
	ctx := NewContext(context.Background(), logger)

	if got := FromContext(ctx); got.Component() != ComponentWorker {
		t.Errorf("Component() = %q, want %q", got.Component(), ComponentWorker)
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback Component() = %q, want unknown", got.Component())
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentLedger).
		WithEntry("e1", "expense", 1500, "").
		WithError(nil)

	if _, ok := fields[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
	if _, ok := fields[FieldCategory]; ok {
		t.Error("empty category should not add a field")
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice() length = %d, want %d", got, 2*len(fields))
	}
}
