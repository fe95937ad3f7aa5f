package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)

	retrieved := FromContext(ctx)
	if retrieved == nil {
		t.Fatal("FromContext returned nil")
	}
	retrieved.Info("test message")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Error("FromContext should return default logger, got nil")
	}
}

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "01HZX")
	if got := RunIDFromContext(ctx); got != "01HZX" {
		t.Errorf("RunIDFromContext() = %q, want %q", got, "01HZX")
	}
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Errorf("RunIDFromContext() = %q, want empty string", got)
	}
}

func TestL(t *testing.T) {
	tests := []struct {
		name  string
		runID string
	}{
		{"with run id", "01HZX"},
		{"without run id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: "json", Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			ctx := WithLogger(context.Background(), l)
			if tt.runID != "" {
				ctx = WithRunID(ctx, tt.runID)
			}
			L(ctx).Info("test message")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to parse JSON log: %v", err)
			}
			got, ok := entry["run_id"]
			if tt.runID == "" {
				if ok {
					t.Errorf("Should not have run_id when not set, got %v", got)
				}
				return
			}
			if got != tt.runID {
				t.Errorf("Expected run_id=%q, got %v", tt.runID, got)
			}
		})
	}
}
