package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected []interface{}
	}{
		{
			name:     "plain fields pass through",
			input:    []interface{}{"step", "write_letter", "passes", 2},
			expected: []interface{}{"step", "write_letter", "passes", 2},
		},
		{
			name:     "credentials are masked",
			input:    []interface{}{"api_key", "sk-123", "JWT_Secret", "s3cr3t", "user", "ana"},
			expected: []interface{}{"api_key", redacted, "JWT_Secret", redacted, "user", "ana"},
		},
		{
			name:     "odd trailing key kept",
			input:    []interface{}{"step", "a", "dangling"},
			expected: []interface{}{"step", "a", "dangling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitize(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("Expected %d entries, got %d", len(tt.expected), len(result))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("Entry %d: expected %v, got %v", i, tt.expected[i], result[i])
				}
			}
		})
	}
}

func TestLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("session_id", "abc").Info("step completed", "step", "write_letter", "token", "xyz")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["session_id"] != "abc" {
		t.Errorf("Expected session_id field, got %v", fields["session_id"])
	}
	if fields["step"] != "write_letter" {
		t.Errorf("Expected step field, got %v", fields["step"])
	}
	if fields["token"] != redacted {
		t.Errorf("Expected token to be redacted, got %v", fields["token"])
	}
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", mode, err)
		}
		if log.SugaredLogger == nil {
			t.Errorf("Expected sugared logger for mode %q", mode)
		}
	}
}
