package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "simple error", err: errors.New("boom"), expected: "Error: boom"},
		{
			name:     "wrapped sentinel",
			err:      fmt.Errorf("failed to modify schedule: %w", ErrNoCurrentSchedule),
			expected: "Error: failed to modify schedule: no current schedule: generate and apply a schedule first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.err); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("task %s not found", "abc")
	if got != "Error: task abc not found" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestSentinelsWrap(t *testing.T) {
	err := fmt.Errorf("failed to complete task: %w", ErrUnknownTask)
	if !Is(err, ErrUnknownTask) {
		t.Error("wrapped ErrUnknownTask not matched by Is")
	}
	if Is(err, ErrNotFound) {
		t.Error("unrelated sentinel matched")
	}
}
