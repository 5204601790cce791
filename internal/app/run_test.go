package app

import (
	"strings"
	"testing"
	"time"
)

func TestNewRun(t *testing.T) {
	start := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	r := NewRun("record", start)
	if r.Command != "record" {
		t.Errorf("Command = %q, want %q", r.Command, "record")
	}
	if !strings.HasPrefix(r.ID, "20240615T143045Z-") {
		t.Errorf("ID = %q, want timestamp prefix", r.ID)
	}
	if len(r.ID) != len("20240615T143045Z-")+8 {
		t.Errorf("ID = %q, want 8 char suffix", r.ID)
	}

	other := NewRun("record", start)
	if other.ID == r.ID {
		t.Errorf("two runs share ID %q", r.ID)
	}

	if got := r.Elapsed(start.Add(1500 * time.Millisecond)); got != 1500*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 1.5s", got)
	}
}
