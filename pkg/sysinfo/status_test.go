package sysinfo

import (
	"errors"
	"testing"
	"time"
)

func TestUptimeFormatsHoursMinutesSeconds(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReporter(start).WithClock(func() time.Time { return start.Add(3661 * time.Second) })

	if got := r.Uptime(); got != "01:01:01" {
		t.Fatalf("Uptime = %q, want %q", got, "01:01:01")
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: 0, want: "00:00:00"},
		{in: 59 * time.Second, want: "00:00:59"},
		{in: 26 * time.Hour, want: "26:00:00"},
		{in: 1500 * time.Millisecond, want: "00:00:01"},
		{in: -time.Second, want: "00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatUptime(tt.in); got != tt.want {
			t.Fatalf("FormatUptime(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusUsesMemoryProbe(t *testing.T) {
	start := time.Now()
	r := NewReporter(start).
		WithClock(func() time.Time { return start.Add(5 * time.Second) }).
		WithMemory(func() (float64, error) { return 42.26, nil })

	status := r.Status()
	if status.Uptime != "00:00:05" {
		t.Fatalf("uptime = %q", status.Uptime)
	}
	if status.RAM != "42.3%" {
		t.Fatalf("ram = %q, want %q", status.RAM, "42.3%")
	}
}

func TestStatusFallsBackOnProbeFailure(t *testing.T) {
	r := NewReporter(time.Now()).WithMemory(func() (float64, error) {
		return 0, errors.New("no procfs")
	})

	if got := r.Status().RAM; got != NotAvailable {
		t.Fatalf("ram = %q, want %q", got, NotAvailable)
	}
}

func TestStyleText(t *testing.T) {
	if got := StyleText("Uptime 1!"); got != "ᴜᴘᴛɪᴍᴇ 𝟣!" {
		t.Fatalf("StyleText = %q", got)
	}
}
