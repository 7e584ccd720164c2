// Package sysinfo reports process uptime and host memory usage.
package sysinfo

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// NotAvailable is substituted for metrics that could not be collected.
const NotAvailable = "N/A"

// Status is one snapshot of the values shown by the info command.
type Status struct {
	Uptime string `json:"uptime"`
	RAM    string `json:"ram"`
}

// MemoryFunc returns the used memory percentage.
type MemoryFunc func() (float64, error)

// Reporter computes uptime relative to a fixed start time.
type Reporter struct {
	start  time.Time
	now    func() time.Time
	memory MemoryFunc
}

// NewReporter returns a reporter whose uptime counts from start.
func NewReporter(start time.Time) *Reporter {
	return &Reporter{start: start, now: time.Now, memory: virtualMemoryPercent}
}

// WithClock replaces the time source.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// WithMemory replaces the memory probe.
func (r *Reporter) WithMemory(fn MemoryFunc) *Reporter {
	r.memory = fn
	return r
}

// Started returns the reference time uptime is measured from.
func (r *Reporter) Started() time.Time {
	return r.start
}

// UptimeDuration returns the elapsed time since start, truncated to seconds.
func (r *Reporter) UptimeDuration() time.Duration {
	elapsed := r.now().Sub(r.start)
	if elapsed < 0 {
		return 0
	}
	return elapsed.Truncate(time.Second)
}

// Uptime formats the elapsed time as HH:MM:SS. Hours are not wrapped at 24.
func (r *Reporter) Uptime() string {
	return FormatUptime(r.UptimeDuration())
}

// FormatUptime renders d as HH:MM:SS.
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Status collects uptime and memory usage, tolerating probe failures.
func (r *Reporter) Status() Status {
	status := Status{Uptime: r.Uptime(), RAM: NotAvailable}
	if r.memory == nil {
		return status
	}

	percent, err := r.memory()
	if err != nil {
		return status
	}
	status.RAM = fmt.Sprintf("%.1f%%", percent)
	return status
}

func virtualMemoryPercent() (float64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stat.UsedPercent, nil
}

var smallCaps = map[rune]string{
	'a': "ᴀ", 'b': "ʙ", 'c': "ᴄ", 'd': "ᴅ", 'e': "ᴇ",
	'f': "ғ", 'g': "ɢ", 'h': "ʜ", 'i': "ɪ", 'j': "ᴊ",
	'k': "ᴋ", 'l': "ʟ", 'm': "ᴍ", 'n': "ɴ", 'o': "ᴏ",
	'p': "ᴘ", 'q': "ǫ", 'r': "ʀ", 's': "ꜱ", 't': "ᴛ",
	'u': "ᴜ", 'v': "ᴠ", 'w': "ᴡ", 'x': "x", 'y': "ʏ",
	'z': "ᴢ", '0': "𝟢", '1': "𝟣", '2': "𝟤", '3': "𝟥",
	'4': "𝟦", '5': "𝟧", '6': "𝟨", '7': "𝟩", '8': "𝟪",
	'9': "𝟫",
}

// StyleText maps ASCII letters and digits to small-caps glyphs. Other runes pass through.
func StyleText(text string) string {
	var b strings.Builder
	for _, r := range text {
		lower := r
		if r >= 'A' && r <= 'Z' {
			lower = r + ('a' - 'A')
		}
		if styled, ok := smallCaps[lower]; ok {
			b.WriteString(styled)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
