// Package humanfmt provides human-readable formatting for bytes, durations, and throughput.
package humanfmt

import (
	"fmt"
	"time"
)

// Binary (IEC) units for bytes.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// Bytes formats a byte count using IEC binary units (KiB, MiB, GiB).
// Returns a compact human-readable string like "1.23 MiB".
func Bytes(b int64) string {
	if b < 0 {
		return fmt.Sprintf("%d B", b)
	}

	switch {
	case b >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(b)/GiB)
	case b >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(b)/MiB)
	case b >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(b)/KiB)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Examples: "1.23s", "45.6ms", "789µs", "1m30s".
func Duration(d time.Duration) string {
	if d < 0 {
		return d.String()
	}

	switch {
	case d >= time.Minute:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// Throughput formats bytes per duration as a human-readable rate.
// Returns a string like "123.4 MiB/s".
func Throughput(bytes int64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}

	bytesPerSec := float64(bytes) / d.Seconds()

	switch {
	case bytesPerSec >= GiB:
		return fmt.Sprintf("%.2f GiB/s", bytesPerSec/GiB)
	case bytesPerSec >= MiB:
		return fmt.Sprintf("%.2f MiB/s", bytesPerSec/MiB)
	case bytesPerSec >= KiB:
		return fmt.Sprintf("%.2f KiB/s", bytesPerSec/KiB)
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
}
