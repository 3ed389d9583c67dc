package domain

import (
	"fmt"
	"time"
)

// LifetimeWindow is how long an echo stays visible. Both the store cutoff and
// the countdown derive from it.
const LifetimeWindow = 48 * time.Hour

// Remaining returns the lifetime left for an echo created at createdAt, clamped to zero.
func Remaining(createdAt, now time.Time) time.Duration {
	diff := createdAt.Add(LifetimeWindow).Sub(now)
	if diff <= 0 {
		return 0
	}
	return diff
}

// Cutoff is the oldest creation time still excluded from the live feed.
// An echo is live iff its creation time is strictly after Cutoff(now).
func Cutoff(now time.Time) time.Time {
	return now.Add(-LifetimeWindow)
}

func IsLive(createdAt, now time.Time) bool {
	return createdAt.After(Cutoff(now))
}

// HoursLeft is the coarse countdown: whole hours remaining, rounded down.
func HoursLeft(createdAt, now time.Time) int {
	return int(Remaining(createdAt, now) / time.Hour)
}

func FormatHoursLeft(createdAt, now time.Time) string {
	return fmt.Sprintf("%dh left", HoursLeft(createdAt, now))
}

// FormatPrecise renders d as "HHh MMm SSs" using floor division of milliseconds.
func FormatPrecise(d time.Duration) string {
	if d <= 0 {
		return "00h 00m 00s"
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02dh %02dm %02ds", h, m, s)
}
