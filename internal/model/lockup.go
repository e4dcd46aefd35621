package model

import (
	"fmt"
	"time"
)

// LockupPeriod is a position lockup duration in whole seconds.
type LockupPeriod uint64

const secondsPerMonth = 2_630_016

func LockupFromSeconds(seconds uint64) LockupPeriod { return LockupPeriod(seconds) }
func LockupFromMinutes(minutes uint64) LockupPeriod { return LockupPeriod(minutes * 60) }
func LockupFromHours(hours uint64) LockupPeriod     { return LockupPeriod(hours * 3600) }
func LockupFromDays(days uint64) LockupPeriod       { return LockupPeriod(days * 86_400) }
func LockupFromWeeks(weeks uint64) LockupPeriod     { return LockupPeriod(weeks * 604_800) }
func LockupFromMonths(months uint64) LockupPeriod {
	return LockupPeriod(months * secondsPerMonth)
}

func (l LockupPeriod) Seconds() uint64 { return uint64(l) }

func (l LockupPeriod) Duration() time.Duration {
	return time.Duration(l) * time.Second
}

// MaturityFrom returns the time a position opened at opened may be closed.
func (l LockupPeriod) MaturityFrom(opened time.Time) time.Time {
	return opened.Add(l.Duration())
}

// ParseLockupPeriod accepts a Go duration ("720h") or a count with a
// month suffix ("6mo").
func ParseLockupPeriod(input string) (LockupPeriod, error) {
	var months uint64
	if n, err := fmt.Sscanf(input, "%dmo", &months); err == nil && n == 1 && fmt.Sprintf("%dmo", months) == input {
		return LockupFromMonths(months), nil
	}
	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("parse lockup period %q: %w", input, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("lockup period must not be negative")
	}
	return LockupPeriod(d / time.Second), nil
}

func (l LockupPeriod) String() string {
	if l != 0 && l%secondsPerMonth == 0 {
		return fmt.Sprintf("%dmo", l/secondsPerMonth)
	}
	return l.Duration().String()
}
