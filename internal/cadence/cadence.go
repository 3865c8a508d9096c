// Package cadence computes when a recurring check-in schedule fires next.
// All arithmetic happens in the schedule's own IANA timezone so that a
// "09:00 every weekday" schedule keeps meaning 09:00 on the wall clock
// through DST changes.
package cadence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the recurrence rule of a schedule.
type Kind string

const (
	KindDaily    Kind = "daily"
	KindWeekdays Kind = "weekdays"
	KindWeekends Kind = "weekends"
	KindCustom   Kind = "custom"
)

// Mask is a 7-bit weekday set. Bit 0 is Sunday, matching time.Weekday.
type Mask uint8

const (
	maskEveryDay Mask = 0x7F
	maskWeekdays Mask = 0x3E // Mon..Fri
	maskWeekends Mask = 0x41 // Sun + Sat
)

var (
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM between 00:00 and 23:59")
	ErrInvalidCadence   = errors.New("cadence has no enabled weekdays")
	ErrInvalidTimezone  = errors.New("unknown IANA timezone")
)

// Has reports whether the given weekday is enabled in the mask.
func (m Mask) Has(d time.Weekday) bool {
	return m&(1<<uint(d)) != 0
}

// Days returns the enabled weekdays in Sunday-first order.
func (m Mask) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if m.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// ValidKind reports whether k is one of the defined cadence kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindDaily, KindWeekdays, KindWeekends, KindCustom:
		return true
	}
	return false
}

// MinuteOfDay parses an "HH:MM" wall-clock string into minutes since midnight.
func MinuteOfDay(hhmm string) (int, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, hhmm)
	}
	return h*60 + m, nil
}

// FormatMinute renders a minute-of-day back to "HH:MM".
func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// MaskFor resolves a cadence kind (plus an explicit day list for custom
// cadences) to a weekday mask. An empty or unknown custom list is a
// validation error, never a silent fallback to daily.
func MaskFor(kind Kind, custom []time.Weekday) (Mask, error) {
	switch kind {
	case KindDaily:
		return maskEveryDay, nil
	case KindWeekdays:
		return maskWeekdays, nil
	case KindWeekends:
		return maskWeekends, nil
	case KindCustom:
		var m Mask
		for _, d := range custom {
			if d < time.Sunday || d > time.Saturday {
				return 0, fmt.Errorf("%w: weekday %d out of range", ErrInvalidCadence, d)
			}
			m |= 1 << uint(d)
		}
		if m == 0 {
			return 0, fmt.Errorf("%w: custom cadence needs at least one day", ErrInvalidCadence)
		}
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidCadence, kind)
	}
}

// ValidateTimezone checks that tz names a loadable IANA location. Schedules
// are validated on write so a bad zone can never reach the tick loop.
func ValidateTimezone(tz string) error {
	// LoadLocation maps "" to UTC; an empty zone on a schedule is a bug.
	if tz == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return nil
}

// NextRunUTC returns the earliest UTC instant strictly after `after` whose
// local representation in `tz` lands exactly on minuteOfDay and on an
// enabled weekday.
//
// The search walks forward day by day in the target timezone, capped at 8
// days (with at least one weekday enabled a hit is guaranteed within 7).
// A wall-clock time swallowed by a DST spring-forward gap skips to the next
// eligible day rather than firing at an adjacent time. A wall-clock time
// that occurs twice on a fall-back day resolves to the earlier instant.
func NextRunUTC(minuteOfDay int, mask Mask, tz string, after time.Time) (time.Time, error) {
	if minuteOfDay < 0 || minuteOfDay > 1439 {
		return time.Time{}, fmt.Errorf("%w: minute %d", ErrInvalidTimeOfDay, minuteOfDay)
	}
	if mask == 0 {
		return time.Time{}, ErrInvalidCadence
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}

	// Walking one day past a full week covers the case where the only
	// enabled weekday is swallowed by a spring-forward gap.
	local := after.In(loc)
	for i := 0; i <= 8; i++ {
		day := local.AddDate(0, 0, i)
		cand := time.Date(day.Year(), day.Month(), day.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, loc)

		// time.Date normalizes instants inside a spring-forward gap to an
		// adjacent hour; if the wall clock moved, the time does not exist
		// on this day.
		if cand.Hour()*60+cand.Minute() != minuteOfDay {
			continue
		}

		// On fall-back days the same wall clock names two instants. Go may
		// resolve either; probing one hour earlier finds the first one.
		if prev := cand.Add(-time.Hour); sameLocalClock(prev.In(loc), cand) {
			cand = prev
		}

		if !mask.Has(cand.In(loc).Weekday()) {
			continue
		}
		if !cand.After(after) {
			continue
		}
		return cand.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: no eligible day within the search window", ErrInvalidCadence)
}

func sameLocalClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}
