// Package tz resolves booking times to absolute instants.
//
// Pickup times arrive as a calendar date ("Month Day, Year") plus a local
// time-of-day ("HH:MM"); the zone comes from the pickup address zip code when
// it falls in a known range, otherwise from the booking's program time zone.
package tz

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDate is returned for unparseable dates or times, and for
	// civil times that do not exist (spring-forward gap).
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidZone is returned for unknown IANA zone identifiers.
	ErrInvalidZone = errors.New("invalid time zone")
)

const (
	dateLayout  = "January 2, 2006"
	clockLayout = "15:04"
)

// TimezoneFromAddress extracts the last 5-digit run from a free-form address
// and maps it to an IANA zone via the static zip-range table. The second
// return value is false when no 5-digit run matches a known range.
func TimezoneFromAddress(address string) (string, bool) {
	zip, ok := lastZip(address)
	if !ok {
		return "", false
	}
	for _, r := range zipZones {
		if zip >= r.lo && zip <= r.hi {
			return r.zone, true
		}
	}
	return "", false
}

// lastZip returns the numeric value of the last run of exactly five
// consecutive digits in s.
func lastZip(s string) (int, bool) {
	best := -1
	run, val := 0, 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			run++
			val = val*10 + int(s[i]-'0')
			continue
		}
		if run == 5 {
			best = val
		}
		run, val = 0, 0
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// ResolveInstant combines a date string, an "HH:MM" time-of-day, and an IANA
// zone id into an absolute instant.
//
// DST policy: during fall-back the first occurrence of the repeated hour is
// chosen; nonexistent spring-forward times fail with ErrInvalidDate. The
// latter is detected by round-tripping the constructed instant back to civil
// time: time.Date normalizes times in the gap, shifting the clock fields.
func ResolveInstant(date, timeOfDay, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidZone, zone)
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	clock, err := time.Parse(clockLayout, timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: pickup time %q", ErrInvalidDate, timeOfDay)
	}

	t := time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc)
	if t.Hour() != clock.Hour() || t.Minute() != clock.Minute() {
		return time.Time{}, fmt.Errorf("%w: %s %s does not exist in %s",
			ErrInvalidDate, date, timeOfDay, zone)
	}
	return t, nil
}
