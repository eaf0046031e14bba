package tz

import (
	"errors"
	"testing"
	"time"
)

func TestTimezoneFromAddress_KnownZips(t *testing.T) {
	cases := []struct {
		address string
		want    string
	}{
		{"1315 10th St, Sacramento, CA 95814", "America/Los_Angeles"},
		{"1 Liberty Plaza, New York, NY 10006", "America/New_York"},
		{"233 S Wacker Dr, Chicago, IL 60606", "America/Chicago"},
		{"1700 Lincoln St, Denver, CO 80203", "America/Denver"},
		{"201 W Washington St, Phoenix, AZ 85003", "America/Phoenix"},
	}
	for _, tc := range cases {
		got, ok := TimezoneFromAddress(tc.address)
		if !ok {
			t.Errorf("TimezoneFromAddress(%q): no match, want %s", tc.address, tc.want)
			continue
		}
		if got != tc.want {
			t.Errorf("TimezoneFromAddress(%q) = %s, want %s", tc.address, got, tc.want)
		}
	}
}

func TestTimezoneFromAddress_LastRunWins(t *testing.T) {
	// Two 5-digit runs: the later one decides.
	got, ok := TimezoneFromAddress("Suite 10006, 95814 Sacramento")
	if !ok || got != "America/Los_Angeles" {
		t.Errorf("TimezoneFromAddress = %s, %v; want America/Los_Angeles, true", got, ok)
	}
}

func TestTimezoneFromAddress_NoZip(t *testing.T) {
	for _, address := range []string{
		"10 Downing Street, London",
		"Apt 123456, Somewhere",  // six digits is not a zip
		"PO Box 1234",            // four digits is not a zip
		"",
	} {
		if zone, ok := TimezoneFromAddress(address); ok {
			t.Errorf("TimezoneFromAddress(%q) = %s, want no match", address, zone)
		}
	}
}

func TestTimezoneFromAddress_ZipPlusFour(t *testing.T) {
	// "90210-1234" contains a 5-run then a 4-run; the 5-run is the zip.
	got, ok := TimezoneFromAddress("123 Rodeo Dr, Beverly Hills, CA 90210-1234")
	if !ok || got != "America/Los_Angeles" {
		t.Errorf("TimezoneFromAddress = %s, %v; want America/Los_Angeles, true", got, ok)
	}
}

func TestResolveInstant(t *testing.T) {
	got, err := ResolveInstant("January 15, 2025", "09:00", "America/New_York")
	if err != nil {
		t.Fatalf("ResolveInstant: %v", err)
	}
	loc, _ := time.LoadLocation("America/New_York")
	want := time.Date(2025, time.January, 15, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("ResolveInstant = %v, want %v", got, want)
	}
}

func TestResolveInstant_InvalidInputs(t *testing.T) {
	cases := []struct {
		date, clock, zone string
		want              error
	}{
		{"2025-01-15", "09:00", "America/New_York", ErrInvalidDate},
		{"January 15, 2025", "9am", "America/New_York", ErrInvalidDate},
		{"January 15, 2025", "09:00", "Mars/Olympus", ErrInvalidZone},
	}
	for _, tc := range cases {
		_, err := ResolveInstant(tc.date, tc.clock, tc.zone)
		if !errors.Is(err, tc.want) {
			t.Errorf("ResolveInstant(%q, %q, %q) error = %v, want %v",
				tc.date, tc.clock, tc.zone, err, tc.want)
		}
	}
}

func TestResolveInstant_SpringForwardGap(t *testing.T) {
	// 2:30 AM does not exist on March 9, 2025 in the US Eastern zone.
	_, err := ResolveInstant("March 9, 2025", "02:30", "America/New_York")
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ResolveInstant(gap) error = %v, want ErrInvalidDate", err)
	}

	// 1:59 AM still carries the pre-transition (EST, UTC-5) offset.
	got, err := ResolveInstant("March 9, 2025", "01:59", "America/New_York")
	if err != nil {
		t.Fatalf("ResolveInstant(01:59): %v", err)
	}
	if _, offset := got.Zone(); offset != -5*3600 {
		t.Errorf("ResolveInstant(01:59) offset = %d, want -18000 (EST)", offset)
	}
}

func TestResolveInstant_FallBackKeepsClock(t *testing.T) {
	// 1:30 AM happens twice on November 2, 2025; whichever occurrence is
	// chosen, the civil clock fields must be preserved.
	got, err := ResolveInstant("November 2, 2025", "01:30", "America/New_York")
	if err != nil {
		t.Fatalf("ResolveInstant(ambiguous): %v", err)
	}
	if got.Hour() != 1 || got.Minute() != 30 {
		t.Errorf("ResolveInstant(ambiguous) = %v, want 01:30 local", got)
	}
}
