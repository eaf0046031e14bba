package scheduler

import (
	"time"

	"github.com/openparatransit/paraplan/internal/model"
)

// Margins are the timing tolerances applied when fitting trips onto
// shuttles. They travel with each scheduling run (request overrides or
// configuration defaults) so concurrent runs never share mutable state.
type Margins struct {
	// BeforePickup is how early a driver must be able to arrive for an
	// outgoing trip.
	BeforePickup time.Duration

	// AfterPickup is how late a driver may arrive on a passenger's last
	// leg of the day.
	AfterPickup time.Duration

	// DropoffUnloading is the fixed unloading time added after drop-off.
	DropoffUnloading time.Duration
}

// Trip is the scheduler-internal view of one booking: absolute instants,
// routing results, and mobility flags. Exactly one Trip exists per booking.
// Only the scheduler mutates it (IsLast and the adjusted times).
type Trip struct {
	Booking *model.Booking

	PickupAddress  string
	DropoffAddress string

	// Passenger is the passenger id when present, else the full name.
	Passenger string

	Assistance model.Assistance

	// Timezone is the zip-derived zone when resolvable, else the booking's
	// program time zone.
	Timezone string

	// PickupTime is the absolute instant of the requested pickup.
	PickupTime time.Time

	DistanceMeters  int
	DurationSeconds int

	// IsLast marks the latest trip of a passenger with several trips in the
	// day; only such a "return" leg earns the late-arrival tolerance.
	IsLast bool

	// Filled during assignment.
	AdjustedPickupTime  time.Time
	EarliestArrivalTime time.Time
}

// LatestPickupTime is the hard deadline for the shuttle's arrival: the
// requested time, extended by the after-pickup window on a last leg.
func (t *Trip) LatestPickupTime(m Margins) time.Time {
	if t.IsLast {
		return t.PickupTime.Add(m.AfterPickup)
	}
	return t.PickupTime
}

// EarliestPickupTime is the earliest acceptable arrival: the requested time
// on a last leg, else the requested time minus the before-pickup window.
func (t *Trip) EarliestPickupTime(m Margins) time.Time {
	if t.IsLast {
		return t.PickupTime
	}
	return t.PickupTime.Add(-m.BeforePickup)
}

// DropoffTime is when the passenger reaches the destination: the adjusted
// pickup (or the requested one while unassigned) plus the routed duration.
func (t *Trip) DropoffTime() time.Time {
	start := t.PickupTime
	if !t.AdjustedPickupTime.IsZero() {
		start = t.AdjustedPickupTime
	}
	return start.Add(time.Duration(t.DurationSeconds) * time.Second)
}

// FinishTime is when the shuttle becomes free again after unloading.
func (t *Trip) FinishTime(m Margins) time.Time {
	return t.DropoffTime().Add(m.DropoffUnloading)
}
