package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/openparatransit/paraplan/internal/directions"
	"github.com/openparatransit/paraplan/internal/model"
)

// Vehicle is an ordered sequence of trips served by one hypothetical
// shuttle. Trips are appended in assignment order; the fit check keeps every
// consecutive pair reachable within its timing window.
type Vehicle struct {
	// Index is 1-based and reflects creation order; it prefixes the
	// synthetic shuttle name.
	Index int

	Trips []*Trip
}

// NewVehicle creates an empty vehicle with the given 1-based index.
func NewVehicle(index int) *Vehicle {
	return &Vehicle{Index: index}
}

// LastTrip returns the most recently assigned trip, or nil for an empty
// vehicle.
func (v *Vehicle) LastTrip() *Trip {
	if len(v.Trips) == 0 {
		return nil
	}
	return v.Trips[len(v.Trips)-1]
}

// AddTrip appends t to the vehicle's route.
func (v *Vehicle) AddTrip(t *Trip) {
	v.Trips = append(v.Trips, t)
}

// Fit checks whether the vehicle can serve t after its current last trip and
// returns the estimated arrival at t's pickup.
//
// ok=false means the vehicle cannot make it: it finishes too late, or no
// route exists for the reposition leg (the vehicle is skipped, not the
// request). A provider failure is returned as an error and aborts the run.
func (v *Vehicle) Fit(ctx context.Context, t *Trip, finder directions.Finder, m Margins) (time.Time, bool, error) {
	last := v.LastTrip()
	finish := last.FinishTime(m)
	latest := t.LatestPickupTime(m)

	if finish.After(latest) {
		return time.Time{}, false, nil
	}

	if last.DropoffAddress == t.PickupAddress {
		return finish, true, nil
	}

	route, err := finder.GetDirection(ctx, last.DropoffAddress, t.PickupAddress, finish)
	if err != nil {
		return time.Time{}, false, err
	}
	if route == nil {
		return time.Time{}, false, nil
	}

	arrival := finish.Add(time.Duration(route.DurationSeconds) * time.Second)
	if arrival.After(latest) {
		return time.Time{}, false, nil
	}
	return arrival, true, nil
}

// Assistance returns the union of capability requirements across the
// vehicle's trips.
func (v *Vehicle) Assistance() model.Assistance {
	var a model.Assistance
	for _, t := range v.Trips {
		a |= t.Assistance
	}
	return a
}

// Name renders the synthetic shuttle name: the vehicle index followed by the
// capability code of its combined assistance requirements, e.g. "1AMBI",
// "2GURWC".
func (v *Vehicle) Name() string {
	return strconv.Itoa(v.Index) + v.Assistance().Code()
}
