// Package scheduler assigns a day's paratransit bookings to the smallest
// feasible fleet of shuttles.
//
// The algorithm is greedy and multi-pass:
//
//  1. Build one trip per booking (zone resolution + routed travel time).
//  2. Sort by pickup time and mark each multi-trip passenger's last leg.
//  3. Bucket by mobility class: stretcher, then wheelchair, then ambulatory.
//     Scarce stretcher-capable vehicles get first pick; later buckets reuse
//     vehicles created by earlier passes.
//  4. Within each bucket, scan existing vehicles for the best feasible fit,
//     creating a new vehicle only when none fits.
//
// The result is not optimal — it is a fast, deterministic heuristic.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/openparatransit/paraplan/internal/directions"
	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/pkg/tz"
)

// ErrNoRoute is returned when the provider finds no route between a
// booking's pickup and dropoff, which fails the whole request.
var ErrNoRoute = errors.New("no route between pickup and dropoff")

const clockLayout = "03:04 PM"

// Scheduler runs one scheduling pass. Each request (synchronous call or
// worker task) constructs its own inputs; the Scheduler itself holds only
// immutable collaborators and is safe to share.
type Scheduler struct {
	finder  directions.Finder
	margins Margins
}

// New creates a scheduler with the given routing lookup and default margins.
func New(finder directions.Finder, margins Margins) *Scheduler {
	return &Scheduler{finder: finder, margins: margins}
}

// Schedule produces a plan for the request and renders it into the response
// envelope.
func (s *Scheduler) Schedule(ctx context.Context, req *model.ScheduleRequest) (*model.ScheduleResponse, error) {
	m := s.requestMargins(req)

	trips, err := s.buildTrips(ctx, req)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].PickupTime.Before(trips[j].PickupTime)
	})
	markLastLegs(trips)

	vehicles, err := s.assign(ctx, bucketByMobility(trips), m)
	if err != nil {
		return nil, err
	}

	if req.Debug {
		for _, v := range vehicles {
			log.Printf("[scheduler] vehicle %s serves %d trip(s)", v.Name(), len(v.Trips))
		}
	}

	return render(vehicles), nil
}

// requestMargins applies the request's per-call second-valued overrides on
// top of the configured defaults.
func (s *Scheduler) requestMargins(req *model.ScheduleRequest) Margins {
	m := s.margins
	if req.BeforePickupTime != nil {
		m.BeforePickup = time.Duration(*req.BeforePickupTime) * time.Second
	}
	if req.AfterPickupTime != nil {
		m.AfterPickup = time.Duration(*req.AfterPickupTime) * time.Second
	}
	if req.DropoffUnloadingTime != nil {
		m.DropoffUnloading = time.Duration(*req.DropoffUnloadingTime) * time.Second
	}
	return m
}

// buildTrips converts each booking to a trip in input order, resolving its
// zone and routing its pickup→dropoff leg. Routing results are written back
// onto the booking for the response.
func (s *Scheduler) buildTrips(ctx context.Context, req *model.ScheduleRequest) ([]*Trip, error) {
	trips := make([]*Trip, 0, len(req.Bookings))

	for _, b := range req.Bookings {
		zone, ok := tz.TimezoneFromAddress(b.PickupAddress)
		if !ok {
			zone = b.ProgramTimezone
		}

		pickupAt, err := tz.ResolveInstant(req.Date, b.PickupTime, zone)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.BookingID, err)
		}

		route, err := s.finder.GetDirection(ctx, b.PickupAddress, b.DropoffAddress, pickupAt)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.BookingID, err)
		}
		if route == nil {
			return nil, fmt.Errorf("booking %s: %w", b.BookingID, ErrNoRoute)
		}

		b.TravelDistance = route.DistanceMeters
		b.TravelTime = route.DurationSeconds

		trips = append(trips, &Trip{
			Booking:         b,
			PickupAddress:   b.PickupAddress,
			DropoffAddress:  b.DropoffAddress,
			Passenger:       b.PassengerKey(),
			Assistance:      model.ParseAssistance(b.MobilityAssistance),
			Timezone:        zone,
			PickupTime:      pickupAt,
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: route.DurationSeconds,
		})
	}
	return trips, nil
}

// markLastLegs flags, for every passenger with two or more trips in the day,
// the trip with the latest pickup time. trips must already be sorted by
// pickup time ascending, so the last occurrence per passenger is the latest.
func markLastLegs(trips []*Trip) {
	last := make(map[string]*Trip, len(trips))
	count := make(map[string]int, len(trips))
	for _, t := range trips {
		last[t.Passenger] = t
		count[t.Passenger]++
	}
	for passenger, t := range last {
		if count[passenger] >= 2 {
			t.IsLast = true
		}
	}
}

// bucketByMobility splits trips into the three scheduling passes, keeping
// the pickup-time order within each bucket.
func bucketByMobility(trips []*Trip) [3][]*Trip {
	var buckets [3][]*Trip
	for _, t := range trips {
		switch {
		case t.Assistance.Has(model.AssistStretcher):
			buckets[0] = append(buckets[0], t)
		case t.Assistance.Has(model.AssistWheelchair):
			buckets[1] = append(buckets[1], t)
		default:
			buckets[2] = append(buckets[2], t)
		}
	}
	return buckets
}

// assign places every trip on a vehicle, bucket by bucket. For each trip it
// scans all vehicles in creation order, keeps the best feasible arrival per
// the dual selection policy, and falls back to a fresh vehicle.
func (s *Scheduler) assign(ctx context.Context, buckets [3][]*Trip, m Margins) ([]*Vehicle, error) {
	var vehicles []*Vehicle

	for _, bucket := range buckets {
		for _, t := range bucket {
			var best *Vehicle
			var bestArrival time.Time

			for _, v := range vehicles {
				arrival, ok, err := v.Fit(ctx, t, s.finder, m)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if best == nil || isBetter(arrival, bestArrival, t, m) {
					best = v
					bestArrival = arrival
				}
			}

			if best == nil {
				v := NewVehicle(len(vehicles) + 1)
				t.EarliestArrivalTime = t.EarliestPickupTime(m)
				t.AdjustedPickupTime = t.PickupTime
				v.AddTrip(t)
				vehicles = append(vehicles, v)
				continue
			}

			t.EarliestArrivalTime = bestArrival
			t.AdjustedPickupTime = laterOf(bestArrival, t.PickupTime)
			best.AddTrip(t)
		}
	}
	return vehicles, nil
}

// isBetter decides whether an incoming feasible arrival beats the current
// best for trip t.
//
// The policy is intentionally two-faced: while the current best arrival is
// comfortably within the window, a LATER arrival wins (less driver idle
// wait); once the current best is already marginal, an EARLIER arrival wins
// (better on-time odds). "Marginal" means past the requested pickup on a
// last leg, or past the early window start on an outgoing leg.
func isBetter(incoming, current time.Time, t *Trip, m Margins) bool {
	if t.IsLast {
		if current.After(t.PickupTime) {
			return incoming.Before(current)
		}
		return incoming.After(current)
	}
	early := t.PickupTime.Add(-m.BeforePickup)
	if current.After(early) {
		return incoming.Before(current)
	}
	return incoming.After(current)
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// render assembles the response envelope: one VehicleTrip per vehicle, one
// TripEntry per assigned trip, with scheduled times formatted on the
// 12-hour clock in the trip's own zone.
func render(vehicles []*Vehicle) *model.ScheduleResponse {
	list := make([]model.VehicleTrip, 0, len(vehicles))

	for _, v := range vehicles {
		entries := make([]model.TripEntry, 0, len(v.Trips))
		for _, t := range v.Trips {
			loc, err := time.LoadLocation(t.Timezone)
			if err != nil {
				loc = time.UTC
			}

			pickup := t.AdjustedPickupTime.In(loc).Format(clockLayout)
			dropoff := t.DropoffTime().In(loc).Format(clockLayout)

			b := t.Booking
			b.ScheduledPickupTime = &pickup
			b.ScheduledDropoffTime = &dropoff
			b.ActualPickupTime = nil
			b.ActualDropoffTime = nil
			b.DriverArrivalTime = nil
			b.DriverArrivalLat = nil
			b.DriverArrivalLon = nil

			entries = append(entries, model.TripEntry{
				ProgramID:       b.ProgramID,
				ProgramName:     b.ProgramName,
				ProgramTimezone: t.Timezone,
				FirstPickupTime: pickup,
				LastDropoffTime: dropoff,
				FirstPickupLat:  b.PickupLatitude,
				FirstPickupLon:  b.PickupLongitude,
				LastDropoffLat:  b.DropoffLatitude,
				LastDropoffLon:  b.DropoffLongitude,
				Bookings:        []*model.Booking{b},
			})
		}

		list = append(list, model.VehicleTrip{
			ShuttleName: v.Name(),
			Trips:       entries,
		})
	}

	return &model.ScheduleResponse{
		Result: model.Result{
			Status:    "success",
			ErrorCode: 0,
			Message:   "",
			Data:      model.ResultData{VehicleTripList: list},
		},
	}
}
