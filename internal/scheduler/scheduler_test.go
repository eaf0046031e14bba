package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openparatransit/paraplan/internal/model"
)

// fakeFinder serves routes from a fixed table keyed "from|to". A missing pair
// means the provider found no route; failOn simulates provider outages.
type fakeFinder struct {
	routes map[string]model.Route
	failOn map[string]error
	calls  int
}

func (f *fakeFinder) GetDirection(_ context.Context, from, to string, _ time.Time) (*model.Route, error) {
	f.calls++
	key := from + "|" + to
	if err, ok := f.failOn[key]; ok {
		return nil, err
	}
	r, ok := f.routes[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

var defaultMargins = Margins{
	BeforePickup:     10 * time.Minute,
	AfterPickup:      15 * time.Minute,
	DropoffUnloading: 5 * time.Minute,
}

// All test addresses carry a Manhattan zip so they resolve to Eastern time.
const (
	addrHome   = "12 Oak St, New York, NY 10006"
	addrClinic = "300 Park Ave, New York, NY 10006"
	addrMall   = "77 Pine St, New York, NY 10006"
	addrGym    = "5 River Rd, New York, NY 10006"
)

const testDate = "January 15, 2025"

func booking(id, passenger, from, to, pickup string, assist ...string) *model.Booking {
	return &model.Booking{
		BookingID:          id,
		PassengerID:        passenger,
		PickupAddress:      from,
		DropoffAddress:     to,
		PickupTime:         pickup,
		MobilityAssistance: assist,
	}
}

func eastern(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func at(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2025, time.January, 15, hour, min, 0, 0, eastern(t))
}

func shuttleNames(resp *model.ScheduleResponse) []string {
	names := make([]string, 0, len(resp.Result.Data.VehicleTripList))
	for _, v := range resp.Result.Data.VehicleTripList {
		names = append(names, v.ShuttleName)
	}
	return names
}

func TestSchedule_SingleBooking(t *testing.T) {
	finder := &fakeFinder{routes: map[string]model.Route{
		addrHome + "|" + addrClinic: {DistanceMeters: 8000, DurationSeconds: 900},
	}}
	s := New(finder, defaultMargins)

	b := booking("b1", "p1", addrHome, addrClinic, "09:00")
	resp, err := s.Schedule(context.Background(), &model.ScheduleRequest{
		Date:     testDate,
		Bookings: []*model.Booking{b},
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	list := resp.Result.Data.VehicleTripList
	if len(list) != 1 {
		t.Fatalf("vehicles = %d, want 1", len(list))
	}
	if list[0].ShuttleName != "1AMBI" {
		t.Errorf("shuttle name = %q, want 1AMBI", list[0].ShuttleName)
	}
	if len(list[0].Trips) != 1 {
		t.Fatalf("trips = %d, want 1", len(list[0].Trips))
	}

	entry := list[0].Trips[0]
	if entry.FirstPickupTime != "09:00 AM" {
		t.Errorf("first pickup = %q, want 09:00 AM", entry.FirstPickupTime)
	}
	if entry.LastDropoffTime != "09:15 AM" {
		t.Errorf("last dropoff = %q, want 09:15 AM", entry.LastDropoffTime)
	}

	if b.TravelDistance != 8000 || b.TravelTime != 900 {
		t.Errorf("travel write-back = (%d, %d), want (8000, 900)", b.TravelDistance, b.TravelTime)
	}
	if b.ScheduledPickupTime == nil || *b.ScheduledPickupTime != "09:00 AM" {
		t.Errorf("scheduled pickup = %v, want 09:00 AM", b.ScheduledPickupTime)
	}
	if b.ActualPickupTime != nil || b.DriverArrivalTime != nil {
		t.Error("actual/driver fields must stay null in a plan")
	}
	if resp.Result.Status != "success" || resp.Result.ErrorCode != 0 {
		t.Errorf("result envelope = %q/%d, want success/0", resp.Result.Status, resp.Result.ErrorCode)
	}
}

func TestSchedule_ChainsOntoSameVehicle(t *testing.T) {
	finder := &fakeFinder{routes: map[string]model.Route{
		addrHome + "|" + addrClinic: {DistanceMeters: 8000, DurationSeconds: 900},
		addrMall + "|" + addrGym:    {DistanceMeters: 5000, DurationSeconds: 600},
		addrClinic + "|" + addrMall: {DistanceMeters: 3000, DurationSeconds: 300},
	}}
	s := New(finder, defaultMargins)

	before, unloading := 300, 120 // tighter than the defaults
	resp, err := s.Schedule(context.Background(), &model.ScheduleRequest{
		Date:                 testDate,
		BeforePickupTime:     &before,
		DropoffUnloadingTime: &unloading,
		Bookings: []*model.Booking{
			booking("b1", "p1", addrHome, addrClinic, "09:00"),
			booking("b2", "p2", addrMall, addrGym, "09:30"),
		},
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	list := resp.Result.Data.VehicleTripList
	if len(list) != 1 {
		t.Fatalf("vehicles = %d, want 1 (second trip chains after the first)", len(list))
	}
	if len(list[0].Trips) != 2 {
		t.Fatalf("trips = %d, want 2", len(list[0].Trips))
	}

	// Finishes the first trip 09:17, repositions in 5 min, waits for 09:30.
	second := list[0].Trips[1]
	if second.FirstPickupTime != "09:30 AM" {
		t.Errorf("second pickup = %q, want 09:30 AM", second.FirstPickupTime)
	}
	if second.LastDropoffTime != "09:40 AM" {
		t.Errorf("second dropoff = %q, want 09:40 AM", second.LastDropoffTime)
	}
}

func TestSchedule_SpawnsSecondVehicleWhenInfeasible(t *testing.T) {
	finder := &fakeFinder{routes: map[string]model.Route{
		addrHome + "|" + addrClinic: {DistanceMeters: 8000, DurationSeconds: 900},
		addrMall + "|" + addrGym:    {DistanceMeters: 5000, DurationSeconds: 600},
		addrClinic + "|" + addrMall: {DistanceMeters: 3000, DurationSeconds: 300},
	}}
	s := New(finder, defaultMargins)

	// First vehicle is busy until 09:20; a 09:10 pickup cannot wait.
	resp, err := s.Schedule(context.Background(), &model.ScheduleRequest{
		Date: testDate,
		Bookings: []*model.Booking{
			booking("b1", "p1", addrHome, addrClinic, "09:00"),
			booking("b2", "p2", addrMall, addrGym, "09:10"),
		},
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	names := shuttleNames(resp)
	if len(names) != 2 || names[0] != "1AMBI" || names[1] != "2AMBI" {
		t.Errorf("shuttles = %v, want [1AMBI 2AMBI]", names)
	}
}

func TestSchedule_MobilityPriorityOrdersVehicles(t *testing.T) {
	finder := &fakeFinder{routes: map[string]model.Route{
		addrHome + "|" + addrClinic: {DistanceMeters: 8000, DurationSeconds: 900},
		addrMall + "|" + addrGym:    {DistanceMeters: 5000, DurationSeconds: 600},
		addrGym + "|" + addrHome:    {DistanceMeters: 4000, DurationSeconds: 480},
	}}
	s := New(finder, defaultMargins)

	// Input order is ambulatory, wheelchair, stretcher; simultaneous pickups
	// force one vehicle each. The stretcher pass runs first, so it owns
	// vehicle 1 regardless of input order.
	resp, err := s.Schedule(context.Background(), &model.ScheduleRequest{
		Date: testDate,
		Bookings: []*model.Booking{
			booking("b1", "p1", addrHome, addrClinic, "09:00"),
			booking("b2", "p2", addrMall, addrGym, "09:00", "wheelchair"),
			booking("b3", "p3", addrGym, addrHome, "09:00", "stretcher"),
		},
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	names := shuttleNames(resp)
	want := []string{"1GURAMBI", "2WC", "3AMBI"}
	if len(names) != 3 {
		t.Fatalf("shuttles = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("shuttle[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestSchedule_NoRouteFailsRequest(t *testing.T) {
	finder := &fakeFinder{routes: map[string]model.Route{}}
	s := New(finder, defaultMargins)

	_, err := s.Schedule(context.Background(), &model.ScheduleRequest{
		Date:     testDate,
		Bookings: []*model.Booking{booking("b1", "p1", addrHome, addrClinic, "09:00")},
	})
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("error = %v, want ErrNoRoute", err)
	}
}

func TestMarkLastLegs(t *testing.T) {
	morning := &Trip{Passenger: "p1", PickupTime: time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)}
	evening := &Trip{Passenger: "p1", PickupTime: time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC)}
	single := &Trip{Passenger: "p2", PickupTime: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}

	markLastLegs([]*Trip{morning, single, evening}) // already pickup-sorted

	if morning.IsLast {
		t.Error("morning leg marked last, want unmarked")
	}
	if !evening.IsLast {
		t.Error("evening leg not marked last")
	}
	if single.IsLast {
		t.Error("single-trip passenger marked last, want unmarked")
	}
}

func TestTripTimingContract(t *testing.T) {
	pickup := at(t, 9, 0)
	trip := &Trip{PickupTime: pickup, DurationSeconds: 900}

	if got := trip.LatestPickupTime(defaultMargins); !got.Equal(pickup) {
		t.Errorf("LatestPickupTime = %v, want the requested time", got)
	}
	if got := trip.EarliestPickupTime(defaultMargins); !got.Equal(pickup.Add(-10 * time.Minute)) {
		t.Errorf("EarliestPickupTime = %v, want pickup-10m", got)
	}

	trip.IsLast = true
	if got := trip.LatestPickupTime(defaultMargins); !got.Equal(pickup.Add(15 * time.Minute)) {
		t.Errorf("last-leg LatestPickupTime = %v, want pickup+15m", got)
	}
	if got := trip.EarliestPickupTime(defaultMargins); !got.Equal(pickup) {
		t.Errorf("last-leg EarliestPickupTime = %v, want the requested time", got)
	}

	if got := trip.DropoffTime(); !got.Equal(pickup.Add(15 * time.Minute)) {
		t.Errorf("unassigned DropoffTime = %v, want pickup+duration", got)
	}
	trip.AdjustedPickupTime = pickup.Add(5 * time.Minute)
	if got := trip.DropoffTime(); !got.Equal(pickup.Add(20 * time.Minute)) {
		t.Errorf("adjusted DropoffTime = %v, want adjusted+duration", got)
	}
	if got := trip.FinishTime(defaultMargins); !got.Equal(pickup.Add(25 * time.Minute)) {
		t.Errorf("FinishTime = %v, want dropoff+unloading", got)
	}
}

func TestVehicleFit(t *testing.T) {
	ctx := context.Background()
	finder := &fakeFinder{routes: map[string]model.Route{
		addrClinic + "|" + addrMall: {DistanceMeters: 3000, DurationSeconds: 300},
	}}

	served := &Trip{
		DropoffAddress:     addrClinic,
		PickupTime:         at(t, 9, 0),
		AdjustedPickupTime: at(t, 9, 0),
		DurationSeconds:    900, // busy until 09:20 with unloading
	}
	v := NewVehicle(1)
	v.AddTrip(served)

	t.Run("too late", func(t *testing.T) {
		next := &Trip{PickupAddress: addrMall, PickupTime: at(t, 9, 10)}
		if _, ok, err := v.Fit(ctx, next, finder, defaultMargins); ok || err != nil {
			t.Errorf("Fit = ok=%v err=%v, want infeasible", ok, err)
		}
	})

	t.Run("same address skips routing", func(t *testing.T) {
		before := finder.calls
		next := &Trip{PickupAddress: addrClinic, PickupTime: at(t, 9, 30)}
		arrival, ok, err := v.Fit(ctx, next, finder, defaultMargins)
		if err != nil || !ok {
			t.Fatalf("Fit = ok=%v err=%v, want feasible", ok, err)
		}
		if !arrival.Equal(at(t, 9, 20)) {
			t.Errorf("arrival = %v, want the finish time 09:20", arrival)
		}
		if finder.calls != before {
			t.Error("routing called for a same-address handoff")
		}
	})

	t.Run("repositions", func(t *testing.T) {
		next := &Trip{PickupAddress: addrMall, PickupTime: at(t, 9, 30)}
		arrival, ok, err := v.Fit(ctx, next, finder, defaultMargins)
		if err != nil || !ok {
			t.Fatalf("Fit = ok=%v err=%v, want feasible", ok, err)
		}
		if !arrival.Equal(at(t, 9, 25)) {
			t.Errorf("arrival = %v, want finish+reposition 09:25", arrival)
		}
	})

	t.Run("no reposition route skips vehicle", func(t *testing.T) {
		next := &Trip{PickupAddress: addrGym, PickupTime: at(t, 9, 30)}
		if _, ok, err := v.Fit(ctx, next, finder, defaultMargins); ok || err != nil {
			t.Errorf("Fit = ok=%v err=%v, want skip without error", ok, err)
		}
	})

	t.Run("provider failure aborts", func(t *testing.T) {
		outage := errors.New("provider down")
		failing := &fakeFinder{failOn: map[string]error{
			addrClinic + "|" + addrMall: outage,
		}}
		next := &Trip{PickupAddress: addrMall, PickupTime: at(t, 9, 30)}
		if _, _, err := v.Fit(ctx, next, failing, defaultMargins); !errors.Is(err, outage) {
			t.Errorf("Fit error = %v, want the provider failure", err)
		}
	})
}

func TestIsBetter(t *testing.T) {
	pickup := at(t, 10, 0)
	outgoing := &Trip{PickupTime: pickup}
	lastLeg := &Trip{PickupTime: pickup, IsLast: true}

	cases := []struct {
		name              string
		trip              *Trip
		incoming, current time.Time
		want              bool
	}{
		{"outgoing comfortable, later wins", outgoing, at(t, 9, 48), at(t, 9, 45), true},
		{"outgoing comfortable, earlier loses", outgoing, at(t, 9, 40), at(t, 9, 45), false},
		{"outgoing marginal, earlier wins", outgoing, at(t, 9, 52), at(t, 9, 55), true},
		{"outgoing marginal, later loses", outgoing, at(t, 9, 57), at(t, 9, 55), false},
		{"last leg on time, later wins", lastLeg, at(t, 9, 59), at(t, 9, 58), true},
		{"last leg overdue, earlier wins", lastLeg, at(t, 10, 2), at(t, 10, 5), true},
		{"last leg overdue, later loses", lastLeg, at(t, 10, 8), at(t, 10, 5), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBetter(tc.incoming, tc.current, tc.trip, defaultMargins); got != tc.want {
				t.Errorf("isBetter(%v, %v) = %v, want %v",
					tc.incoming.Format("15:04"), tc.current.Format("15:04"), got, tc.want)
			}
		})
	}
}
