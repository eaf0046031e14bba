// Package model contains domain models for the paratransit auto-scheduling system.
// Bookings arrive as JSON from dispatch web apps; the scheduler fills in the
// scheduled_* fields and returns them grouped by shuttle.
package model

import "strings"

// ─── Mobility assistance ────────────────────────────────────

// Assistance is a bitmask of mobility-assistance requirements for a booking.
type Assistance uint8

const (
	AssistAmbulatory Assistance = 1
	AssistWheelchair Assistance = 2
	AssistStretcher  Assistance = 16
)

// ParseAssistance folds a booking's textual assistance tags into a bitmask.
// Tags are matched case-insensitively; unknown tags count as ambulatory, and
// an empty list defaults to ambulatory so the mask is never zero.
func ParseAssistance(tags []string) Assistance {
	var a Assistance
	for _, tag := range tags {
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case "wheelchair":
			a |= AssistWheelchair
		case "stretcher":
			a |= AssistStretcher
		default:
			a |= AssistAmbulatory
		}
	}
	if a == 0 {
		a = AssistAmbulatory
	}
	return a
}

// Has reports whether the mask includes the given capability.
func (a Assistance) Has(c Assistance) bool {
	return a&c != 0
}

// Code renders the capability code used in synthetic shuttle names:
// "GUR" when a gurney/stretcher is required, then "WC" for wheelchair or
// "AMBI" otherwise.
func (a Assistance) Code() string {
	var b strings.Builder
	if a.Has(AssistStretcher) {
		b.WriteString("GUR")
	}
	if a.Has(AssistWheelchair) {
		b.WriteString("WC")
	} else {
		b.WriteString("AMBI")
	}
	return b.String()
}

// ─── Task lifecycle ─────────────────────────────────────────

// TaskStatus is the lifecycle state of an asynchronous scheduling task.
// Transitions are monotonic: PENDING → PROCESSING → COMPLETED or FAILED.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// ─── Routing ────────────────────────────────────────────────

// Route is the distance/duration pair returned by the directions provider
// for one origin→destination leg. It is also the value type stored in the
// directions cache.
type Route struct {
	DistanceMeters  int `json:"distance_meters" bson:"distance_meters"`
	DurationSeconds int `json:"duration_seconds" bson:"duration_seconds"`
}

// ─── Booking ────────────────────────────────────────────────

// Booking is a single passenger pickup-to-dropoff request for a specific
// time-of-day. Numeric and payment fields pass through the scheduler
// unmodified; travel_* and scheduled_* fields are written back by it.
type Booking struct {
	BookingID   string `json:"booking_id"`
	PassengerID string `json:"passenger_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`

	ProgramID       string `json:"program_id,omitempty"`
	ProgramName     string `json:"program_name,omitempty"`
	ProgramTimezone string `json:"program_timezone"`

	PickupAddress    string  `json:"pickup_address"`
	PickupAddressID  string  `json:"pickup_address_id,omitempty"`
	PickupLatitude   float64 `json:"pickup_latitude"`
	PickupLongitude  float64 `json:"pickup_longitude"`
	DropoffAddress   string  `json:"dropoff_address"`
	DropoffAddressID string  `json:"dropoff_address_id,omitempty"`
	DropoffLatitude  float64 `json:"dropoff_latitude"`
	DropoffLongitude float64 `json:"dropoff_longitude"`

	// PickupTime is the requested time-of-day in "HH:MM" (24-hour) form,
	// interpreted in the trip's resolved time zone.
	PickupTime string `json:"pickup_time"`

	MobilityAssistance []string `json:"mobility_assistance"`

	Mileage     float64 `json:"mileage,omitempty"`
	FareAmount  float64 `json:"fare_amount,omitempty"`
	PaymentType string  `json:"payment_type,omitempty"`

	// Written back during trip construction.
	TravelDistance int `json:"travel_distance"` // meters
	TravelTime     int `json:"travel_time"`     // seconds

	// Filled by the scheduler on output; actual_* and driver_arrival_*
	// stay null in a planning response.
	ScheduledPickupTime  *string  `json:"scheduled_pickup_time"`
	ScheduledDropoffTime *string  `json:"scheduled_dropoff_time"`
	ActualPickupTime     *string  `json:"actual_pickup_time"`
	ActualDropoffTime    *string  `json:"actual_dropoff_time"`
	DriverArrivalTime    *string  `json:"driver_arrival_time"`
	DriverArrivalLat     *float64 `json:"driver_arrival_latitude"`
	DriverArrivalLon     *float64 `json:"driver_arrival_longitude"`
}

// PassengerKey identifies the passenger for last-leg grouping: the passenger
// id when present, otherwise the passenger's full name.
func (b *Booking) PassengerKey() string {
	if b.PassengerID != "" {
		return b.PassengerID
	}
	return b.FirstName + " " + b.LastName
}

// ─── Request / response envelopes ───────────────────────────

// ScheduleRequest is the body of POST /v1_webapp_auto_scheduling.
// The *_time overrides are in seconds; when absent, configuration defaults
// apply.
type ScheduleRequest struct {
	Date                 string     `json:"date"` // "Month Day, Year"
	Debug                bool       `json:"debug,omitempty"`
	BeforePickupTime     *int       `json:"before_pickup_time,omitempty"`
	AfterPickupTime      *int       `json:"after_pickup_time,omitempty"`
	DropoffUnloadingTime *int       `json:"dropoff_unloading_time,omitempty"`
	Bookings             []*Booking `json:"bookings"`
}

// ScheduleResponse is the response envelope for both the synchronous
// endpoint and completed tasks.
type ScheduleResponse struct {
	Result Result `json:"result"`
}

type Result struct {
	Status    string     `json:"status"`
	ErrorCode int        `json:"error_code"`
	Message   string     `json:"message"`
	Data      ResultData `json:"data"`
}

type ResultData struct {
	VehicleTripList []VehicleTrip `json:"vehicle_trip_list"`
}

// VehicleTrip is one shuttle's assignment in the plan. Identity fields are
// null: the plan names hypothetical shuttles, real ones are assigned later.
type VehicleTrip struct {
	ShuttleName         string      `json:"shuttle_name"`
	ShuttleID           *string     `json:"shuttle_id"`
	ShuttleLicensePlate *string     `json:"shuttle_license_plate"`
	DriverID            *string     `json:"driver_id"`
	DriverName          *string     `json:"driver_name"`
	Trips               []TripEntry `json:"trips"`
}

// TripEntry is a single served leg inside a shuttle's trip list. For a
// single-booking leg the first-pickup and last-dropoff fields equal the
// booking's own pickup and dropoff.
type TripEntry struct {
	ProgramID       string `json:"program_id,omitempty"`
	ProgramName     string `json:"program_name,omitempty"`
	ProgramTimezone string `json:"program_timezone"`

	FirstPickupTime string  `json:"first_pickup_time"` // 12-hour clock
	LastDropoffTime string  `json:"last_dropoff_time"` // 12-hour clock
	FirstPickupLat  float64 `json:"first_pickup_latitude"`
	FirstPickupLon  float64 `json:"first_pickup_longitude"`
	LastDropoffLat  float64 `json:"last_dropoff_latitude"`
	LastDropoffLon  float64 `json:"last_dropoff_longitude"`

	Bookings []*Booking `json:"bookings"`

	DriverID     *string `json:"driver_id"`
	DriverName   *string `json:"driver_name"`
	ActionStatus *string `json:"action_status"`
}
