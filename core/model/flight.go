package model

import "time"

// FlightKind tells whether a flight timestamp describes an arrival or a departure.
type FlightKind int

const (
	FlightArrival FlightKind = iota
	FlightDeparture
)

// Flight is one entry of the flight schedule.
type Flight struct {
	ID                 string     `json:"id" yaml:"id"`
	Gate               string     `json:"gate" yaml:"gate"`
	Passengers         int        `json:"passengers" yaml:"passengers"`
	ActualArrival      *time.Time `json:"actual_arrival,omitempty" yaml:"actual_arrival,omitempty"`
	ActualDeparture    *time.Time `json:"actual_departure,omitempty" yaml:"actual_departure,omitempty"`
	ScheduledArrival   *time.Time `json:"scheduled_arrival,omitempty" yaml:"scheduled_arrival,omitempty"`
	ScheduledDeparture *time.Time `json:"scheduled_departure,omitempty" yaml:"scheduled_departure,omitempty"`
}

// Timestamp returns the best available instant of the flight: actual
// arrival, actual departure, scheduled arrival then scheduled departure.
func (f Flight) Timestamp() (time.Time, FlightKind, bool) {
	switch {
	case f.ActualArrival != nil:
		return *f.ActualArrival, FlightArrival, true
	case f.ActualDeparture != nil:
		return *f.ActualDeparture, FlightDeparture, true
	case f.ScheduledArrival != nil:
		return *f.ScheduledArrival, FlightArrival, true
	case f.ScheduledDeparture != nil:
		return *f.ScheduledDeparture, FlightDeparture, true
	}
	return time.Time{}, FlightArrival, false
}
