// Package peak derives an hourly crowd-intensity surface per washroom from
// flight passenger loads. The surface only biases routine scheduling.
package peak

import (
	"math"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

const (
	// FullLoadPassengers is the passenger count mapped to intensity 1.
	FullLoadPassengers = 300.0

	arrivalWindow       = 30 * time.Minute
	departureLeadStart  = 90 * time.Minute
	departureLeadFinish = 30 * time.Minute
)

// Surface maps washroom id and hour bucket to an intensity in [0,1].
// A nil Surface reports zero everywhere.
type Surface struct {
	buckets map[string]map[int64]float64
}

func bucketOf(t time.Time) int64 {
	return t.Unix() / 3600
}

// Window returns the interval during which a flight loads nearby washrooms:
// the first half hour after an arrival, or from 90 to 30 minutes before a
// departure.
func Window(ts time.Time, kind model.FlightKind) (time.Time, time.Time) {
	if kind == model.FlightDeparture {
		return ts.Add(-departureLeadStart), ts.Add(-departureLeadFinish)
	}
	return ts, ts.Add(arrivalWindow)
}

// Intensity normalizes a passenger count into [0,1].
func Intensity(passengers int) float64 {
	if passengers <= 0 {
		return 0
	}
	return math.Min(float64(passengers)/FullLoadPassengers, 1)
}

// Build spreads each flight's intensity across the hour buckets its window
// overlaps, weighted by the overlap fraction, for the washrooms at the
// flight's gate or every washroom when the gate matches none.
func Build(flights []model.Flight, washrooms []model.Washroom) *Surface {
	s := &Surface{buckets: make(map[string]map[int64]float64)}
	var all []string
	gates := make(map[string][]string)
	for _, w := range washrooms {
		all = append(all, w.ID)
		if w.GateProximity != "" {
			gates[w.GateProximity] = append(gates[w.GateProximity], w.ID)
		}
	}
	for _, f := range flights {
		ts, kind, ok := f.Timestamp()
		if !ok {
			continue
		}
		load := Intensity(f.Passengers)
		if load == 0 {
			continue
		}
		targets := gates[f.Gate]
		if len(targets) == 0 {
			targets = all
		}
		from, to := Window(ts, kind)
		span := to.Sub(from)
		for b := bucketOf(from); b*3600 < to.Unix(); b++ {
			bStart := time.Unix(b*3600, 0)
			bEnd := bStart.Add(time.Hour)
			overlap := minTime(to, bEnd).Sub(maxTime(from, bStart))
			if overlap <= 0 {
				continue
			}
			share := load * float64(overlap) / float64(span)
			for _, id := range targets {
				s.add(id, b, share)
			}
		}
	}
	return s
}

func (s *Surface) add(id string, b int64, v float64) {
	m, ok := s.buckets[id]
	if !ok {
		m = make(map[int64]float64)
		s.buckets[id] = m
	}
	m[b] = math.Min(m[b]+v, 1)
}

// At returns the intensity of the hour bucket containing t.
func (s *Surface) At(washroomID string, t time.Time) float64 {
	if s == nil {
		return 0
	}
	return s.buckets[washroomID][bucketOf(t)]
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
