// Package demand turns a flight schedule into per-washroom cleaning
// requirements. Flights at a gate create candidate cleaning instants for the
// washrooms near that gate; gaps longer than the cleaning frequency are
// back-filled with synthetic instants.
package demand

import (
	"sort"
	"time"

	"github.com/kilianp07/washcrew/core/logger"
	"github.com/kilianp07/washcrew/core/model"
)

// DedupWindow suppresses a candidate instant too close to an existing one.
const DedupWindow = 30 * time.Minute

// Params bounds the demand generation.
type Params struct {
	Start          time.Time
	HorizonHours   float64
	FrequencyHours float64
}

// End returns the exclusive end of the horizon.
func (p Params) End() time.Time {
	return p.Start.Add(hours(p.HorizonHours))
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Generator builds CleaningRequirements. It holds no state between calls.
type Generator struct {
	log logger.Logger
}

// NewGenerator returns a Generator logging through log.
func NewGenerator(log logger.Logger) *Generator {
	return &Generator{log: logger.OrNop(log)}
}

type flightInstant struct {
	id   string
	gate string
	at   time.Time
}

// Generate returns one requirement per active washroom with a non-zero
// cleaning count, sorted by washroom id. The result depends only on inputs.
func (g *Generator) Generate(flights []model.Flight, washrooms []model.Washroom, p Params) []model.CleaningRequirement {
	end := p.End()
	freq := hours(p.FrequencyHours)

	var active []string
	gates := make(map[string][]string)
	for _, w := range washrooms {
		if !w.IsActive() {
			g.log.Debugf("washroom %s is %s, no demand generated", w.ID, w.Status)
			continue
		}
		active = append(active, w.ID)
		if w.GateProximity != "" {
			gates[w.GateProximity] = append(gates[w.GateProximity], w.ID)
		}
	}
	sort.Strings(active)

	relevant := relevantFlights(flights, p.Start, end)
	candidates := make(map[string][]time.Time, len(active))
	for _, f := range relevant {
		targets := gates[f.gate]
		if len(targets) == 0 {
			targets = active
		}
		for _, id := range targets {
			if nearExisting(candidates[id], f.at) {
				continue
			}
			candidates[id] = append(candidates[id], f.at)
		}
	}

	var reqs []model.CleaningRequirement
	for _, id := range active {
		inst := candidates[id]
		if len(inst) == 0 {
			n := fallbackCount(p.HorizonHours, p.FrequencyHours)
			if n > 0 {
				reqs = append(reqs, model.CleaningRequirement{WashroomID: id, NumCleanings: n, FrequencyHours: p.FrequencyHours})
			}
			continue
		}
		n := countWithin(Backfill(inst, p.Start, end, freq), p.Start, end)
		if n > 0 {
			reqs = append(reqs, model.CleaningRequirement{WashroomID: id, NumCleanings: n, FrequencyHours: p.FrequencyHours})
		}
	}
	g.log.Debugw("demand generated", map[string]any{
		"flights":      len(relevant),
		"washrooms":    len(active),
		"requirements": len(reqs),
	})
	return reqs
}

// relevantFlights keeps flights whose representative timestamp lies in
// [start, end), ordered by time then id so that deduplication is stable.
func relevantFlights(flights []model.Flight, start, end time.Time) []flightInstant {
	var out []flightInstant
	for _, f := range flights {
		ts, _, ok := f.Timestamp()
		if !ok || ts.Before(start) || !ts.Before(end) {
			continue
		}
		out = append(out, flightInstant{id: f.ID, gate: f.Gate, at: ts})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].at.Equal(out[j].at) {
			return out[i].at.Before(out[j].at)
		}
		return out[i].id < out[j].id
	})
	return out
}

func nearExisting(existing []time.Time, t time.Time) bool {
	for _, e := range existing {
		d := t.Sub(e)
		if d < 0 {
			d = -d
		}
		if d < DedupWindow {
			return true
		}
	}
	return false
}

// Backfill walks sorted flight-aligned instants and inserts synthetic
// instants wherever the gap since the last scheduled one would exceed freq,
// then keeps inserting every freq until end. A non-positive freq disables
// back-filling.
func Backfill(instants []time.Time, start, end time.Time, freq time.Duration) []time.Time {
	sorted := append([]time.Time(nil), instants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	if freq <= 0 {
		return sorted
	}
	out := make([]time.Time, 0, len(sorted))
	last := start
	for _, t := range sorted {
		for t.Sub(last) > freq {
			last = last.Add(freq)
			out = append(out, last)
		}
		out = append(out, t)
		last = t
	}
	for next := last.Add(freq); next.Before(end); next = next.Add(freq) {
		out = append(out, next)
	}
	return out
}

func countWithin(instants []time.Time, start, end time.Time) int {
	n := 0
	for _, t := range instants {
		if !t.Before(start) && t.Before(end) {
			n++
		}
	}
	return n
}

func fallbackCount(horizonHours, frequencyHours float64) int {
	if frequencyHours <= 0 {
		return 0
	}
	return int(horizonHours / frequencyHours)
}
