package crew

import (
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

func clock(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// OnShift reports whether t falls inside the shift. Both t and the shift
// bounds are reduced to a time of day in the shift's location, so a shift
// whose end precedes its start runs past midnight. Equal bounds mean a
// round-the-clock shift.
func OnShift(s model.Shift, t time.Time) bool {
	_, _, ok := Occurrence(s, t)
	return ok
}

// Occurrence returns the concrete shift interval [start, end) containing t.
// Bounds are wall-clock times in the shift's location, so a night spanning a
// daylight-saving change is one hour shorter or longer.
func Occurrence(s model.Shift, t time.Time) (time.Time, time.Time, bool) {
	loc := s.Start.Location()
	lt := t.In(loc)
	now := clock(lt)
	from, to := clock(s.Start.In(loc)), clock(s.End.In(loc))
	y, m, d := lt.Date()
	at := func(offset int, c time.Duration) time.Time {
		return time.Date(y, m, d+offset, int(c/time.Hour), int(c%time.Hour/time.Minute), int(c%time.Minute/time.Second), 0, loc)
	}

	switch {
	case from == to:
		if now < from {
			return at(-1, from), at(0, from), true
		}
		return at(0, from), at(1, from), true
	case from < to:
		if now >= from && now < to {
			return at(0, from), at(0, to), true
		}
	default:
		if now >= from {
			return at(0, from), at(1, to), true
		}
		if now < to {
			return at(-1, from), at(0, to), true
		}
	}
	return time.Time{}, time.Time{}, false
}

// ShiftMinutes counts the whole minutes of [from, to) spent on shift.
func ShiftMinutes(s model.Shift, from, to time.Time) int {
	var total time.Duration
	for t := from; t.Before(to); {
		_, end, ok := Occurrence(s, t)
		if !ok {
			t = t.Add(time.Minute)
			continue
		}
		if end.After(to) {
			end = to
		}
		total += end.Sub(t)
		t = end
	}
	return int(total / time.Minute)
}
