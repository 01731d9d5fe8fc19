package engine

import (
	"sort"
	"time"
)

type interval struct {
	start, end time.Time
}

// occupancy indexes committed cleanings per washroom. Intervals of one
// washroom never overlap, so sorting by start also sorts by end.
type occupancy struct {
	byWashroom map[string][]interval
}

func newOccupancy() *occupancy {
	return &occupancy{byWashroom: make(map[string][]interval)}
}

// overlaps reports whether [start, end) intersects a committed interval.
func (o *occupancy) overlaps(washroomID string, start, end time.Time) bool {
	list := o.byWashroom[washroomID]
	i := sort.Search(len(list), func(i int) bool { return !list[i].start.Before(start) })
	if i > 0 && list[i-1].end.After(start) {
		return true
	}
	return i < len(list) && list[i].start.Before(end)
}

func (o *occupancy) add(washroomID string, start, end time.Time) {
	list := o.byWashroom[washroomID]
	i := sort.Search(len(list), func(i int) bool { return !list[i].start.Before(start) })
	list = append(list, interval{})
	copy(list[i+1:], list[i:])
	list[i] = interval{start: start, end: end}
	o.byWashroom[washroomID] = list
}
