// Package scheduler expands per-washroom cleaning requirements into dated
// routine tasks. Cleanings are spaced at the requirement frequency, or spread
// evenly across the horizon when no frequency is known.
package scheduler
