// Package travel estimates walking time between washrooms from their
// coordinates. Distances are straight-line; there is no routing.
package travel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/washcrew/core/model"
)

// DefaultWalkingSpeed is expressed in distance units per minute.
const DefaultWalkingSpeed = 80.0

// Estimator converts distances into whole travel minutes.
type Estimator struct {
	WalkingSpeed float64
}

// New returns an Estimator. A non-positive speed selects DefaultWalkingSpeed.
func New(speed float64) Estimator {
	return Estimator{WalkingSpeed: speed}
}

func (e Estimator) speed() float64 {
	if e.WalkingSpeed <= 0 {
		return DefaultWalkingSpeed
	}
	return e.WalkingSpeed
}

// Distance is the Euclidean distance between two points.
func Distance(a, b model.Coordinates) float64 {
	return floats.Distance(a.Vector(), b.Vector(), 2)
}

// Minutes returns ceil(distance / speed). Identical points take zero minutes.
func (e Estimator) Minutes(a, b model.Coordinates) int {
	d := Distance(a, b)
	if d == 0 {
		return 0
	}
	return int(math.Ceil(d / e.speed()))
}

// Between returns the travel minutes from one washroom to another.
func (e Estimator) Between(from, to model.Washroom) int {
	return e.Minutes(from.Location, to.Location)
}
