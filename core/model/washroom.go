package model

// Coordinates locates a washroom in the terminal's idealized 3-D space.
type Coordinates struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vector returns the coordinates as a slice usable with gonum helpers.
func (c Coordinates) Vector() []float64 { return []float64{c.X, c.Y, c.Z} }

// WashroomStatus is the operational status of a washroom.
type WashroomStatus string

const (
	WashroomActive   WashroomStatus = "active"
	WashroomClosed   WashroomStatus = "closed"
	WashroomInactive WashroomStatus = "inactive"
)

// SLA defines the service targets attached to a washroom.
type SLA struct {
	// MaxHeadwayMinutes is the longest acceptable gap between two cleanings.
	MaxHeadwayMinutes int `json:"max_headway_minutes" yaml:"max_headway_minutes"`
	// EmergencyResponseMinutes is the target to complete an emergency.
	EmergencyResponseMinutes int `json:"emergency_response_minutes" yaml:"emergency_response_minutes"`
}

// Washroom is an entry of the externally owned washroom catalog.
type Washroom struct {
	ID            string         `json:"id" yaml:"id"`
	Terminal      string         `json:"terminal" yaml:"terminal"`
	Concourse     string         `json:"concourse" yaml:"concourse"`
	Location      Coordinates    `json:"location" yaml:"location"`
	GateProximity string         `json:"gate_proximity" yaml:"gate_proximity"`
	Status        WashroomStatus `json:"status" yaml:"status"`
	SLA           SLA            `json:"sla" yaml:"sla"`
}

// IsActive reports whether the washroom can receive cleanings. An empty
// status is treated as active.
func (w Washroom) IsActive() bool {
	return w.Status == "" || w.Status == WashroomActive
}
