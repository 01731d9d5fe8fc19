// Package dataset loads the washroom catalog, crew roster, flight schedule
// and task backlog of a planning day from YAML or JSON files.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/washcrew/core/model"
)

// ErrInvalid wraps every content error of a dataset.
var ErrInvalid = errors.New("invalid dataset")

const dateLayout = "2006-01-02"

// ShiftDef is a working window given as "HH:MM" times of day.
type ShiftDef struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// CrewDef is a roster entry.
type CrewDef struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Skills     []string `yaml:"skills" json:"skills"`
	Shift      ShiftDef `yaml:"shift" json:"shift"`
	Status     string   `yaml:"status" json:"status"`
	HourlyRate float64  `yaml:"hourly_rate" json:"hourly_rate"`
	Home       string   `yaml:"home,omitempty" json:"home,omitempty"`
}

// ToModel anchors the shift on day.
func (c CrewDef) ToModel(day time.Time) (model.Crew, error) {
	start, err := clock(day, c.Shift.Start)
	if err != nil {
		return model.Crew{}, fmt.Errorf("crew %s shift start: %w", c.ID, err)
	}
	end, err := clock(day, c.Shift.End)
	if err != nil {
		return model.Crew{}, fmt.Errorf("crew %s shift end: %w", c.ID, err)
	}
	status := model.CrewStatus(c.Status)
	if status == "" {
		status = model.CrewOnShift
	}
	return model.Crew{
		ID:         c.ID,
		Name:       c.Name,
		Skills:     c.Skills,
		Shift:      model.Shift{Start: start, End: end},
		Status:     status,
		HourlyRate: c.HourlyRate,
		Home:       c.Home,
	}, nil
}

// FlightDef is a flight schedule entry. Times are RFC 3339 or "HH:MM" on
// the dataset day.
type FlightDef struct {
	ID                 string `yaml:"id" json:"id"`
	Gate               string `yaml:"gate" json:"gate"`
	Passengers         int    `yaml:"passengers" json:"passengers"`
	ActualArrival      string `yaml:"actual_arrival,omitempty" json:"actual_arrival,omitempty"`
	ActualDeparture    string `yaml:"actual_departure,omitempty" json:"actual_departure,omitempty"`
	ScheduledArrival   string `yaml:"scheduled_arrival,omitempty" json:"scheduled_arrival,omitempty"`
	ScheduledDeparture string `yaml:"scheduled_departure,omitempty" json:"scheduled_departure,omitempty"`
}

// ToModel resolves the flight times on day.
func (f FlightDef) ToModel(day time.Time) (model.Flight, error) {
	fl := model.Flight{ID: f.ID, Gate: f.Gate, Passengers: f.Passengers}
	for _, field := range []struct {
		name string
		raw  string
		dst  **time.Time
	}{
		{"actual_arrival", f.ActualArrival, &fl.ActualArrival},
		{"actual_departure", f.ActualDeparture, &fl.ActualDeparture},
		{"scheduled_arrival", f.ScheduledArrival, &fl.ScheduledArrival},
		{"scheduled_departure", f.ScheduledDeparture, &fl.ScheduledDeparture},
	} {
		ts, err := optionalInstant(day, field.raw)
		if err != nil {
			return model.Flight{}, fmt.Errorf("flight %s %s: %w", f.ID, field.name, err)
		}
		*field.dst = ts
	}
	return fl, nil
}

// TaskDef is a backlog task.
type TaskDef struct {
	ID               string `yaml:"id" json:"id"`
	WashroomID       string `yaml:"washroom_id" json:"washroom_id"`
	Type             string `yaml:"type" json:"type"`
	Priority         string `yaml:"priority" json:"priority"`
	EstimatedMinutes int    `yaml:"estimated_minutes" json:"estimated_minutes"`
	RequiredAt       string `yaml:"required_at" json:"required_at"`
	Deadline         string `yaml:"deadline,omitempty" json:"deadline,omitempty"`
	CreatedAt        string `yaml:"created_at,omitempty" json:"created_at,omitempty"`
}

// ToModel resolves the task times on day. CreatedAt defaults to RequiredAt.
func (t TaskDef) ToModel(day time.Time) (model.Task, error) {
	required, err := instant(day, t.RequiredAt)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s required_at: %w", t.ID, err)
	}
	deadline, err := optionalInstant(day, t.Deadline)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s deadline: %w", t.ID, err)
	}
	created := required
	if t.CreatedAt != "" {
		if created, err = instant(day, t.CreatedAt); err != nil {
			return model.Task{}, fmt.Errorf("task %s created_at: %w", t.ID, err)
		}
	}
	typ := model.TaskType(t.Type)
	if typ == "" {
		typ = model.TaskRoutine
	}
	prio := model.Priority(t.Priority)
	if prio == "" {
		prio = model.PriorityNormal
	}
	return model.Task{
		ID:               t.ID,
		WashroomID:       t.WashroomID,
		Type:             typ,
		Priority:         prio,
		EstimatedMinutes: t.EstimatedMinutes,
		RequiredAt:       required,
		Deadline:         deadline,
		CreatedAt:        created,
	}, nil
}

// Dataset is the file representation of one planning day.
type Dataset struct {
	Name      string           `yaml:"name" json:"name"`
	Date      string           `yaml:"date" json:"date"`
	Timezone  string           `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Washrooms []model.Washroom `yaml:"washrooms" json:"washrooms"`
	Crews     []CrewDef        `yaml:"crews" json:"crews"`
	Flights   []FlightDef      `yaml:"flights" json:"flights"`
	Backlog   []TaskDef        `yaml:"backlog" json:"backlog"`
}

// Data is a dataset resolved to model types.
type Data struct {
	Name      string
	Day       time.Time
	Washrooms []model.Washroom
	Crews     []model.Crew
	Flights   []model.Flight
	Backlog   []model.Task
}

// Load reads a dataset file. The format follows the extension; anything but
// .json is parsed as YAML.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Parse decodes a dataset in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Dataset, error) {
	var ds Dataset
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ds); err != nil {
			return nil, fmt.Errorf("decode json dataset: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&ds); err != nil {
			return nil, fmt.Errorf("decode yaml dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	return &ds, nil
}

// LoadData reads and resolves a dataset file.
func LoadData(path string) (Data, error) {
	ds, err := Load(path)
	if err != nil {
		return Data{}, err
	}
	return ds.ToModel()
}

// ToModel validates the dataset and resolves it to model types.
func (d *Dataset) ToModel() (Data, error) {
	loc := time.UTC
	if d.Timezone != "" {
		l, err := time.LoadLocation(d.Timezone)
		if err != nil {
			return Data{}, fmt.Errorf("%w: timezone: %v", ErrInvalid, err)
		}
		loc = l
	}
	if d.Date == "" {
		return Data{}, fmt.Errorf("%w: date is required", ErrInvalid)
	}
	day, err := time.ParseInLocation(dateLayout, d.Date, loc)
	if err != nil {
		return Data{}, fmt.Errorf("%w: date: %v", ErrInvalid, err)
	}
	out := Data{Name: d.Name, Day: day}

	washrooms := make(map[string]struct{}, len(d.Washrooms))
	for _, w := range d.Washrooms {
		if err := unique(washrooms, "washroom", w.ID); err != nil {
			return Data{}, err
		}
		out.Washrooms = append(out.Washrooms, w)
	}
	crews := make(map[string]struct{}, len(d.Crews))
	for _, c := range d.Crews {
		if err := unique(crews, "crew", c.ID); err != nil {
			return Data{}, err
		}
		m, err := c.ToModel(day)
		if err != nil {
			return Data{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		out.Crews = append(out.Crews, m)
	}
	for _, f := range d.Flights {
		m, err := f.ToModel(day)
		if err != nil {
			return Data{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		out.Flights = append(out.Flights, m)
	}
	tasks := make(map[string]struct{}, len(d.Backlog))
	for _, t := range d.Backlog {
		if err := unique(tasks, "task", t.ID); err != nil {
			return Data{}, err
		}
		m, err := t.ToModel(day)
		if err != nil {
			return Data{}, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		out.Backlog = append(out.Backlog, m)
	}
	return out, nil
}

func unique(seen map[string]struct{}, kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalid, kind)
	}
	if _, ok := seen[id]; ok {
		return fmt.Errorf("%w: duplicate %s id %q", ErrInvalid, kind, id)
	}
	seen[id] = struct{}{}
	return nil
}

func clock(day time.Time, s string) (time.Time, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func instant(day time.Time, s string) (time.Time, error) {
	if len(s) == len("15:04") {
		return clock(day, s)
	}
	return time.Parse(time.RFC3339, s)
}

func optionalInstant(day time.Time, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := instant(day, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
