// Package export writes plan results as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/washcrew/core/model"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatSchedule Format = "schedule-csv"
)

// Write encodes res in format.
func Write(w io.Writer, res model.PlanResult, format Format) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, res)
	case FormatCSV:
		return WriteAssignmentsCSV(w, res.Assignments)
	case FormatSchedule:
		return WriteScheduleCSV(w, res.CrewSchedules)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the whole plan result as indented JSON.
func WriteJSON(w io.Writer, res model.PlanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteAssignmentsCSV writes one row per assignment.
func WriteAssignmentsCSV(w io.Writer, assignments []model.CrewAssignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task_id", "crew_id", "washroom_id", "priority", "start", "end", "travel_minutes", "cleaning_minutes", "score"}); err != nil {
		return err
	}
	for _, a := range assignments {
		rec := []string{
			a.TaskID,
			a.CrewID,
			a.WashroomID,
			string(a.Priority),
			a.Start.Format(time.RFC3339),
			a.End.Format(time.RFC3339),
			strconv.Itoa(a.TravelMinutes),
			strconv.Itoa(a.CleaningMinutes),
			strconv.FormatFloat(a.Score, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScheduleCSV writes every crew timeline, crews in id order.
func WriteScheduleCSV(w io.Writer, schedules map[string][]model.ScheduleEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"crew_id", "start", "end", "status", "task_id", "washroom_id"}); err != nil {
		return err
	}
	ids := make([]string, 0, len(schedules))
	for id := range schedules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, ev := range schedules[id] {
			rec := []string{
				id,
				ev.Start.Format(time.RFC3339),
				ev.End.Format(time.RFC3339),
				string(ev.Status),
				ev.TaskID,
				ev.WashroomID,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
