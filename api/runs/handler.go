// Package runs exposes the run log over HTTP.
package runs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/washcrew/core/runlog"
)

// Path is where NewHandler is mounted.
const Path = "/api/runs"

// NewHandler returns an HTTP handler exposing run records via GET /api/runs.
// Supported filters are start and end (RFC 3339), run_id, variant and crew_id.
func NewHandler(store runlog.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []runlog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (runlog.Query, error) {
	v := r.URL.Query()
	q := runlog.Query{
		RunID:   v.Get("run_id"),
		Variant: v.Get("variant"),
		CrewID:  v.Get("crew_id"),
	}
	for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		s := v.Get(name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, fmt.Errorf("%s: %w", name, err)
		}
		*dst = t
	}
	return q, nil
}
