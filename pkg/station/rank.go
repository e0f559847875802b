package station

import (
	"fmt"
	"slices"
	"strings"
)

// StatusFilter selects stations by slot availability or operational status.
type StatusFilter string

const (
	StatusAll         StatusFilter = "all"
	StatusAvailable   StatusFilter = "available"
	StatusBusy        StatusFilter = "busy"
	StatusMaintenance StatusFilter = "maintenance"
)

// ConnectorAll disables connector filtering.
const ConnectorAll = "all"

// ParseStatusFilter parses a user supplied status filter. An empty string
// means StatusAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return StatusAll, nil
	case StatusAll, StatusAvailable, StatusBusy, StatusMaintenance:
		return f, nil
	default:
		return "", fmt.Errorf("unknown status filter %q", s)
	}
}

// Filter has two independent dimensions. The zero value keeps everything.
type Filter struct {
	Status    StatusFilter `json:"status"`
	Connector string       `json:"connector"`
}

// AllStations is the filter that keeps every station.
var AllStations = Filter{Status: StatusAll, Connector: ConnectorAll}

// Keep reports whether s passes both filter dimensions.
func (f Filter) Keep(s Ranked) bool {
	switch f.Status {
	case StatusAvailable:
		if s.AvailableSlots <= 0 {
			return false
		}
	case StatusBusy:
		if s.AvailableSlots != 0 {
			return false
		}
	case StatusMaintenance:
		if !strings.EqualFold(s.Status, MaintenanceStatus) {
			return false
		}
	}

	connector := strings.ToLower(strings.TrimSpace(f.Connector))
	if connector == "" || connector == ConnectorAll {
		return true
	}
	return s.PrimaryConnector() == connector
}

// Annotate computes distance, reachability, availability and priority for
// every record, keeping the input order.
func Annotate(records []Record, user Position, userRange float64) []Ranked {
	ranked := make([]Ranked, 0, len(records))
	for i := range records {
		r := records[i]
		distance := Distance(user, r.Position)
		reachable := Reachable(distance, userRange)
		available := r.AvailableSlots > 0
		ranked = append(ranked, Ranked{
			Record:      r,
			DistanceKm:  distance,
			IsReachable: reachable,
			IsAvailable: available,
			Priority:    PriorityOf(reachable, available),
		})
	}
	return ranked
}

// ApplyFilter returns the stations that pass f, order kept.
func ApplyFilter(ranked []Ranked, f Filter) []Ranked {
	kept := make([]Ranked, 0, len(ranked))
	for _, s := range ranked {
		if f.Keep(s) {
			kept = append(kept, s)
		}
	}
	return kept
}

// Sort orders stations by priority, then distance. Equal stations keep their
// relative order.
func Sort(ranked []Ranked) {
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		if a.Priority != b.Priority {
			return int(a.Priority) - int(b.Priority)
		}
		return a.DistanceKm - b.DistanceKm
	})
}

// Rank annotates, filters and sorts records for a user at user with the
// given range. records is not modified.
func Rank(records []Record, user Position, userRange float64, f Filter) []Ranked {
	ranked := ApplyFilter(Annotate(records, user, userRange), f)
	Sort(ranked)
	return ranked
}

// Recommended returns the reachable and available stations, order kept.
func Recommended(ranked []Ranked) []Ranked {
	rec := make([]Ranked, 0, len(ranked))
	for _, s := range ranked {
		if s.Priority == PriorityRecommended {
			rec = append(rec, s)
		}
	}
	return rec
}

// Find returns the ranked station with the given id.
func Find(ranked []Ranked, id int64) (Ranked, bool) {
	for _, s := range ranked {
		if s.ID == id {
			return s, true
		}
	}
	return Ranked{}, false
}
