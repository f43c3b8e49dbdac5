package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type CategoryCount[K ~string] struct {
	Category K   `json:"category"`
	Count    int `json:"count"`
}

// Distribution counts observed categories in first-seen order. Categories
// never added are absent rather than zero.
type Distribution[K ~string] struct {
	entries []CategoryCount[K]
	index   map[K]int
}

func (d *Distribution[K]) Add(category K) {
	if d.index == nil {
		d.index = make(map[K]int)
	}
	if i, ok := d.index[category]; ok {
		d.entries[i].Count++
		return
	}
	d.index[category] = len(d.entries)
	d.entries = append(d.entries, CategoryCount[K]{Category: category, Count: 1})
}

func (d Distribution[K]) Count(category K) int {
	if i, ok := d.index[category]; ok {
		return d.entries[i].Count
	}
	return 0
}

func (d Distribution[K]) Has(category K) bool {
	_, ok := d.index[category]
	return ok
}

func (d Distribution[K]) Len() int {
	return len(d.entries)
}

func (d Distribution[K]) Total() int {
	total := 0
	for _, e := range d.entries {
		total += e.Count
	}
	return total
}

// Entries returns a copy of the counts in insertion order.
func (d Distribution[K]) Entries() []CategoryCount[K] {
	out := make([]CategoryCount[K], len(d.entries))
	copy(out, d.entries)
	return out
}

// Dominant returns the category with the highest count. Among tied
// categories the one inserted first wins.
func (d Distribution[K]) Dominant() (K, bool) {
	var best CategoryCount[K]
	found := false
	for _, e := range d.entries {
		if !found || e.Count > best.Count {
			best = e
			found = true
		}
	}
	return best.Category, found
}

func (d Distribution[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Entries())
}

func (d *Distribution[K]) UnmarshalJSON(data []byte) error {
	var entries []CategoryCount[K]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	out := Distribution[K]{}
	for _, e := range entries {
		if e.Count < 0 {
			return fmt.Errorf("distribution: negative count %d for %q", e.Count, e.Category)
		}
		if e.Count == 0 {
			continue
		}
		if i, ok := out.index[e.Category]; ok {
			out.entries[i].Count += e.Count
			continue
		}
		if out.index == nil {
			out.index = make(map[K]int)
		}
		out.index[e.Category] = len(out.entries)
		out.entries = append(out.entries, e)
	}
	*d = out
	return nil
}

// PatternAnalysis summarizes a batch of tagged tasks over one window. It is
// recomputed for every query and never updated in place.
type PatternAnalysis struct {
	DominantActionDomain *ActionDomain `json:"dominant_action_domain,omitempty"`
	DominantEnergyType   *EnergyType   `json:"dominant_energy_type,omitempty"`
	DominantTimeWeight   *TimeWeight   `json:"dominant_time_weight,omitempty"`

	ByActionDomain Distribution[ActionDomain] `json:"by_action_domain"`
	ByEnergyType   Distribution[EnergyType]   `json:"by_energy_type"`
	ByTimeWeight   Distribution[TimeWeight]   `json:"by_time_weight"`

	MostProductiveHours []int   `json:"most_productive_hours"`
	CompletionRate      float64 `json:"completion_rate"`
	AverageTasksPerDay  float64 `json:"average_tasks_per_day"`

	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
}

const InsightTypeObservation = "observation"

// Insight is one generated sentence. Position is its 1-based order within the batch
// generated for the same period.
type Insight struct {
	ID             string
	UserID         string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Text           string
	Type           string
	Position       int
	SupportingData PatternAnalysis
	Viewed         bool
	ViewedAt       *time.Time
	CreatedAt      time.Time
}
