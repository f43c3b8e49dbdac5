// Package insights turns a window of tagged tasks into pattern statistics and
// short plain-language observations.
package insights

import (
	"math"
	"sort"
	"strconv"
	"time"

	"tasklens/internal/domain"
)

const productiveHoursLimit = 3

// AnalyzePatterns aggregates tasks already filtered to [start, end]. Untagged
// tasks count toward volume, completion and hours but not toward any
// category distribution.
func AnalyzePatterns(tasks []domain.TaggedTask, start, end time.Time) (domain.PatternAnalysis, error) {
	if start.IsZero() || end.IsZero() {
		return domain.PatternAnalysis{}, domain.NewInputError("window", "start and end are required")
	}
	if end.Before(start) {
		return domain.PatternAnalysis{}, domain.NewInputError("window", "end is before start")
	}

	var a domain.PatternAnalysis
	var byHour [24]int
	completed := 0

	for i, t := range tasks {
		if t.CreatedAt.IsZero() {
			return domain.PatternAnalysis{}, domain.NewInputError("created_at", "missing on task "+taskRef(t, i))
		}
		if t.Completed {
			completed++
		}
		byHour[t.CreatedAt.In(start.Location()).Hour()]++

		if t.Tag == nil {
			continue
		}
		a.ByActionDomain.Add(t.Tag.ActionDomain)
		a.ByEnergyType.Add(t.Tag.EnergyType)
		a.ByTimeWeight.Add(t.Tag.TimeWeight)
	}

	if d, ok := a.ByActionDomain.Dominant(); ok {
		a.DominantActionDomain = &d
	}
	if e, ok := a.ByEnergyType.Dominant(); ok {
		a.DominantEnergyType = &e
	}
	if w, ok := a.ByTimeWeight.Dominant(); ok {
		a.DominantTimeWeight = &w
	}

	a.MostProductiveHours = topHours(byHour, productiveHoursLimit)
	a.TotalTasks = len(tasks)
	a.CompletedTasks = completed
	if len(tasks) > 0 {
		a.CompletionRate = float64(completed) / float64(len(tasks))
	}
	a.AverageTasksPerDay = float64(len(tasks)) / float64(windowDays(start, end))
	return a, nil
}

// topHours ranks hours by task count, highest first. Equal counts keep
// ascending hour order.
func topHours(byHour [24]int, limit int) []int {
	hours := make([]int, 0, 24)
	for h, n := range byHour {
		if n > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return byHour[hours[i]] > byHour[hours[j]]
	})
	if len(hours) > limit {
		hours = hours[:limit]
	}
	return hours
}

// windowDays is the number of started days in the window, at least one.
func windowDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func taskRef(t domain.TaggedTask, i int) string {
	if t.ID != "" {
		return t.ID
	}
	return "#" + strconv.Itoa(i)
}
