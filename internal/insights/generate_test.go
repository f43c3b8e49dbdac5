package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tasklens/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func fullAnalysis() domain.PatternAnalysis {
	var a domain.PatternAnalysis
	for range 7 {
		a.ByActionDomain.Add(domain.WorkProject)
	}
	for range 3 {
		a.ByActionDomain.Add(domain.HealthWellness)
	}
	a.DominantActionDomain = ptr(domain.WorkProject)
	a.DominantEnergyType = ptr(domain.DeepFocus)
	a.DominantTimeWeight = ptr(domain.QuickWin)
	a.MostProductiveHours = []int{9, 12, 0}
	a.CompletionRate = 0.9
	a.AverageTasksPerDay = 12
	a.TotalTasks = 84
	return a
}

func TestGenerateInsightsAllSentences(t *testing.T) {
	want := []string{
		"You've been focusing heavily on work project, which makes up about 70% of your activities.",
		"Most of your tasks require deep focus. Schedule these during your peak concentration hours.",
		"Your tasks tend to be quick win activities. Good for momentum when you need a boost.",
		"You're most active around 9am, noon, midnight. Consider scheduling important tasks during these windows.",
		"You're completing 90% of your tasks—that's excellent follow-through.",
		"You're averaging 12 tasks per day. Make sure you're not overwhelming yourself.",
	}
	assert.Equal(t, want, GenerateInsights(fullAnalysis()))
}

func TestGenerateInsightsWithoutTaskCount(t *testing.T) {
	got := GenerateInsights(domain.PatternAnalysis{CompletionRate: 0.9, AverageTasksPerDay: 12})
	assert.Equal(t, []string{
		"You're completing 90% of your tasks—that's excellent follow-through.",
		"You're averaging 12 tasks per day. Make sure you're not overwhelming yourself.",
	}, got)
}

func TestGenerateInsightsEmptyAnalysis(t *testing.T) {
	assert.Empty(t, GenerateInsights(domain.PatternAnalysis{}))

	lowOnly := GenerateInsights(domain.PatternAnalysis{AverageTasksPerDay: 0.14})
	assert.Equal(t, []string{
		"You're completing about 0% of tasks. Consider breaking larger tasks into smaller, achievable steps.",
		"You're keeping things light with around 0 tasks per day.",
	}, lowOnly, "any observed activity makes the analysis non-empty")
}

func TestGenerateInsightsCompletionBands(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0.9, "You're completing 90% of your tasks—that's excellent follow-through."},
		{0.3, "You're completing about 30% of tasks. Consider breaking larger tasks into smaller, achievable steps."},
		{0.65, ""},
		{0.8, ""},
		{0.5, ""},
	}
	for _, tt := range tests {
		a := domain.PatternAnalysis{CompletionRate: tt.rate, AverageTasksPerDay: 5, TotalTasks: 35}
		got := GenerateInsights(a)
		if tt.want == "" {
			assert.Empty(t, got, "rate %v", tt.rate)
			continue
		}
		assert.Equal(t, []string{tt.want}, got, "rate %v", tt.rate)
	}
}

func TestGenerateInsightsVolumeBands(t *testing.T) {
	tests := []struct {
		avg  float64
		want []string
	}{
		{10.6, []string{"You're averaging 11 tasks per day. Make sure you're not overwhelming yourself."}},
		{1.4, []string{"You're keeping things light with around 1 tasks per day."}},
		{3, nil},
		{10, nil},
	}
	for _, tt := range tests {
		a := domain.PatternAnalysis{CompletionRate: 0.7, AverageTasksPerDay: tt.avg, TotalTasks: 10}
		assert.Equal(t, tt.want, GenerateInsights(a), "avg %v", tt.avg)
	}
}

func TestGenerateInsightsAdviceForEveryCategory(t *testing.T) {
	for _, e := range domain.EnergyTypes() {
		assert.NotEmpty(t, energyAdvice[e], e)
	}
	for _, w := range domain.TimeWeights() {
		assert.NotEmpty(t, timeWeightAdvice[w], w)
	}
}

func TestGenerateInsightsUnknownEnergyKeepsObservation(t *testing.T) {
	a := domain.PatternAnalysis{DominantEnergyType: ptr(domain.EnergyType("napping")), CompletionRate: 0.7, AverageTasksPerDay: 5, TotalTasks: 1}
	assert.Equal(t, []string{"Most of your tasks require napping."}, GenerateInsights(a))
}

func TestSentencesStopsEarly(t *testing.T) {
	var got []string
	for s := range Sentences(fullAnalysis()) {
		got = append(got, s)
		if len(got) == 2 {
			break
		}
	}
	assert.Len(t, got, 2)
}

func TestFormatHour(t *testing.T) {
	tests := map[int]string{0: "midnight", 12: "noon", 9: "9am", 21: "9pm", 13: "1pm", 11: "11am"}
	for hour, want := range tests {
		assert.Equal(t, want, FormatHour(hour), "hour %d", hour)
	}
}

func TestFormatMessage(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	got := FormatMessage(start, end, []domain.Insight{{Text: "one."}, {Text: "two."}})
	assert.Equal(t, "*Your week in review (Jan 5 - Jan 11)*\n• one.\n• two.", got)

	empty := FormatMessage(start, end, nil)
	assert.Contains(t, empty, "Not much to reflect on yet")
}
