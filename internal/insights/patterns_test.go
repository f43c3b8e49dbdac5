package insights

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklens/internal/domain"
)

var weekStart = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func weekEnd() time.Time { return weekStart.AddDate(0, 0, 7) }

func taggedAt(created time.Time, completed bool, d domain.ActionDomain, e domain.EnergyType, w domain.TimeWeight) domain.TaggedTask {
	return domain.TaggedTask{
		Task: domain.Task{CreatedAt: created, Completed: completed},
		Tag:  &domain.TagAnalysis{ActionDomain: d, EnergyType: e, TimeWeight: w, ConfidenceScore: 0.8},
	}
}

func tagged(d domain.ActionDomain) domain.TaggedTask {
	return taggedAt(weekStart.Add(9*time.Hour), false, d, domain.LightActivity, domain.ModerateEffort)
}

func TestAnalyzePatternsEmpty(t *testing.T) {
	a, err := AnalyzePatterns(nil, weekStart, weekEnd())
	require.NoError(t, err)

	assert.Nil(t, a.DominantActionDomain)
	assert.Nil(t, a.DominantEnergyType)
	assert.Nil(t, a.DominantTimeWeight)
	assert.Zero(t, a.ByActionDomain.Len())
	assert.Zero(t, a.ByEnergyType.Len())
	assert.Zero(t, a.ByTimeWeight.Len())
	assert.Empty(t, a.MostProductiveHours)
	assert.Zero(t, a.CompletionRate)
	assert.Zero(t, a.AverageTasksPerDay)
	assert.Empty(t, GenerateInsights(a))
}

func TestAnalyzePatternsDominantShare(t *testing.T) {
	var tasks []domain.TaggedTask
	for range 7 {
		tasks = append(tasks, tagged(domain.WorkProject))
	}
	for range 3 {
		tasks = append(tasks, tagged(domain.HealthWellness))
	}

	a, err := AnalyzePatterns(tasks, weekStart, weekEnd())
	require.NoError(t, err)

	require.NotNil(t, a.DominantActionDomain)
	assert.Equal(t, domain.WorkProject, *a.DominantActionDomain)
	assert.Equal(t, 7, a.ByActionDomain.Count(domain.WorkProject))
	assert.Equal(t, 3, a.ByActionDomain.Count(domain.HealthWellness))
	assert.False(t, a.ByActionDomain.Has(domain.LearningGrowth))

	got := GenerateInsights(a)
	require.NotEmpty(t, got)
	assert.Equal(t, "You've been focusing heavily on work project, which makes up about 70% of your activities.", got[0])
}

func TestAnalyzePatternsTieKeepsFirstSeen(t *testing.T) {
	tasks := []domain.TaggedTask{
		tagged(domain.HealthWellness),
		tagged(domain.WorkProject),
		tagged(domain.WorkProject),
		tagged(domain.HealthWellness),
	}

	a, err := AnalyzePatterns(tasks, weekStart, weekEnd())
	require.NoError(t, err)
	require.NotNil(t, a.DominantActionDomain)
	assert.Equal(t, domain.HealthWellness, *a.DominantActionDomain)
}

func TestAnalyzePatternsCompletionRate(t *testing.T) {
	tasks := make([]domain.TaggedTask, 5)
	for i := range tasks {
		tasks[i] = tagged(domain.PersonalAdmin)
		tasks[i].Completed = i < 4
	}

	a, err := AnalyzePatterns(tasks, weekStart, weekEnd())
	require.NoError(t, err)
	assert.Equal(t, 0.8, a.CompletionRate)
	assert.Equal(t, 5, a.TotalTasks)
	assert.Equal(t, 4, a.CompletedTasks)

	for _, s := range GenerateInsights(a) {
		assert.NotContains(t, s, "You're completing")
	}
}

func TestAnalyzePatternsUntaggedTasks(t *testing.T) {
	tasks := []domain.TaggedTask{
		tagged(domain.LearningGrowth),
		{Task: domain.Task{CreatedAt: weekStart.Add(10 * time.Hour), Completed: true}},
	}

	a, err := AnalyzePatterns(tasks, weekStart, weekEnd())
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalTasks)
	assert.Equal(t, 0.5, a.CompletionRate)
	assert.Equal(t, 1, a.ByActionDomain.Total())
	assert.Equal(t, []int{9, 10}, a.MostProductiveHours)
}

func TestAnalyzePatternsProductiveHours(t *testing.T) {
	at := func(h int) domain.TaggedTask {
		return taggedAt(weekStart.Add(time.Duration(h)*time.Hour), false, domain.WorkProject, domain.DeepFocus, domain.DeepWork)
	}
	tasks := []domain.TaggedTask{at(21), at(14), at(9), at(14), at(8), at(9)}

	a, err := AnalyzePatterns(tasks, weekStart, weekEnd())
	require.NoError(t, err)
	assert.Equal(t, []int{9, 14, 8}, a.MostProductiveHours)
}

func TestAnalyzePatternsBucketsHoursInWindowLocation(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, zone)
	task := taggedAt(time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC), false, domain.WorkProject, domain.DeepFocus, domain.DeepWork)

	a, err := AnalyzePatterns([]domain.TaggedTask{task}, start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, []int{9}, a.MostProductiveHours)
}

func TestAnalyzePatternsAverageTasksPerDay(t *testing.T) {
	tests := []struct {
		name  string
		count int
		span  time.Duration
		want  float64
	}{
		{"week", 14, 7 * 24 * time.Hour, 2},
		{"same instant", 5, 0, 5},
		{"partial day rounds up", 4, 36 * time.Hour, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := make([]domain.TaggedTask, tt.count)
			for i := range tasks {
				tasks[i] = tagged(domain.PersonalAdmin)
			}
			a, err := AnalyzePatterns(tasks, weekStart, weekStart.Add(tt.span))
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.AverageTasksPerDay)
		})
	}
}

func TestAnalyzePatternsRejectsMalformedInput(t *testing.T) {
	_, err := AnalyzePatterns(nil, weekEnd(), weekStart)
	assert.True(t, domain.IsInputError(err))

	_, err = AnalyzePatterns([]domain.TaggedTask{{Task: domain.Task{ID: "t1"}}}, weekStart, weekEnd())
	require.Error(t, err)
	assert.True(t, domain.IsInputError(err))
	assert.Contains(t, err.Error(), "t1")
}

func TestAnalyzePatternsConcurrentCallsAreIndependent(t *testing.T) {
	work := []domain.TaggedTask{tagged(domain.WorkProject)}
	home := []domain.TaggedTask{tagged(domain.HomeMaintenance), tagged(domain.HomeMaintenance)}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a, err := AnalyzePatterns(work, weekStart, weekEnd())
			assert.NoError(t, err)
			assert.False(t, a.ByActionDomain.Has(domain.HomeMaintenance))
		}()
		go func() {
			defer wg.Done()
			a, err := AnalyzePatterns(home, weekStart, weekEnd())
			assert.NoError(t, err)
			assert.Equal(t, 2, a.ByActionDomain.Total())
		}()
	}
	wg.Wait()
}
