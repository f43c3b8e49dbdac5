package insights

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tasklens/internal/domain"
	"tasklens/internal/metrics"
)

// TaskSource supplies tagged tasks created inside a window.
type TaskSource interface {
	GetTasksByDateRange(ctx context.Context, userID string, from, to time.Time) ([]domain.TaggedTask, error)
}

// Store persists generated insights and their viewed state.
type Store interface {
	InsertInsight(ctx context.Context, in domain.Insight) error
	GetUnviewedInsights(ctx context.Context, userID string) ([]domain.Insight, error)
	MarkInsightViewed(ctx context.Context, id string, at time.Time) error
}

type Service struct {
	tasks TaskSource
	store Store
	now   func() time.Time
}

func NewService(tasks TaskSource, store Store) *Service {
	return &Service{tasks: tasks, store: store, now: time.Now}
}

// CreateInsightsForPeriod analyzes the user's tasks in [start, end] and
// stores one insight per generated sentence. A sentence that fails to store
// is logged and skipped; the returned slice holds only stored insights.
func (s *Service) CreateInsightsForPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Insight, error) {
	if userID == "" {
		return nil, domain.NewInputError("user_id", "required")
	}
	tasks, err := s.tasks.GetTasksByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	analysis, err := AnalyzePatterns(tasks, start, end)
	if err != nil {
		return nil, err
	}

	created := s.now()
	var out []domain.Insight
	position := 0
	for text := range Sentences(analysis) {
		position++
		in := domain.Insight{
			ID:             uuid.NewString(),
			UserID:         userID,
			PeriodStart:    start,
			PeriodEnd:      end,
			Text:           text,
			Type:           domain.InsightTypeObservation,
			Position:       position,
			SupportingData: analysis,
			CreatedAt:      created,
		}
		if err := s.store.InsertInsight(ctx, in); err != nil {
			log.Printf("insights insert error user=%s: %v", userID, err)
			continue
		}
		out = append(out, in)
	}
	metrics.InsightsGenerated.Add(float64(len(out)))
	log.Printf("insights generated user=%s tasks=%d insights=%d range=%s..%s",
		userID, analysis.TotalTasks, len(out), start.Format("2006-01-02"), end.Format("2006-01-02"))
	return out, nil
}

func (s *Service) Unviewed(ctx context.Context, userID string) ([]domain.Insight, error) {
	return s.store.GetUnviewedInsights(ctx, userID)
}

func (s *Service) MarkViewed(ctx context.Context, id string) error {
	return s.store.MarkInsightViewed(ctx, id, s.now())
}
