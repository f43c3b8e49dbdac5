// Package tasks owns the task lifecycle: every text change is followed by a
// full re-tag so a task never carries a tag computed from stale text.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"tasklens/internal/domain"
	"tasklens/internal/metrics"
	"tasklens/internal/tagging"
)

// ErrTaskLimit is returned by Create when the user already has the maximum
// number of open tasks for the day.
var ErrTaskLimit = errors.New("open task limit reached for today")

type Store interface {
	CreateTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, id string) (domain.TaggedTask, error)
	ListTasks(ctx context.Context, userID string, includeCompleted bool) ([]domain.TaggedTask, error)
	UpdateTaskText(ctx context.Context, id, title, description string, at time.Time) error
	SetTaskCompleted(ctx context.Context, id string, completed bool, at time.Time) error
	DeleteTask(ctx context.Context, id string) error
	CountOpenTasksSince(ctx context.Context, userID string, since time.Time) (int, error)
	UpsertTag(ctx context.Context, taskID string, tag domain.TagAnalysis, at time.Time) error
	DeleteTag(ctx context.Context, taskID string) error
	ListUntaggedTasks(ctx context.Context, userID string) ([]domain.Task, error)
	InsertClassificationHistory(ctx context.Context, r domain.ClassificationRecord) error
}

type Options struct {
	// MaxOpenTasks caps open tasks created per day; 0 disables the cap.
	MaxOpenTasks        int
	ClassifyConcurrency int
	Location            *time.Location
}

type Service struct {
	store      Store
	classifier tagging.Classifier
	opts       Options
	now        func() time.Time
}

func NewService(store Store, classifier tagging.Classifier, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{store: store, classifier: classifier, opts: opts, now: time.Now}
}

// Create stores a new task and tags it. A tagging failure leaves the task
// untagged rather than failing the create.
func (s *Service) Create(ctx context.Context, userID, title, description string) (domain.TaggedTask, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if userID == "" {
		return domain.TaggedTask{}, domain.NewInputError("user_id", "required")
	}
	if title == "" {
		return domain.TaggedTask{}, domain.NewInputError("title", "required")
	}

	now := s.now()
	if s.opts.MaxOpenTasks > 0 {
		open, err := s.store.CountOpenTasksSince(ctx, userID, domain.DayStart(now.In(s.opts.Location)))
		if err != nil {
			return domain.TaggedTask{}, fmt.Errorf("count open tasks: %w", err)
		}
		if open >= s.opts.MaxOpenTasks {
			return domain.TaggedTask{}, ErrTaskLimit
		}
	}

	t := domain.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return domain.TaggedTask{}, fmt.Errorf("create task: %w", err)
	}

	out := domain.TaggedTask{Task: t}
	tag, err := s.tag(ctx, t)
	if err != nil {
		log.Printf("tasks tag error task=%s user=%s: %v", t.ID, userID, err)
		return out, nil
	}
	out.Tag = &tag
	return out, nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (domain.TaggedTask, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return domain.TaggedTask{}, err
	}
	if t.UserID != userID {
		return domain.TaggedTask{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, userID string, includeCompleted bool) ([]domain.TaggedTask, error) {
	return s.store.ListTasks(ctx, userID, includeCompleted)
}

// Update replaces the task text and, when it changed, the whole tag.
func (s *Service) Update(ctx context.Context, userID, id, title, description string) (domain.TaggedTask, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return domain.TaggedTask{}, domain.NewInputError("title", "required")
	}
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.TaggedTask{}, err
	}
	if cur.Title == title && cur.Description == description {
		return cur, nil
	}

	now := s.now()
	if err := s.store.UpdateTaskText(ctx, id, title, description, now); err != nil {
		return domain.TaggedTask{}, fmt.Errorf("update task: %w", err)
	}
	cur.Title, cur.Description, cur.UpdatedAt = title, description, now

	tag, err := s.tag(ctx, cur.Task)
	if err != nil {
		log.Printf("tasks retag error task=%s user=%s: %v", id, userID, err)
		cur.Tag = nil
		if err := s.store.DeleteTag(ctx, id); err != nil {
			return cur, fmt.Errorf("clear stale tag: %w", err)
		}
		return cur, nil
	}
	cur.Tag = &tag
	return cur, nil
}

func (s *Service) Complete(ctx context.Context, userID, id string) (domain.TaggedTask, error) {
	return s.setCompleted(ctx, userID, id, true)
}

func (s *Service) Reopen(ctx context.Context, userID, id string) (domain.TaggedTask, error) {
	return s.setCompleted(ctx, userID, id, false)
}

func (s *Service) setCompleted(ctx context.Context, userID, id string, completed bool) (domain.TaggedTask, error) {
	cur, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.TaggedTask{}, err
	}
	now := s.now()
	if err := s.store.SetTaskCompleted(ctx, id, completed, now); err != nil {
		return domain.TaggedTask{}, err
	}
	cur.Completed = completed
	cur.CompletedAt = nil
	if completed {
		cur.CompletedAt = &now
	}
	cur.UpdatedAt = now
	return cur, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteTask(ctx, id)
}

// RetagUntagged tags every task of the user that has no tag. Items that fail
// are reported through the returned *tagging.BatchError; the rest are stored.
func (s *Service) RetagUntagged(ctx context.Context, userID string) (int, error) {
	pending, err := s.store.ListUntaggedTasks(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list untagged: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	items := make([]tagging.BatchItem, len(pending))
	for i, t := range pending {
		items[i] = tagging.BatchItem{Title: t.Title, Description: t.Description}
	}
	results, batchErr := tagging.ClassifyBatch(ctx, s.classifier, items, s.opts.ClassifyConcurrency)

	var be *tagging.BatchError
	if batchErr != nil && !errors.As(batchErr, &be) {
		return 0, batchErr
	}
	if be != nil {
		metrics.BatchFailures.Add(float64(len(be.Failed)))
	}

	stored := 0
	for i, res := range results {
		if res.Err != nil {
			log.Printf("tasks retag skipped task=%s: %v", pending[i].ID, res.Err)
			continue
		}
		if err := s.save(ctx, pending[i].ID, res.Analysis); err != nil {
			return stored, err
		}
		stored++
	}
	log.Printf("tasks retag user=%s pending=%d stored=%d", userID, len(pending), stored)
	return stored, batchErr
}

func (s *Service) tag(ctx context.Context, t domain.Task) (domain.TagAnalysis, error) {
	tag, err := s.classifier.ClassifyTask(ctx, t.Title, t.Description)
	if err != nil {
		return domain.TagAnalysis{}, err
	}
	if err := tagging.Validate(tag); err != nil {
		return domain.TagAnalysis{}, err
	}
	if err := s.save(ctx, t.ID, tag); err != nil {
		return domain.TagAnalysis{}, err
	}
	return tag, nil
}

// save replaces the stored tag and appends it to the classification log.
func (s *Service) save(ctx context.Context, taskID string, tag domain.TagAnalysis) error {
	now := s.now()
	if err := s.store.UpsertTag(ctx, taskID, tag, now); err != nil {
		return fmt.Errorf("store tag: %w", err)
	}
	rec := domain.ClassificationRecord{
		TaskID:          taskID,
		ActionDomain:    tag.ActionDomain,
		EnergyType:      tag.EnergyType,
		TimeWeight:      tag.TimeWeight,
		ConfidenceScore: tag.ConfidenceScore,
		Method:          tag.Method(),
		FallbackReason:  metaString(tag.Metadata, "fallback_reason"),
		LLMProvider:     metaString(tag.Metadata, "provider"),
		LLMModel:        metaString(tag.Metadata, "model"),
		ClassifiedAt:    now,
	}
	if err := s.store.InsertClassificationHistory(ctx, rec); err != nil {
		log.Printf("tasks classification history error task=%s: %v", taskID, err)
	}
	metrics.ObserveTag(string(tag.ActionDomain), string(tag.EnergyType), string(tag.TimeWeight), rec.Method)
	return nil
}

func metaString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
