package domain

import "time"

type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Text is what the classifier reads: title and description joined by a space.
func (t Task) Text() string {
	return t.Title + " " + t.Description
}

// TaggedTask joins a task with at most one tag. Tag is nil while tagging is
// pending or after it failed.
type TaggedTask struct {
	Task
	Tag *TagAnalysis
}

func (t TaggedTask) Tagged() bool {
	return t.Tag != nil
}
