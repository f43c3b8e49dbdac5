package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasklens/internal/domain"
)

const taskColumns = `t.id, t.user_id, t.title, t.description, t.completed, t.completed_at, t.created_at, t.updated_at,
	a.action_domain, a.energy_type, a.time_weight, a.confidence_score, a.reasoning, a.metadata`

const taskFrom = ` FROM tasks t LEFT JOIN auto_tags a ON a.task_id = t.id`

func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := s.exec(ctx,
		`INSERT INTO tasks (id, user_id, title, description, completed, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Completed, nullTime(t.CompletedAt),
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	return err
}

func (s *Store) GetTask(ctx context.Context, id string) (domain.TaggedTask, error) {
	row := s.queryRow(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTaggedTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, domain.ErrNotFound
	}
	return t, err
}

// ListTasks returns a user's tasks oldest first.
func (s *Store) ListTasks(ctx context.Context, userID string, includeCompleted bool) ([]domain.TaggedTask, error) {
	q := `SELECT ` + taskColumns + taskFrom + ` WHERE t.user_id = ?`
	args := []any{userID}
	if !includeCompleted {
		q += ` AND t.completed = ?`
		args = append(args, false)
	}
	return s.listTasks(ctx, q+` ORDER BY t.created_at, t.id`, args...)
}

// GetTasksByDateRange returns tasks created in [from, to).
func (s *Store) GetTasksByDateRange(ctx context.Context, userID string, from, to time.Time) ([]domain.TaggedTask, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+taskFrom+`
		 WHERE t.user_id = ? AND t.created_at >= ? AND t.created_at < ?
		 ORDER BY t.created_at, t.id`,
		userID, from.UTC(), to.UTC(),
	)
}

func (s *Store) listTasks(ctx context.Context, q string, args ...any) ([]domain.TaggedTask, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaggedTask
	for rows.Next() {
		t, err := scanTaggedTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpdateTaskText(ctx context.Context, id, title, description string, at time.Time) error {
	res, err := s.exec(ctx,
		`UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		title, description, at.UTC(), id,
	)
	return affectedOrNotFound(res, err)
}

// SetTaskCompleted records completion at the given time, or clears it.
func (s *Store) SetTaskCompleted(ctx context.Context, id string, completed bool, at time.Time) error {
	var completedAt any
	if completed {
		completedAt = at.UTC()
	}
	res, err := s.exec(ctx,
		`UPDATE tasks SET completed = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		completed, completedAt, at.UTC(), id,
	)
	return affectedOrNotFound(res, err)
}

// DeleteTask removes the task and its tag together.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM auto_tags WHERE task_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err := affectedOrNotFound(res, err); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) CountOpenTasksSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND completed = ? AND created_at >= ?`,
		userID, false, since.UTC(),
	).Scan(&n)
	return n, err
}

// UpsertTag stores the tag for a task, replacing any previous one whole.
func (s *Store) UpsertTag(ctx context.Context, taskID string, tag domain.TagAnalysis, at time.Time) error {
	meta, err := json.Marshal(tag.Metadata)
	if err != nil {
		return fmt.Errorf("encode tag metadata: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO auto_tags (task_id, action_domain, energy_type, time_weight, confidence_score, reasoning, metadata, tagged_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (task_id) DO UPDATE SET
		   action_domain = excluded.action_domain,
		   energy_type = excluded.energy_type,
		   time_weight = excluded.time_weight,
		   confidence_score = excluded.confidence_score,
		   reasoning = excluded.reasoning,
		   metadata = excluded.metadata,
		   tagged_at = excluded.tagged_at`,
		taskID, string(tag.ActionDomain), string(tag.EnergyType), string(tag.TimeWeight),
		tag.ConfidenceScore, tag.Reasoning, string(meta), at.UTC(),
	)
	return err
}

// DeleteTag removes a task's tag. A task without a tag is not an error.
func (s *Store) DeleteTag(ctx context.Context, taskID string) error {
	_, err := s.exec(ctx, `DELETE FROM auto_tags WHERE task_id = ?`, taskID)
	return err
}

// ListUntaggedTasks returns a user's tasks that have no tag yet.
func (s *Store) ListUntaggedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	tagged, err := s.listTasks(ctx,
		`SELECT `+taskColumns+taskFrom+`
		 WHERE t.user_id = ? AND a.task_id IS NULL
		 ORDER BY t.created_at, t.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(tagged))
	for _, t := range tagged {
		out = append(out, t.Task)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaggedTask(sc scanner) (domain.TaggedTask, error) {
	var (
		t           domain.TaggedTask
		completedAt sql.NullTime
		actionD     sql.NullString
		energy      sql.NullString
		weight      sql.NullString
		confidence  sql.NullFloat64
		reasoning   sql.NullString
		metadata    sql.NullString
	)
	err := sc.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &completedAt,
		&t.CreatedAt, &t.UpdatedAt,
		&actionD, &energy, &weight, &confidence, &reasoning, &metadata,
	)
	if err != nil {
		return t, err
	}
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	if !actionD.Valid {
		return t, nil
	}
	tag := &domain.TagAnalysis{
		ActionDomain:    domain.ActionDomain(actionD.String),
		EnergyType:      domain.EnergyType(energy.String),
		TimeWeight:      domain.TimeWeight(weight.String),
		ConfidenceScore: confidence.Float64,
		Reasoning:       reasoning.String,
	}
	if metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &tag.Metadata); err != nil {
			return t, fmt.Errorf("decode tag metadata for task %s: %w", t.ID, err)
		}
	}
	t.Tag = tag
	return t, nil
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
