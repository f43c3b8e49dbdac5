package storage

import (
	"context"
	"time"

	"tasklens/internal/domain"
)

func (s *Store) InsertClassificationHistory(ctx context.Context, r domain.ClassificationRecord) error {
	at := r.ClassifiedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO classification_history
		 (task_id, action_domain, energy_type, time_weight, confidence, method, fallback_reason, llm_provider, llm_model, classified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TaskID, string(r.ActionDomain), string(r.EnergyType), string(r.TimeWeight), r.ConfidenceScore,
		r.Method, r.FallbackReason, r.LLMProvider, r.LLMModel, at.UTC(),
	)
	return err
}

// GetClassificationHistory returns a task's tagging log, newest first.
func (s *Store) GetClassificationHistory(ctx context.Context, taskID string) ([]domain.ClassificationRecord, error) {
	rows, err := s.query(ctx,
		`SELECT id, task_id, action_domain, energy_type, time_weight, confidence, method, fallback_reason, llm_provider, llm_model, classified_at
		 FROM classification_history
		 WHERE task_id = ?
		 ORDER BY classified_at DESC, id DESC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClassificationRecord
	for rows.Next() {
		var r domain.ClassificationRecord
		if err := rows.Scan(&r.ID, &r.TaskID, &r.ActionDomain, &r.EnergyType, &r.TimeWeight, &r.ConfidenceScore,
			&r.Method, &r.FallbackReason, &r.LLMProvider, &r.LLMModel, &r.ClassifiedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetClassificationStats(ctx context.Context, since time.Time) (domain.ClassificationStats, error) {
	var st domain.ClassificationStats
	err := s.queryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0),
		        COALESCE(SUM(CASE WHEN fallback_reason <> '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence < 0.50 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.50 AND confidence < 0.70 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.70 AND confidence < 0.90 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN confidence >= 0.90 THEN 1 ELSE 0 END), 0)
		 FROM classification_history WHERE classified_at >= ?`,
		since.UTC(),
	).Scan(&st.TotalClassifications, &st.AvgConfidence, &st.FallbackCount,
		&st.BucketBelow50, &st.Bucket50to70, &st.Bucket70to90, &st.Bucket90Plus)
	if err != nil {
		return st, err
	}

	rows, err := s.query(ctx,
		`SELECT action_domain, COUNT(*) AS cnt
		 FROM classification_history
		 WHERE classified_at >= ?
		 GROUP BY action_domain
		 ORDER BY cnt DESC, action_domain`,
		since.UTC(),
	)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.CategoryCount[domain.ActionDomain]
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return st, err
		}
		st.ByActionDomain = append(st.ByActionDomain, c)
	}
	return st, rows.Err()
}
