package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tasklens/internal/domain"
)

func (s *Store) InsertInsight(ctx context.Context, in domain.Insight) error {
	data, err := json.Marshal(in.SupportingData)
	if err != nil {
		return fmt.Errorf("encode supporting data: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO insights (id, user_id, period_start, period_end, insight_text, insight_type, position, supporting_data, viewed, viewed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.PeriodStart.UTC(), in.PeriodEnd.UTC(), in.Text, in.Type, in.Position,
		string(data), in.Viewed, nullTime(in.ViewedAt), in.CreatedAt.UTC(),
	)
	return err
}

// GetUnviewedInsights returns the user's unviewed insights in creation order.
func (s *Store) GetUnviewedInsights(ctx context.Context, userID string) ([]domain.Insight, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, period_start, period_end, insight_text, insight_type, position, supporting_data, viewed, viewed_at, created_at
		 FROM insights
		 WHERE user_id = ? AND viewed = ?
		 ORDER BY created_at, position`,
		userID, false,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Insight
	for rows.Next() {
		var (
			in       domain.Insight
			data     string
			viewedAt sql.NullTime
		)
		if err := rows.Scan(&in.ID, &in.UserID, &in.PeriodStart, &in.PeriodEnd, &in.Text, &in.Type,
			&in.Position, &data, &in.Viewed, &viewedAt, &in.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &in.SupportingData); err != nil {
			return nil, fmt.Errorf("decode supporting data for insight %s: %w", in.ID, err)
		}
		if viewedAt.Valid {
			ts := viewedAt.Time
			in.ViewedAt = &ts
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) MarkInsightViewed(ctx context.Context, id string, at time.Time) error {
	res, err := s.exec(ctx,
		`UPDATE insights SET viewed = ?, viewed_at = ? WHERE id = ?`,
		true, at.UTC(), id,
	)
	return affectedOrNotFound(res, err)
}
