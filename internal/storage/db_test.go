package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tasklens/internal/domain"
)

func newTestDB(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasklens-test.db")
	s, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTask(id, user, title string, created time.Time) domain.Task {
	return domain.Task{ID: id, UserID: user, Title: title, CreatedAt: created, UpdatedAt: created}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		s, err := Open(DriverSQLite, path)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i, err)
		}
		_ = s.Close()
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	got := pg.rebind(`SELECT * FROM tasks WHERE user_id = ? AND created_at >= ? AND created_at < ?`)
	want := `SELECT * FROM tasks WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`
	if got != want {
		t.Fatalf("rebind postgres:\n got %q\nwant %q", got, want)
	}

	lite := &Store{driver: DriverSQLite}
	q := `SELECT 1 WHERE a = ?`
	if lite.rebind(q) != q {
		t.Fatalf("sqlite query should be unchanged")
	}
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	if err := s.CreateTask(ctx, newTask("t1", "U1", "Morning run", base)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := s.CreateTask(ctx, newTask("t2", "U1", "Pay rent", base.Add(time.Hour))); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if err := s.CreateTask(ctx, newTask("t3", "U2", "Someone else's task", base)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != "Morning run" || got.Tagged() || got.Completed {
		t.Fatalf("unexpected task: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, base)
	}

	if err := s.UpdateTaskText(ctx, "t1", "Evening run", "5k", base.Add(2*time.Hour)); err != nil {
		t.Fatalf("UpdateTaskText failed: %v", err)
	}
	done := base.Add(3 * time.Hour)
	if err := s.SetTaskCompleted(ctx, "t1", true, done); err != nil {
		t.Fatalf("SetTaskCompleted failed: %v", err)
	}
	got, _ = s.GetTask(ctx, "t1")
	if got.Title != "Evening run" || got.Description != "5k" {
		t.Fatalf("text not updated: %+v", got.Task)
	}
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Fatalf("completion not recorded: %+v", got.Task)
	}

	open, err := s.ListTasks(ctx, "U1", false)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != "t2" {
		t.Fatalf("open tasks = %+v, want only t2", open)
	}
	all, _ := s.ListTasks(ctx, "U1", true)
	if len(all) != 2 || all[0].ID != "t1" {
		t.Fatalf("all tasks = %+v, want t1,t2", all)
	}

	if err := s.SetTaskCompleted(ctx, "t1", false, done); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, _ = s.GetTask(ctx, "t1")
	if got.Completed || got.CompletedAt != nil {
		t.Fatalf("reopen should clear completion: %+v", got.Task)
	}

	n, err := s.CountOpenTasksSince(ctx, "U1", base)
	if err != nil || n != 2 {
		t.Fatalf("CountOpenTasksSince = %d, %v; want 2", n, err)
	}
}

func TestMissingRowsReturnNotFound(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	checks := map[string]error{}
	_, checks["GetTask"] = s.GetTask(ctx, "nope")
	checks["UpdateTaskText"] = s.UpdateTaskText(ctx, "nope", "a", "b", now)
	checks["SetTaskCompleted"] = s.SetTaskCompleted(ctx, "nope", true, now)
	checks["DeleteTask"] = s.DeleteTask(ctx, "nope")
	checks["MarkInsightViewed"] = s.MarkInsightViewed(ctx, "nope", now)

	for name, err := range checks {
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestTagsUpsertAndDeleteCascade(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	_ = s.CreateTask(ctx, newTask("t1", "U1", "Gym session", base))
	_ = s.CreateTask(ctx, newTask("t2", "U1", "Untagged", base.Add(time.Minute)))

	first := domain.TagAnalysis{
		ActionDomain: domain.HealthWellness, EnergyType: domain.PhysicalActivity, TimeWeight: domain.ModerateEffort,
		ConfidenceScore: 0.85, Reasoning: "first", Metadata: map[string]any{"method": "keyword_heuristic"},
	}
	if err := s.UpsertTag(ctx, "t1", first, base); err != nil {
		t.Fatalf("UpsertTag failed: %v", err)
	}
	second := first
	second.ActionDomain = domain.WorkProject
	second.Reasoning = "second"
	second.Metadata = nil
	if err := s.UpsertTag(ctx, "t1", second, base.Add(time.Hour)); err != nil {
		t.Fatalf("UpsertTag replace failed: %v", err)
	}

	got, _ := s.GetTask(ctx, "t1")
	if got.Tag == nil || got.Tag.ActionDomain != domain.WorkProject || got.Tag.Reasoning != "second" {
		t.Fatalf("tag not replaced: %+v", got.Tag)
	}
	if got.Tag.Metadata != nil {
		t.Fatalf("metadata should be replaced whole, got %v", got.Tag.Metadata)
	}

	untagged, err := s.ListUntaggedTasks(ctx, "U1")
	if err != nil {
		t.Fatalf("ListUntaggedTasks failed: %v", err)
	}
	if len(untagged) != 1 || untagged[0].ID != "t2" {
		t.Fatalf("untagged = %+v, want t2", untagged)
	}

	if err := s.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	var tags int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM auto_tags WHERE task_id = 't1'`).Scan(&tags); err != nil {
		t.Fatalf("count tags: %v", err)
	}
	if tags != 0 {
		t.Fatalf("tag should be deleted with its task, found %d", tags)
	}
}

func TestGetTasksByDateRange(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	_ = s.CreateTask(ctx, newTask("before", "U1", "a", monday.Add(-time.Minute)))
	_ = s.CreateTask(ctx, newTask("start", "U1", "b", monday))
	_ = s.CreateTask(ctx, newTask("mid", "U1", "c", monday.Add(72*time.Hour)))
	_ = s.CreateTask(ctx, newTask("end", "U1", "d", monday.AddDate(0, 0, 7)))
	_ = s.CreateTask(ctx, newTask("other", "U2", "e", monday.Add(time.Hour)))
	_ = s.UpsertTag(ctx, "mid", domain.TagAnalysis{ActionDomain: domain.WorkProject, EnergyType: domain.DeepFocus, TimeWeight: domain.DeepWork, ConfidenceScore: 0.8}, monday)

	got, err := s.GetTasksByDateRange(ctx, "U1", monday, monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("GetTasksByDateRange failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "start" || got[1].ID != "mid" {
		t.Fatalf("range = %+v, want start,mid", got)
	}
	if got[0].Tagged() || !got[1].Tagged() {
		t.Fatalf("tag join wrong: start=%v mid=%v", got[0].Tag, got[1].Tag)
	}
}
