package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tasklens/internal/domain"
	"tasklens/internal/tagging"
)

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type taskResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Completed   bool                `json:"completed"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Tag         *domain.TagAnalysis `json:"tag,omitempty"`
}

type insightResponse struct {
	ID          string                 `json:"id"`
	Text        string                 `json:"text"`
	Type        string                 `json:"type"`
	Position    int                    `json:"position"`
	PeriodStart time.Time              `json:"period_start"`
	PeriodEnd   time.Time              `json:"period_end"`
	Analysis    domain.PatternAnalysis `json:"supporting_data"`
	CreatedAt   time.Time              `json:"created_at"`
}

type generateRequest struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

func toTaskResponse(t domain.TaggedTask) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		Tag:         t.Tag,
	}
}

func toInsightResponses(list []domain.Insight) []insightResponse {
	out := make([]insightResponse, 0, len(list))
	for _, in := range list {
		out = append(out, insightResponse{
			ID:          in.ID,
			Text:        in.Text,
			Type:        in.Type,
			Position:    in.Position,
			PeriodStart: in.PeriodStart,
			PeriodEnd:   in.PeriodEnd,
			Analysis:    in.SupportingData,
			CreatedAt:   in.CreatedAt,
		})
	}
	return out
}

// handleClassify tags free text without storing anything.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := s.classifier.ClassifyTask(r.Context(), req.Title, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.tasks.Create(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(t))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	includeCompleted, _ := strconv.ParseBool(r.URL.Query().Get("include_completed"))
	list, err := s.tasks.List(r.Context(), userID, includeCompleted)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpdateTask replaces the task text; a changed text is re-tagged.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.tasks.Update(r.Context(), userID, r.PathValue("id"), req.Title, req.Description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.tasks.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	s.setCompleted(w, r, s.tasks.Complete)
}

func (s *Server) handleReopenTask(w http.ResponseWriter, r *http.Request) {
	s.setCompleted(w, r, s.tasks.Reopen)
}

func (s *Server) setCompleted(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id string) (domain.TaggedTask, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	t, err := fn(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

type retagResponse struct {
	Retagged int `json:"retagged"`
	Failed   int `json:"failed"`
}

// handleRetag backfills tags for the caller's untagged tasks. Items that fail
// again are counted, not treated as a request error.
func (s *Server) handleRetag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := s.tasks.RetagUntagged(r.Context(), userID)
	var be *tagging.BatchError
	if err != nil && !errors.As(err, &be) {
		writeServiceError(w, r, err)
		return
	}
	resp := retagResponse{Retagged: n}
	if be != nil {
		resp.Failed = len(be.Failed)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGenerateInsights defaults to the current insight week when the body
// names no window.
func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	start, end := domain.InsightWeekRange(s.now().In(s.opts.Location), s.opts.MondayCutoff)
	if req.Start != nil || req.End != nil {
		if req.Start == nil || req.End == nil {
			writeError(w, http.StatusBadRequest, "start and end must be given together")
			return
		}
		start, end = *req.Start, *req.End
	}
	list, err := s.insights.CreateInsightsForPeriod(r.Context(), userID, start, end)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInsightResponses(list))
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := s.insights.Unviewed(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInsightResponses(list))
}

func (s *Server) handleMarkViewed(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	if err := s.insights.MarkViewed(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
