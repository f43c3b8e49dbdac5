// Package httpapi serves tasks, tags and insights as JSON over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"tasklens/internal/domain"
	"tasklens/internal/metrics"
	"tasklens/internal/tagging"
	"tasklens/internal/tasks"
)

// UserHeader identifies the caller. Authentication happens upstream.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

type TaskService interface {
	Create(ctx context.Context, userID, title, description string) (domain.TaggedTask, error)
	List(ctx context.Context, userID string, includeCompleted bool) ([]domain.TaggedTask, error)
	Update(ctx context.Context, userID, id, title, description string) (domain.TaggedTask, error)
	Complete(ctx context.Context, userID, id string) (domain.TaggedTask, error)
	Reopen(ctx context.Context, userID, id string) (domain.TaggedTask, error)
	Delete(ctx context.Context, userID, id string) error
	RetagUntagged(ctx context.Context, userID string) (int, error)
}

type InsightService interface {
	CreateInsightsForPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Insight, error)
	Unviewed(ctx context.Context, userID string) ([]domain.Insight, error)
	MarkViewed(ctx context.Context, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	AllowedOrigins []string
	Location       *time.Location
	MondayCutoff   string
}

type Server struct {
	tasks      TaskService
	insights   InsightService
	classifier tagging.Classifier
	db         Pinger
	opts       Options
	now        func() time.Time
}

func NewServer(taskSvc TaskService, insightSvc InsightService, classifier tagging.Classifier, db Pinger, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Server{
		tasks:      taskSvc,
		insights:   insightSvc,
		classifier: classifier,
		db:         db,
		opts:       opts,
		now:        time.Now,
	}
}

// Handler returns the routed API wrapped with CORS and request accounting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.route(mux, "POST /classify", s.handleClassify)
	s.route(mux, "POST /tasks", s.handleCreateTask)
	s.route(mux, "GET /tasks", s.handleListTasks)
	s.route(mux, "PATCH /tasks/{id}", s.handleUpdateTask)
	s.route(mux, "DELETE /tasks/{id}", s.handleDeleteTask)
	s.route(mux, "POST /tasks/{id}/complete", s.handleCompleteTask)
	s.route(mux, "POST /tasks/{id}/reopen", s.handleReopenTask)
	s.route(mux, "POST /tasks/retag", s.handleRetag)
	s.route(mux, "POST /insights/generate", s.handleGenerateInsights)
	s.route(mux, "GET /insights", s.handleListInsights)
	s.route(mux, "POST /insights/{id}/viewed", s.handleMarkViewed)
	s.route(mux, "GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", UserHeader},
	})
	return c.Handler(mux)
}

// Serve runs the API on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown error: %v", err)
		}
	}()

	log.Printf("HTTP API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsInputError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, tasks.ErrTaskLimit):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		log.Printf("http error method=%s path=%s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
		return "", false
	}
	return userID, true
}
