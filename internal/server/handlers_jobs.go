package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/showyourapp/backend/internal/schemas"
	"github.com/showyourapp/backend/internal/server/middleware"
	"github.com/showyourapp/backend/internal/types"
)

// submitJobRequest is the body of POST /jobs/ingestion. Posts stay raw until
// they pass schema validation.
type submitJobRequest struct {
	Source string          `json:"source"`
	Posts  json.RawMessage `json:"posts"`
}

// handleSubmitJob enqueues a new ingestion job. The job is durable
// immediately; processing starts when the worker picks it up.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.AgentConfigured() {
		err := &ErrAgentNotConfigured{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Source == "" {
		req.Source = "r/SideProject"
	}
	if len(req.Posts) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "posts is required")
		return
	}

	if err := schemas.ValidatePosts(req.Posts); err != nil {
		if _, ok := err.(*schemas.ValidationError); ok {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "failed to validate posts")
		return
	}

	var posts []types.Post
	if err := json.Unmarshal(req.Posts, &posts); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid posts payload")
		return
	}

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	job := &types.IngestionJob{
		Source:      req.Source,
		Posts:       posts,
		CreatedByID: userID,
	}
	id, err := s.store.CreateJob(r.Context(), job)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"id":          id,
		"status":      types.JobStatusPending,
		"total_posts": len(posts),
	})
}

// handleListJobs returns recent jobs, newest first. Post payloads are
// omitted from summaries.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := types.JobStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		s.errorResponse(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	jobs, total, err := s.store.ListJobs(r.Context(), status, limit, offset)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	for i := range jobs {
		jobs[i].Posts = nil
	}
	if jobs == nil {
		jobs = []types.IngestionJob{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"total": total,
	})
}

// handleGetJob returns a full job snapshot, including its log.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		notFound := &ErrJobNotFound{JobID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, job)
}

// handleCancelJob requests cooperative cancellation. A pending job will
// never start; a running job stops before its next post.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to get job")
		return
	}
	if job == nil {
		notFound := &ErrJobNotFound{JobID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	ok, err := s.store.RequestJobCancel(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to request cancellation")
		return
	}
	if !ok {
		finished := &ErrJobFinished{JobID: id}
		s.errorResponse(w, HTTPStatus(finished), finished.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"id":               id,
		"cancel_requested": true,
	})
}

// queryInt parses a non-negative integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
