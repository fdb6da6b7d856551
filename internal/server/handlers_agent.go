package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/showyourapp/backend/internal/agent"
	"github.com/showyourapp/backend/internal/llm"
	"github.com/showyourapp/backend/internal/server/middleware"
)

// AgentRunner runs one ad-hoc agent task on behalf of a user. *agent.Runner
// satisfies it.
type AgentRunner interface {
	Run(ctx context.Context, ownerID uuid.UUID, task string) (*agent.Result, error)
}

// handleAgentStatus reports which ingestion subsystems this deployment has
// configured. Operators use it to tell a misconfigured worker from an idle
// one.
func (s *Server) handleAgentStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"agent_configured":      s.cfg.AgentConfigured(),
		"agent_model":           llm.DefaultConfig().GetModel(llm.TierAdvanced),
		"browser_headless":      s.cfg.AgentHeadless,
		"media_uploads_enabled": s.cfg.MediaIssuerURL != "",
		"notifications_enabled": s.cfg.TelegramBotToken != "" && s.cfg.TelegramChatID != "",
		"reddit_enabled":        s.cfg.RedditClientID != "" && s.cfg.RedditClientSecret != "",
		"public_base_url":       s.cfg.PublicBaseURL,
		"poll_interval_seconds": int(s.cfg.PollInterval.Seconds()),
	})
}

// agentRunRequest is the body of POST /agent/run.
type agentRunRequest struct {
	Prompt string `json:"prompt"`
}

// handleAgentRun runs the agent once with an operator-supplied prompt,
// outside any ingestion job. The request blocks until the run concludes.
func (s *Server) handleAgentRun(w http.ResponseWriter, r *http.Request) {
	if s.agentRunner == nil {
		err := &ErrAgentNotConfigured{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var req agentRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.errorResponse(w, http.StatusBadRequest, "prompt is required")
		return
	}

	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	result, err := s.agentRunner.Run(r.Context(), userID, req.Prompt)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "agent run failed")
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success":     true,
		"result":      result.Summary,
		"listing_ids": result.CreatedIDs,
	})
}
