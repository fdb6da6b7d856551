package server

import (
	"net/http"

	"github.com/showyourapp/backend/internal/db"
	"github.com/showyourapp/backend/internal/server/middleware"
	"github.com/showyourapp/backend/internal/types"
)

const maxSearchResults = 50

// handleListTags returns all listing tags.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	if tags == nil {
		tags = []types.Tag{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"tags": tags})
}

// handleListTools returns all builder tools.
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.store.ListTools(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list tools")
		return
	}
	if tools == nil {
		tools = []types.BuilderTool{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"tools": tools})
}

// handleSearchListings searches listings by URL fragment or title fragment.
// At least one of the url and title query parameters is required.
func (s *Server) handleSearchListings(w http.ResponseWriter, r *http.Request) {
	urlFragment := r.URL.Query().Get("url")
	titleFragment := r.URL.Query().Get("title")
	if urlFragment == "" && titleFragment == "" {
		s.errorResponse(w, http.StatusBadRequest, "provide a url or title query parameter")
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > maxSearchResults {
		limit = maxSearchResults
	}

	listings, err := s.store.SearchListings(r.Context(), urlFragment, titleFragment, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to search listings")
		return
	}
	if listings == nil {
		listings = []db.ListingSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"listings": listings})
}

// handleMyListings returns the authenticated user's listings.
func (s *Server) handleMyListings(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	listings, err := s.store.ListingsByCreator(r.Context(), userID, maxSearchResults)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list listings")
		return
	}
	if listings == nil {
		listings = []db.ListingSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"listings": listings})
}
