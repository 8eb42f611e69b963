package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dugongyete-ui/agent-manus/model"
)

type selectModelRequest struct {
	Model string `json:"model"`
}

func (s *Server) router() *model.Router { return s.run.Agent().Router() }

// handleListModels serves the catalog, optionally filtered by category.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{
		"models":     s.router().Models(category),
		"current":    s.router().Current(),
		"categories": model.CategoryDescriptions,
	})
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	var req selectModelRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody)
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, errors.New("Model ID is required"))
		return
	}
	if err := s.selectModel(req.Model); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"current": s.router().Current(),
	})
}

func (s *Server) handleModelStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"current_model": s.router().Current(),
		"retry_stats":   s.router().RetryStats(),
	})
}

func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	state := "idle"
	if len(s.run.ActiveRuns()) > 0 {
		state = "running"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":          state,
		"tools":          s.run.Agent().Dispatcher().Registry().Names(),
		"max_iterations": s.run.Agent().MaxIterations(),
	})
}

// selectModel switches the active model, rejecting IDs outside the
// registry with the list of valid ones.
func (s *Server) selectModel(id string) error {
	if err := s.router().Select(id); err != nil {
		available := make([]string, 0)
		for _, info := range s.router().Models("") {
			available = append(available, info.ID)
		}
		return fmt.Errorf("Model '%s' tidak tersedia. Model yang tersedia: %s",
			id, strings.Join(available, ", "))
	}
	return nil
}
