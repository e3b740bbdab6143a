package web

import (
	"encoding/json"
	"net/http"

	"assessment-activation/internal/usecase"
)

// handleGenerateAnalysis is a best-effort passthrough: provider failures come
// back as success=false with HTTP 200 so the client falls back to its local
// type table.
func (s *Server) handleGenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.analysisUC == nil {
		writeJSON(w, http.StatusOK, usecase.AnalysisResult{
			Success: false,
			Error:   "ai analysis not configured",
		})
		return
	}

	var req usecase.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, s.analysisUC.Generate(r.Context(), &req))
}
