package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	c := s.container
	err := c.DB.QuickCheck(r.Context())
	var days int
	if err == nil {
		days, err = c.ResultsRepo.Count()
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		writeJSON(w, s.log, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, s.log, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"service":      "streak-trainer",
		"algorithms":   len(c.Registry.List()),
		"result_days":  days,
		"worker":       c.Runner.Status().State,
		"stream_peers": s.hub.Subscribers(),
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes {"error": message} with status.
func writeError(w http.ResponseWriter, log zerolog.Logger, status int, message string) {
	writeJSON(w, log, status, map[string]string{"error": message})
}
