package server

import (
	"encoding/json"
	"net/http"

	"credential-hub/internal/errorkit"
	"credential-hub/pkg/dispatch"
)

// handleMessage decodes a dispatch.Message from the request body, runs it
// through the dispatcher, and writes back its JSON result.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "malformed message envelope")
		return
	}

	out, err := s.dispatcher.Dispatch(r.Context(), msg)
	if err != nil {
		s.writeErrorResponse(w, statusForError(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// statusForError maps an errorkit sentinel to the HTTP status code that
// best describes it.
func statusForError(err error) int {
	switch {
	case errorkit.Is(err, errorkit.ErrUnsupportedMessage):
		return http.StatusNotFound
	case errorkit.Is(err, errorkit.ErrMalformed),
		errorkit.Is(err, errorkit.ErrAttributeMismatch),
		errorkit.Is(err, errorkit.ErrUnknownAttribute),
		errorkit.Is(err, errorkit.ErrMissingArtifact),
		errorkit.Is(err, errorkit.ErrNotIssued),
		errorkit.Is(err, errorkit.ErrAlreadyRevoked),
		errorkit.Is(err, errorkit.ErrCapacityExhausted):
		return http.StatusBadRequest
	case errorkit.Is(err, errorkit.ErrRegistryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		s.logger.Error("failed to encode error response", err)
	}
}
