package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jacentio/moorage/internal/fleet"
)

// Error messages sent to clients as {"Error": msg}.
const (
	msgBadCredentials   = "Bad Credentials"
	msgBoatForbidden    = "Boat does not exist or is owned by someone else"
	msgLoadNotFound     = "Load does not exist"
	msgAlreadyCarried   = "The load is already loaded on another boat"
	msgNotCarried       = "No load with this load_id is on the boat with this boat_id"
	msgInvalidCursor    = "Cursor in request params not recognized"
	msgNotAcceptable    = "Endpoint only can respond with application/json data"
	msgMethodNotAllowed = "Method not allowed"
	msgRouteNotFound    = "Not found"
	msgInternal         = "Something went wrong on our end"
)

// errorBody is the single-field error payload.
type errorBody struct {
	Error string `json:"Error"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; the client may be gone
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes {"Error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeServiceError maps fleet errors to responses. Anything unrecognized
// is logged and reported as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fleet.ErrAlreadyCarried):
		writeError(w, http.StatusForbidden, msgAlreadyCarried)
	case errors.Is(err, fleet.ErrForbidden):
		writeError(w, http.StatusForbidden, msgBoatForbidden)
	case errors.Is(err, fleet.ErrNotCarried):
		writeError(w, http.StatusNotFound, msgNotCarried)
	case errors.Is(err, fleet.ErrNotFound):
		writeError(w, http.StatusNotFound, msgLoadNotFound)
	case errors.Is(err, fleet.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, msgInvalidCursor)
	default:
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
