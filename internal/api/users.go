package api

import (
	"net/http"

	"github.com/jacentio/moorage/internal/auth"
)

type userInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

type health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := make([]userView, 0, len(users))
	for _, u := range users {
		resp = append(resp, userView{ID: u.ID, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUserInfo records the caller on first visit and echoes who they are.
func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if _, err := s.service.EnsureUser(r.Context(), id.Subject, id.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userInfo{Sub: id.Subject, Email: id.Email})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, health{Status: "ok", Version: s.version})
}
