package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// route binds handlers to a pattern. Every other verb on the pattern gets
// 405 with an Allow header naming the bound verbs.
func route(r chi.Router, pattern string, handlers map[string]http.HandlerFunc) {
	allowed := make([]string, 0, len(handlers))
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if _, ok := handlers[m]; ok {
			allowed = append(allowed, m)
		}
	}
	r.HandleFunc(pattern, methodNotAllowed(strings.Join(allowed, ", ")))
	for m, h := range handlers {
		r.MethodFunc(m, pattern, h)
	}
}

func methodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if allow != "" {
			w.Header().Set("Allow", allow)
		}
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

// buildRouter creates the router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, msgRouteNotFound)
	})
	r.MethodNotAllowed(methodNotAllowed(""))

	json := acceptJSON
	authed := s.authMiddleware

	route(r, "/healthz", map[string]http.HandlerFunc{
		http.MethodGet: json(s.handleHealth),
	})

	// Boats are owned, so every verb authenticates first.
	route(r, "/boats", map[string]http.HandlerFunc{
		http.MethodGet:  authed(json(s.handleListBoats)),
		http.MethodPost: authed(json(s.handleCreateBoat)),
	})
	route(r, "/boats/{boatID}", map[string]http.HandlerFunc{
		http.MethodGet:    authed(json(s.handleGetBoat)),
		http.MethodPut:    authed(json(s.handleReplaceBoat)),
		http.MethodPatch:  authed(json(s.handlePatchBoat)),
		http.MethodDelete: authed(s.handleDeleteBoat),
	})
	route(r, "/boats/{boatID}/loads/{loadID}", map[string]http.HandlerFunc{
		http.MethodPut:    authed(s.handleAssignLoad),
		http.MethodDelete: authed(s.handleUnassignLoad),
	})

	route(r, "/loads", map[string]http.HandlerFunc{
		http.MethodGet:  json(s.handleListLoads),
		http.MethodPost: json(s.handleCreateLoad),
	})
	route(r, "/loads/{loadID}", map[string]http.HandlerFunc{
		http.MethodGet:    json(s.handleGetLoad),
		http.MethodPut:    json(s.handleReplaceLoad),
		http.MethodPatch:  json(s.handlePatchLoad),
		http.MethodDelete: s.handleDeleteLoad,
	})

	route(r, "/users", map[string]http.HandlerFunc{
		http.MethodGet: json(s.handleListUsers),
	})
	route(r, "/userinfo", map[string]http.HandlerFunc{
		http.MethodGet: authed(json(s.handleUserInfo)),
	})

	return r
}
