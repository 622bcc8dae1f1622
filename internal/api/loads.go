package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacentio/moorage/internal/fleet"
	"github.com/jacentio/moorage/internal/validation"
)

// loadID parses {loadID}; a non-numeric id is reported as not found.
func loadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(chi.URLParam(r, "loadID"))
	if !ok {
		writeError(w, http.StatusNotFound, msgLoadNotFound)
	}
	return id, ok
}

func (s *Server) handleCreateLoad(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	in, verr := validation.Load(body, false)
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	load, err := s.service.CreateLoad(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, linksFor(r).loadView(load))
}

func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListLoads(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	l := linksFor(r)
	resp := loadList{
		Loads: make([]loadView, 0, len(page.Items)),
		Count: page.Count,
		Next:  l.next("/loads", page.Cursor),
	}
	for _, ld := range page.Items {
		resp.Loads = append(resp.Loads, l.loadView(ld))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := loadID(w, r)
	if !ok {
		return
	}
	load, err := s.service.GetLoad(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linksFor(r).loadView(load))
}

func (s *Server) handleReplaceLoad(w http.ResponseWriter, r *http.Request) {
	s.updateLoad(w, r, false)
}

func (s *Server) handlePatchLoad(w http.ResponseWriter, r *http.Request) {
	s.updateLoad(w, r, true)
}

func (s *Server) updateLoad(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := loadID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	in, verr := validation.Load(body, partial)
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	var (
		load fleet.Load
		err  error
	)
	if partial {
		load, err = s.service.PatchLoad(r.Context(), id, in)
	} else {
		load, err = s.service.ReplaceLoad(r.Context(), id, in)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linksFor(r).loadView(load))
}

func (s *Server) handleDeleteLoad(w http.ResponseWriter, r *http.Request) {
	id, ok := loadID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteLoad(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
