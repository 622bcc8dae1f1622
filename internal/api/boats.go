package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacentio/moorage/internal/auth"
	"github.com/jacentio/moorage/internal/fleet"
	"github.com/jacentio/moorage/internal/validation"
)

// caller returns the authenticated subject. Routes using it sit behind
// authMiddleware.
func caller(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.Subject
}

// boatID parses {boatID}. A non-numeric id can name no boat, which is
// reported as forbidden like any other missing boat.
func boatID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(chi.URLParam(r, "boatID"))
	if !ok {
		writeError(w, http.StatusForbidden, msgBoatForbidden)
	}
	return id, ok
}

func (s *Server) handleCreateBoat(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	in, verr := validation.Boat(body, false)
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	boat, err := s.service.CreateBoat(r.Context(), caller(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, linksFor(r).boatView(boat))
}

func (s *Server) handleListBoats(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListBoats(r.Context(), caller(r), r.URL.Query().Get("cursor"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	l := linksFor(r)
	resp := boatList{
		Boats: make([]boatView, 0, len(page.Items)),
		Count: page.Count,
		Next:  l.next("/boats", page.Cursor),
	}
	for _, b := range page.Items {
		resp.Boats = append(resp.Boats, l.boatView(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBoat(w http.ResponseWriter, r *http.Request) {
	id, ok := boatID(w, r)
	if !ok {
		return
	}
	boat, err := s.service.GetBoat(r.Context(), caller(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linksFor(r).boatView(boat))
}

func (s *Server) handleReplaceBoat(w http.ResponseWriter, r *http.Request) {
	s.updateBoat(w, r, false)
}

func (s *Server) handlePatchBoat(w http.ResponseWriter, r *http.Request) {
	s.updateBoat(w, r, true)
}

func (s *Server) updateBoat(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := boatID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	in, verr := validation.Boat(body, partial)
	if verr != nil {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}

	var (
		boat fleet.BoatDetail
		err  error
	)
	if partial {
		boat, err = s.service.PatchBoat(r.Context(), caller(r), id, in)
	} else {
		boat, err = s.service.ReplaceBoat(r.Context(), caller(r), id, in)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, linksFor(r).boatView(boat))
}

func (s *Server) handleDeleteBoat(w http.ResponseWriter, r *http.Request) {
	id, ok := boatID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteBoat(r.Context(), caller(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// assignmentIDs parses {boatID} and {loadID}. Either being non-numeric is
// reported as not found.
func assignmentIDs(w http.ResponseWriter, r *http.Request) (boat, load int64, ok bool) {
	boat, bok := pathID(chi.URLParam(r, "boatID"))
	load, lok := pathID(chi.URLParam(r, "loadID"))
	if !bok || !lok {
		writeError(w, http.StatusNotFound, msgLoadNotFound)
		return 0, 0, false
	}
	return boat, load, true
}

func (s *Server) handleAssignLoad(w http.ResponseWriter, r *http.Request) {
	boat, load, ok := assignmentIDs(w, r)
	if !ok {
		return
	}
	if err := s.service.AssignLoad(r.Context(), caller(r), boat, load); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignLoad(w http.ResponseWriter, r *http.Request) {
	boat, load, ok := assignmentIDs(w, r)
	if !ok {
		return
	}
	if err := s.service.UnassignLoad(r.Context(), caller(r), boat, load); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
