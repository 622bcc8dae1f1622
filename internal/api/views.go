package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jacentio/moorage/internal/fleet"
	"github.com/jacentio/moorage/internal/validation"
)

// ref is a nested {id, self} resource reference.
type ref struct {
	ID   int64  `json:"id"`
	Self string `json:"self"`
}

type boatView struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Length int64  `json:"length"`
	Owner  string `json:"owner"`
	Loads  []ref  `json:"loads"`
	Self   string `json:"self"`
}

type loadView struct {
	ID           int64  `json:"id"`
	Volume       int64  `json:"volume"`
	Item         string `json:"item"`
	CreationDate string `json:"creation_date"`
	Carrier      *ref   `json:"carrier"`
	Self         string `json:"self"`
}

type boatList struct {
	Boats []boatView `json:"boats"`
	Count int        `json:"count"`
	Next  string     `json:"next,omitempty"`
}

type loadList struct {
	Loads []loadView `json:"loads"`
	Count int        `json:"count"`
	Next  string     `json:"next,omitempty"`
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// links builds absolute URLs for the host a request was addressed to.
type links struct {
	base string
}

// linksFor honours X-Forwarded-Proto and X-Forwarded-Host set by a proxy.
func linksFor(r *http.Request) links {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstForwarded(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := firstForwarded(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return links{base: scheme + "://" + host}
}

func firstForwarded(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

func (l links) boat(id int64) string {
	return l.base + "/boats/" + strconv.FormatInt(id, 10)
}

func (l links) load(id int64) string {
	return l.base + "/loads/" + strconv.FormatInt(id, 10)
}

// next is the URL of the page after cursor, or "" on the last page.
func (l links) next(path, cursor string) string {
	if cursor == "" {
		return ""
	}
	return l.base + path + "?cursor=" + url.QueryEscape(cursor)
}

func (l links) boatView(d fleet.BoatDetail) boatView {
	loads := make([]ref, 0, len(d.Loads))
	for _, id := range d.Loads {
		loads = append(loads, ref{ID: id, Self: l.load(id)})
	}
	return boatView{
		ID:     d.ID,
		Name:   d.Name,
		Type:   d.Type,
		Length: d.Length,
		Owner:  d.Owner,
		Loads:  loads,
		Self:   l.boat(d.ID),
	}
}

func (l links) loadView(ld fleet.Load) loadView {
	v := loadView{
		ID:           ld.ID,
		Volume:       ld.Volume,
		Item:         ld.Item,
		CreationDate: ld.CreationDate,
		Self:         l.load(ld.ID),
	}
	if ld.Carrier != nil {
		v.Carrier = &ref{ID: *ld.Carrier, Self: l.boat(*ld.Carrier)}
	}
	return v
}

// readBody decodes a JSON object body. An empty body is an empty object.
// On failure the 400 response has already been written.
func readBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, true
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid character after top-level value")
		return nil, false
	}

	body, ok := v.(map[string]any)
	if !ok {
		writeError(w, http.StatusBadRequest, validation.MsgUnknownProperty)
		return nil, false
	}
	return body, true
}

// pathID parses a numeric path parameter.
func pathID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil
}
