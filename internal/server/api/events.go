package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/soyle-app/soyle/internal/store"
)

// Event list limits.
const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// EventHandler serves the spoken-event history.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// ServeHTTP routes /api/events and /api/events/stats.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/events")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		h.list(w, r)
	case "stats":
		h.stats(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type eventResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id,omitempty"`
	Label     string `json:"label"`
	Phrase    string `json:"phrase"`
	Source    string `json:"source"`
	SpokenAt  string `json:"spoken_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type statsResponse struct {
	Since  string         `json:"since"`
	Counts map[string]int `json:"counts"`
}

func toEventResponse(e *store.SpokenEvent) eventResponse {
	return eventResponse{
		ID:        e.ID,
		SessionID: e.SessionID,
		Label:     e.Label,
		Phrase:    e.Phrase,
		Source:    e.Source,
		SpokenAt:  formatTime(e.SpokenAt),
	}
}

// list handles GET /api/events?limit=N or ?session=ID.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		events []*store.SpokenEvent
		err    error
	)

	if session := r.URL.Query().Get("session"); session != "" {
		events, err = h.store.Events().ListBySession(session)
	} else {
		limit, ok := queryLimit(r, defaultEventLimit, maxEventLimit)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		events, err = h.store.Events().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, response)
}

// stats handles GET /api/events/stats?since=RFC3339 (default: last 24 hours).
func (h *EventHandler) stats(w http.ResponseWriter, r *http.Request) {
	since := time.Now().Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid since")
			return
		}
		since = t
	}

	counts, err := h.store.Events().CountByLabel(since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Since: formatTime(since), Counts: counts})
}
