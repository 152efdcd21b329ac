package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/phrases"
	"github.com/soyle-app/soyle/internal/store"
)

// MaxPhraseLen limits override text, in characters.
const MaxPhraseLen = 500

// PhraseHandler serves the phrase table and its runtime overrides.
type PhraseHandler struct {
	book  *phrases.Book
	store *store.Store // nil keeps overrides in memory only
	lang  string
}

// NewPhraseHandler creates a PhraseHandler. Overrides are persisted to s
// under lang when s is not nil.
func NewPhraseHandler(book *phrases.Book, s *store.Store, lang string) *PhraseHandler {
	return &PhraseHandler{book: book, store: s, lang: lang}
}

// ServeHTTP routes /api/phrases and /api/phrases/{label}.
func (h *PhraseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/phrases")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	label := gesture.Label(strings.ToUpper(path))
	if !label.IsPose() {
		writeError(w, http.StatusNotFound, "Unknown gesture label")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, label)
	case http.MethodPut:
		h.put(w, r, label)
	case http.MethodDelete:
		h.delete(w, r, label)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type putPhraseRequest struct {
	Text string `json:"text"`
}

type listPhrasesResponse struct {
	Lang    string          `json:"lang"`
	Phrases []phrases.Entry `json:"phrases"`
}

// list handles GET /api/phrases.
func (h *PhraseHandler) list(w http.ResponseWriter, r *http.Request) {
	entries := h.book.Entries()
	if entries == nil {
		entries = []phrases.Entry{}
	}
	writeJSON(w, http.StatusOK, listPhrasesResponse{Lang: h.lang, Phrases: entries})
}

// get handles GET /api/phrases/{label}.
func (h *PhraseHandler) get(w http.ResponseWriter, r *http.Request, label gesture.Label) {
	for _, e := range h.book.Entries() {
		if e.Label == label {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeError(w, http.StatusNotFound, "No phrase for this gesture")
}

// put handles PUT /api/phrases/{label} and overrides the phrase.
func (h *PhraseHandler) put(w http.ResponseWriter, r *http.Request, label gesture.Label) {
	var req putPhraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if utf8.RuneCountInString(text) > MaxPhraseLen {
		writeError(w, http.StatusBadRequest, "Text is too long")
		return
	}

	if h.store != nil {
		p := &store.Phrase{Label: string(label), Lang: h.lang, Text: text}
		if err := h.store.Phrases().Upsert(p); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save phrase")
			return
		}
	}
	h.book.Set(label, text)

	writeJSON(w, http.StatusOK, phrases.Entry{Label: label, Text: text, Overridden: true})
}

// delete handles DELETE /api/phrases/{label} and restores the built-in phrase.
func (h *PhraseHandler) delete(w http.ResponseWriter, r *http.Request, label gesture.Label) {
	if h.store != nil {
		err := h.store.Phrases().Delete(string(label), h.lang)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to delete phrase")
			return
		}
	}

	if !h.book.Reset(label) {
		writeError(w, http.StatusNotFound, "Phrase is not overridden")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
