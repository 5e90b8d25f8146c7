package server

import (
	"io"
	"net/http"
)

const (
	rootText  = "Pragha Server!."
	aboutText = "A Music Server for Pragha until now compatible with Ampache.."
)

// PagesHandler serves the plain-text landing and about pages.
type PagesHandler struct{}

// NewPagesHandler creates a PagesHandler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

// Routes returns the HTTP routes this handler serves.
func (h *PagesHandler) Routes() []string {
	return []string{"/", "/about"}
}

func (h *PagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	text := rootText
	if r.URL.Path == "/about" {
		text = aboutText
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, text)
}
