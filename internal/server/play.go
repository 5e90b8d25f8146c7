package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/praghad/internal/session"
	"github.com/desertthunder/praghad/internal/stream"
)

// PlayHandler streams tracks at /play/index.php.
//
// Errors before the first byte use the XML error envelope; once the status
// line is out, a failing read or write just ends the response early.
type PlayHandler struct {
	sessions  *session.Store
	responder *stream.Responder
	logger    *log.Logger
}

// NewPlayHandler creates a PlayHandler.
func NewPlayHandler(sessions *session.Store, responder *stream.Responder, logger *log.Logger) *PlayHandler {
	return &PlayHandler{sessions: sessions, responder: responder, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlayHandler) Routes() []string {
	return []string{"/play/index.php"}
}

func (h *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if _, err := h.sessions.Live(ctx, q.Get("ssid")); err != nil {
		h.fail(w, err)
		return
	}

	id, err := strconv.ParseInt(q.Get("oid"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: bad track id %q", stream.ErrResourceNotFound, q.Get("oid")))
		return
	}

	res, err := h.responder.Respond(ctx, id, r.Header.Get("Range"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if res.Body != nil {
		defer res.Body.Close()
	}

	for k, v := range res.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(res.Status)

	if res.Body == nil || r.Method == http.MethodHead {
		return
	}

	flusher, _ := w.(http.Flusher)
	var sent int64
	for {
		if ctx.Err() != nil {
			h.logger.Debug("client went away", "track", id, "sent", sent)
			return
		}

		chunk, err := res.Body.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			h.logger.Warn("stream truncated", "track", id, "sent", sent, "error", err)
			return
		}

		n, err := w.Write(chunk)
		sent += int64(n)
		if err != nil {
			h.logger.Debug("client went away", "track", id, "sent", sent, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// fail writes the XML error for err, logging storage failures.
func (h *PlayHandler) fail(w http.ResponseWriter, err error) {
	if protocolError(err).Code >= http.StatusInternalServerError {
		h.logger.Error("play failed", "error", err)
	}
	if werr := writeError(w, err); werr != nil {
		h.logger.Warn("failed to write reply", "error", werr)
	}
}
