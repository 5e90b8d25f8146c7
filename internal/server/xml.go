package server

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"

	"github.com/desertthunder/praghad/internal/session"
	"github.com/desertthunder/praghad/internal/stream"
)

var (
	ErrInvalidLogin   = errors.New("invalid login")
	ErrInvalidRequest = errors.New("invalid request")
)

// replyRoot is the <root> envelope of every protocol reply.
type replyRoot struct {
	XMLName xml.Name    `xml:"root"`
	Error   *replyError `xml:"error,omitempty"`
	Version string      `xml:"version,omitempty"`
	Auth    string      `xml:"auth,omitempty"`
	Count   *int        `xml:"songs,omitempty"`
	Songs   []replySong `xml:"song"`
}

type replyError struct {
	Code    int    `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// replySong lists a track; zero-valued tags are left out.
type replySong struct {
	ID      int64  `xml:"id,attr"`
	Track   int    `xml:"track,omitempty"`
	Title   string `xml:"title,omitempty"`
	Artist  string `xml:"artist,omitempty"`
	Album   string `xml:"album,omitempty"`
	Genre   string `xml:"genre,omitempty"`
	Comment string `xml:"comment,omitempty"`
	Year    int    `xml:"year,omitempty"`
	Time    int    `xml:"time,omitempty"`
	URL     string `xml:"url"`
}

// protocolError maps an error to its wire code and text.
func protocolError(err error) replyError {
	switch {
	case errors.Is(err, ErrInvalidLogin):
		return replyError{http.StatusUnauthorized, "Error Invalid Handshake - Invalid Username/Password"}
	case errors.Is(err, session.ErrSessionExpired), errors.Is(err, session.ErrSessionNotFound):
		return replyError{http.StatusUnauthorized, "Session Expired"}
	case errors.Is(err, ErrInvalidRequest):
		return replyError{http.StatusMethodNotAllowed, "Invalid Request"}
	case errors.Is(err, stream.ErrResourceNotFound):
		return replyError{http.StatusNotFound, "Resource Not Found"}
	default:
		return replyError{http.StatusInternalServerError, "Internal Server Error"}
	}
}

// writeXML writes reply with the given status code.
func writeXML(w http.ResponseWriter, status int, reply replyRoot) error {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(reply)
}

// writeError writes the <error> reply for err, with the matching HTTP status.
func writeError(w http.ResponseWriter, err error) error {
	e := protocolError(err)
	return writeXML(w, e.Code, replyRoot{Error: &e})
}
