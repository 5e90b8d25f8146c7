package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
)

// ErrResourceNotFound means the track id does not resolve to a readable file.
var ErrResourceNotFound = errors.New("resource not found")

const fallbackMIME = "application/octet-stream"

// audioTypes covers extensions the system MIME table usually lacks.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
	".ape":  "audio/x-ape",
	".mpc":  "audio/x-musepack",
	".wv":   "audio/x-wavpack",
}

// MIMEType guesses the media type of a file from its extension.
func MIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return fallbackMIME
}

// TrackLookup resolves a track id to the file behind it.
type TrackLookup interface {
	ResolveStreamable(ctx context.Context, id int64) (*models.StreamDescriptor, error)
}

// Result is a ready-to-send streaming response.
//
// Body is nil for a 416. Otherwise the caller owns Body and must close it.
type Result struct {
	Status int
	Header http.Header
	Range  ByteRange
	Body   *ChunkReader
	Stream *models.StreamDescriptor
}

// Responder builds partial-content responses for tracks.
type Responder struct {
	tracks TrackLookup
	logger *log.Logger
}

// NewResponder creates a Responder over tracks.
func NewResponder(tracks TrackLookup, logger *log.Logger) *Responder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Responder{tracks: tracks, logger: logger}
}

// Respond resolves trackID and prepares the response for rangeHeader.
//
// Every response is range-aware: a request without a Range header is served
// as the whole file with 206. An unsatisfiable range gives 416 with no body.
func (r *Responder) Respond(ctx context.Context, trackID int64, rangeHeader string) (*Result, error) {
	desc, err := r.tracks.ResolveStreamable(ctx, trackID)
	if errors.Is(err, repositories.ErrTrackNotFound) || errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("track did not resolve", "track", trackID, "error", err)
		return nil, fmt.Errorf("%w: track %d", ErrResourceNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve track %d: %w", trackID, err)
	}
	if desc.MIME == "" {
		desc.MIME = MIMEType(desc.Path)
	}

	header := http.Header{}
	header.Set("Accept-Ranges", "bytes")

	br := ParseRange(rangeHeader, desc.Size)
	if !br.Satisfiable(desc.Size) {
		header.Set("Content-Length", "0")
		return &Result{Status: http.StatusRequestedRangeNotSatisfiable, Header: header, Range: br, Stream: desc}, nil
	}

	body, err := OpenChunks(desc.Path, br)
	if errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("track file vanished", "track", trackID, "path", desc.Path)
		return nil, fmt.Errorf("%w: %v", ErrResourceNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open track %d: %w", trackID, err)
	}

	header.Set("Content-Type", desc.MIME)
	header.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	header.Set("Content-Range", br.ContentRange(desc.Size))

	return &Result{Status: http.StatusPartialContent, Header: header, Range: br, Body: body, Stream: desc}, nil
}
