package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/praghad/internal/auth"
	"github.com/desertthunder/praghad/internal/models"
	"github.com/desertthunder/praghad/internal/repositories"
	"github.com/desertthunder/praghad/internal/session"
)

// ProtocolVersion is the Ampache API version reported to clients.
const ProtocolVersion = "350001"

// CredentialFinder resolves a username to what the handshake checks against.
type CredentialFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.Credentials, error)
}

// TrackLister pages through the collection in a stable order.
type TrackLister interface {
	List(ctx context.Context, offset, limit int) ([]*models.Track, error)
	Count(ctx context.Context) (int, error)
}

// Action is one of the protocol actions the server understands.
type Action int

const (
	ActionUnknown Action = iota
	ActionHandshake
	ActionPing
	ActionSongs
)

// ParseAction maps the action query parameter to an [Action].
func ParseAction(s string) Action {
	switch s {
	case "handshake":
		return ActionHandshake
	case "ping":
		return ActionPing
	case "songs":
		return ActionSongs
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionHandshake:
		return "handshake"
	case ActionPing:
		return "ping"
	case ActionSongs:
		return "songs"
	default:
		return "unknown"
	}
}

// Dispatcher answers /server/xml.server.php.
//
// The session token is the verified handshake hash, echoed back to the client.
// It is only ever handled through [session.Store], so a different token scheme
// stays local to the handshake.
type Dispatcher struct {
	credentials CredentialFinder
	tracks      TrackLister
	sessions    *session.Store
	ttl         time.Duration
	publicURL   string
	logger      *log.Logger
}

// NewDispatcher creates a Dispatcher. Sessions it opens or pings live for ttl.
func NewDispatcher(credentials CredentialFinder, tracks TrackLister, sessions *session.Store, ttl time.Duration, publicURL string, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		credentials: credentials,
		tracks:      tracks,
		sessions:    sessions,
		ttl:         ttl,
		publicURL:   strings.TrimRight(publicURL, "/"),
		logger:      logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (d *Dispatcher) Routes() []string {
	return []string{"/server/xml.server.php"}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := ParseAction(r.URL.Query().Get("action"))

	var (
		reply replyRoot
		err   error
	)
	switch action {
	case ActionHandshake:
		reply, err = d.handshake(r.Context(), r.URL.Query())
	case ActionPing:
		reply, err = d.ping(r.Context(), r.URL.Query())
	case ActionSongs:
		reply, err = d.songs(r.Context(), r.URL.Query())
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidRequest, r.URL.Query().Get("action"))
	}

	if err != nil {
		if e := protocolError(err); e.Code >= http.StatusInternalServerError {
			d.logger.Error("action failed", "action", action, "error", err)
		} else {
			d.logger.Debug("action rejected", "action", action, "error", err)
		}
		if werr := writeError(w, err); werr != nil {
			d.logger.Warn("failed to write reply", "action", action, "error", werr)
		}
		return
	}

	if err := writeXML(w, http.StatusOK, reply); err != nil {
		d.logger.Warn("failed to write reply", "action", action, "error", err)
	}
}

// handshake checks user/timestamp/auth and opens a session keyed by auth.
func (d *Dispatcher) handshake(ctx context.Context, q url.Values) (replyRoot, error) {
	username, timestamp, token := q.Get("user"), q.Get("timestamp"), q.Get("auth")

	creds, err := d.credentials.FindByUsername(ctx, username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return replyRoot{}, fmt.Errorf("%w: %v", ErrInvalidLogin, err)
	}
	if err != nil {
		return replyRoot{}, fmt.Errorf("failed to look up credentials: %w", err)
	}
	if !auth.Verify(token, creds.StoredSecret, timestamp) {
		return replyRoot{}, fmt.Errorf("%w: challenge mismatch for %s", ErrInvalidLogin, username)
	}

	sess, err := d.sessions.Create(ctx, creds.OwnerID, token, d.ttl)
	if errors.Is(err, session.ErrTokenConflict) {
		d.logger.Warn("handshake replayed a live token", "user", username)
		return replyRoot{}, fmt.Errorf("%w: %v", ErrInvalidLogin, err)
	}
	if err != nil {
		return replyRoot{}, fmt.Errorf("failed to open session: %w", err)
	}

	count, err := d.tracks.Count(ctx)
	if err != nil {
		return replyRoot{}, err
	}

	d.logger.Info("handshake", "user", username, "owner", sess.OwnerID, "expires", sess.Expiry())
	return replyRoot{Version: ProtocolVersion, Auth: sess.Token, Count: &count}, nil
}

// ping extends a live session by the configured ttl.
func (d *Dispatcher) ping(ctx context.Context, q url.Values) (replyRoot, error) {
	sess, err := d.sessions.Extend(ctx, q.Get("auth"), d.ttl)
	if err != nil {
		return replyRoot{}, err
	}

	d.logger.Debug("ping", "owner", sess.OwnerID, "expires", sess.Expiry())
	return replyRoot{Version: ProtocolVersion}, nil
}

// songs lists a page of tracks for a live session without extending it.
func (d *Dispatcher) songs(ctx context.Context, q url.Values) (replyRoot, error) {
	sess, err := d.sessions.Live(ctx, q.Get("auth"))
	if err != nil {
		return replyRoot{}, err
	}

	offset, _ := queryInt(q, "offset")
	limit, ok := queryInt(q, "limit")
	if !ok {
		limit = repositories.NoLimit
	}

	tracks, err := d.tracks.List(ctx, offset, limit)
	if err != nil {
		return replyRoot{}, err
	}

	songs := make([]replySong, 0, len(tracks))
	for _, t := range tracks {
		songs = append(songs, replySong{
			ID:      t.ID,
			Track:   positive(t.TrackNumber),
			Title:   t.Title,
			Artist:  t.Artist,
			Album:   t.Album,
			Genre:   t.Genre,
			Comment: t.Comment,
			Year:    positive(t.Year),
			Time:    positive(t.Length),
			URL:     d.PlayURL(t.ID, sess),
		})
	}

	return replyRoot{Songs: songs}, nil
}

// PlayURL is the stream address handed out for track id under sess.
func (d *Dispatcher) PlayURL(id int64, sess *models.Session) string {
	return fmt.Sprintf("%s/play/index.php?type=song&oid=%d&ssid=%s&uid=%d&player=api&name=%d",
		d.publicURL, id, url.QueryEscape(sess.Token), sess.OwnerID, id)
}

// queryInt reads a non-negative integer parameter. Missing, invalid or
// negative values give 0 and false.
func queryInt(q url.Values, key string) (int, bool) {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func positive(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
