// Package client talks to an Ampache-compatible server over the XML protocol.
//
// It is the same conversation a player has with the server: a handshake proves the
// password without sending it, the returned token is kept alive with ping, and songs
// pages through the collection.
package client

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/praghad/internal/auth"
	"github.com/imroc/req/v3"
)

const xmlPath = "/server/xml.server.php"

var ErrEmptyReply = errors.New("empty reply from server")

// ProtocolError is an <error code="N"> reply.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Song is one <song> element of a songs reply.
type Song struct {
	ID      int64  `xml:"id,attr"`
	Track   int    `xml:"track"`
	Title   string `xml:"title"`
	Artist  string `xml:"artist"`
	Album   string `xml:"album"`
	Genre   string `xml:"genre"`
	Comment string `xml:"comment"`
	Year    int    `xml:"year"`
	Time    int    `xml:"time"`
	URL     string `xml:"url"`
}

// Handshake is the reply to a successful handshake.
type Handshake struct {
	Version string
	Token   string
	Songs   int
}

type reply struct {
	XMLName xml.Name `xml:"root"`
	Error   *struct {
		Code    int    `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
	Version string `xml:"version"`
	Auth    string `xml:"auth"`
	Count   int    `xml:"songs"`
	Songs   []Song `xml:"song"`
}

// Client is a protocol client bound to one server.
type Client struct {
	http *req.Client
	now  func() time.Time
}

// New creates a Client for the server at baseURL, e.g. http://localhost:3689.
func New(baseURL string) *Client {
	return &Client{
		http: req.C().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetUserAgent("praghad-client"),
		now: time.Now,
	}
}

// Handshake authenticates user and returns the session token.
//
// The password never leaves the process; only sha256(timestamp + sha256(password)) does.
func (c *Client) Handshake(ctx context.Context, user, password string) (*Handshake, error) {
	ts := strconv.FormatInt(c.now().Unix(), 10)

	r, err := c.call(ctx, map[string]string{
		"action":    "handshake",
		"user":      user,
		"timestamp": ts,
		"auth":      auth.ComputeExpected(password, ts),
	})
	if err != nil {
		return nil, err
	}
	if r.Auth == "" {
		return nil, fmt.Errorf("%w: handshake without token", ErrEmptyReply)
	}
	return &Handshake{Version: r.Version, Token: r.Auth, Songs: r.Count}, nil
}

// Ping keeps the session alive and returns the server's protocol version.
func (c *Client) Ping(ctx context.Context, token string) (string, error) {
	r, err := c.call(ctx, map[string]string{"action": "ping", "auth": token})
	if err != nil {
		return "", err
	}
	return r.Version, nil
}

// Songs fetches one page of the collection. A non-positive limit leaves the
// parameter out, which the server reads as everything after offset.
func (c *Client) Songs(ctx context.Context, token string, offset, limit int) ([]Song, error) {
	params := map[string]string{
		"action": "songs",
		"auth":   token,
		"offset": strconv.Itoa(offset),
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	r, err := c.call(ctx, params)
	if err != nil {
		return nil, err
	}
	return r.Songs, nil
}

func (c *Client) call(ctx context.Context, params map[string]string) (*reply, error) {
	var ok, failed reply

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetSuccessResult(&ok).
		SetErrorResult(&failed).
		Get(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", params["action"], err)
	}

	if resp.IsErrorState() {
		if failed.Error != nil {
			return nil, &ProtocolError{Code: failed.Error.Code, Message: failed.Error.Message}
		}
		return nil, &ProtocolError{Code: resp.StatusCode, Message: resp.Status}
	}
	if ok.Error != nil {
		return nil, &ProtocolError{Code: ok.Error.Code, Message: ok.Error.Message}
	}
	if ok.XMLName.Local == "" {
		return nil, fmt.Errorf("%w: status %d", ErrEmptyReply, resp.StatusCode)
	}
	return &ok, nil
}

// Fetch downloads a play URL into w. rangeHeader, when set, is sent as the Range header.
// It returns the response status and the number of bytes written.
func (c *Client) Fetch(ctx context.Context, playURL, rangeHeader string, w io.Writer) (int, int64, error) {
	counter := &countingWriter{w: w}

	r := c.http.R().SetContext(ctx).SetOutput(counter)
	if rangeHeader != "" {
		r.SetHeader("Range", rangeHeader)
	}

	resp, err := r.Get(playURL)
	if err != nil {
		return 0, counter.n, fmt.Errorf("fetch failed: %w", err)
	}
	if resp.StatusCode != http.StatusPartialContent {
		return resp.StatusCode, counter.n, &ProtocolError{Code: resp.StatusCode, Message: resp.Status}
	}
	return resp.StatusCode, counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
