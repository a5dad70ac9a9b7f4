// Package httpclient is the HTTP transport used by generated commands: retries on
// 429/5xx with Retry-After support, auth header helpers and redacted dumps.
package httpclient

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	Timeout            time.Duration
	Debug              bool
	Trace              bool
	RetryNonIdempotent bool
	MaxAttempts        int
	UserAgent          string
	Out                io.Writer
	Logger             *slog.Logger
}

type Client struct {
	http *http.Client
	opts Options
}

type Result struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// StatusError is returned by callers that treat non-2xx responses as failures.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Status, msg)
}

func New(opts Options) *Client {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http: &http.Client{Timeout: opts.Timeout},
		opts: opts,
	}
}

// Do sends req, retrying when the status allows it. reqBody is replayed on retries
// when req has no GetBody. The request context bounds the retry sleeps.
func (c *Client) Do(req *http.Request, reqBody []byte) (*Result, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	ctx := req.Context()

	if c.opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	if c.opts.Debug || c.opts.Trace {
		c.dumpRequest(req, reqBody)
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if req.GetBody != nil {
				if rc, err := req.GetBody(); err == nil {
					req.Body = rc
				}
			} else if len(reqBody) > 0 {
				req.Body = io.NopCloser(bytes.NewReader(reqBody))
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if c.opts.Debug || c.opts.Trace {
			c.dumpResponse(resp, body)
		}

		if attempt < c.opts.MaxAttempts && shouldRetry(resp.StatusCode, req.Method, c.opts.RetryNonIdempotent) {
			sleep := retryBackoff(resp, attempt)
			c.opts.Logger.Debug("retrying request", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode, "attempt", attempt, "sleep", sleep)
			select {
			case <-time.After(sleep):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return &Result{
			Status:  resp.StatusCode,
			Headers: resp.Header.Clone(),
			Body:    body,
		}, nil
	}
}

// Auth schemes accepted by ApplyAuth.
const (
	AuthBearer = "bearer"
	AuthBasic  = "basic"
	AuthNone   = "none"
)

// ApplyAuth sets the Authorization header on req:
// - bearer: Authorization: Bearer <token>
// - basic:  Authorization: Basic base64(<token>) where a token without ':' is used
//   as the user name with a blank password
// - none:   nothing
func ApplyAuth(req *http.Request, token, scheme string) {
	if token == "" {
		return
	}
	switch scheme {
	case AuthNone:
	case AuthBasic:
		raw := token
		if !strings.Contains(raw, ":") {
			raw += ":"
		}
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	default:
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func shouldRetry(status int, method string, retryNonIdempotent bool) bool {
	if status == http.StatusTooManyRequests || status >= 500 {
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
			return true
		default:
			return retryNonIdempotent
		}
	}
	return false
}

func retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			// Retry-After can be an integer seconds or a HTTP date.
			if secs, err := strconv.Atoi(strings.TrimSpace(ra)); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
			if t, err := http.ParseTime(ra); err == nil {
				if d := time.Until(t); d > 0 {
					return d
				}
			}
		}
	}

	// 200ms * 2^(attempt-1), capped at 5s, +/- 50% jitter.
	d := 200 * time.Millisecond * (1 << (attempt - 1))
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d + time.Duration(rand.Int64N(int64(d))) - d/2
}

func redacted(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "proxy-authorization", "cookie", "set-cookie", "x-api-key":
		return true
	}
	return false
}

// RedactHeaders returns a copy of h with credentials replaced.
func RedactHeaders(h http.Header) http.Header {
	out := h.Clone()
	for k := range out {
		if redacted(k) {
			out[k] = []string{"<redacted>"}
		}
	}
	return out
}

func (c *Client) dumpHeaders(prefix string, h http.Header) {
	h = RedactHeaders(h)
	for _, k := range slices.Sorted(maps.Keys(h)) {
		fmt.Fprintf(c.opts.Out, "%s %s: %s\n", prefix, k, strings.Join(h[k], ", "))
	}
}

func (c *Client) dumpBody(prefix string, body []byte) {
	if !c.opts.Trace || len(body) == 0 {
		return
	}
	fmt.Fprintf(c.opts.Out, "%s\n", prefix)
	_, _ = c.opts.Out.Write(body)
	if body[len(body)-1] != '\n' {
		_, _ = c.opts.Out.Write([]byte("\n"))
	}
}

func (c *Client) dumpRequest(req *http.Request, body []byte) {
	fmt.Fprintf(c.opts.Out, "> %s %s\n", req.Method, req.URL.Redacted())
	c.dumpHeaders(">", req.Header)
	c.dumpBody(">", body)
}

func (c *Client) dumpResponse(resp *http.Response, body []byte) {
	fmt.Fprintf(c.opts.Out, "< %s\n", resp.Status)
	if c.opts.Debug {
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			fmt.Fprintf(c.opts.Out, "< Content-Type: %s\n", ct)
		}
		fmt.Fprintf(c.opts.Out, "< Content-Length: %d\n", len(body))
	}
	c.dumpBody("<", body)
}
