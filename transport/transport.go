// Package transport performs the GET requests ytfetch needs: watch pages,
// player scripts and media streams. Two backends implement the single
// request primitive; Transport adds bounded redirect following on top.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/logger"
)

const (
	// DefaultMaxRedirects is the hop cap used when none is configured.
	DefaultMaxRedirects = 10
	// DefaultChunkSize is the read size of the socket backend.
	DefaultChunkSize = 128

	headerLocation      = "Location"
	headerContentLength = "Content-Length"
)

// ProgressFunc receives the number of body bytes received so far and the
// announced total. It runs on the reading goroutine after every chunk and
// must return quickly.
type ProgressFunc func(downloaded, total int64)

// Request describes one logical GET, possibly spanning several redirects.
type Request struct {
	URL             string
	FollowRedirects bool
	// Sink receives the body of a 2xx response. When nil the body is
	// returned in Response.Body.
	Sink     io.Writer
	Progress ProgressFunc
}

// Response is the final response of a request.
type Response struct {
	StatusCode int
	Header     http.Header
	// Body holds the payload unless a sink consumed it.
	Body []byte
	// URL is the address that produced this response.
	URL string
	// Written is the number of bytes delivered to the sink.
	Written int64
}

// Backend performs exactly one GET without following redirects.
//
// Implementations write the body of 2xx responses to Request.Sink when it is
// set, drop the body of redirect responses, and buffer everything else.
type Backend interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// Transport wraps a backend chosen at construction time.
type Transport struct {
	backend      Backend
	maxRedirects int
	log          *logger.ComponentLogger
}

// Option configures a Transport.
type Option func(*Transport)

// WithMaxRedirects sets the redirect hop cap. Zero disables following.
func WithMaxRedirects(n int) Option {
	return func(t *Transport) {
		if n >= 0 {
			t.maxRedirects = n
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.ComponentLogger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l
		}
	}
}

// New creates a Transport over b.
func New(b Backend, opts ...Option) *Transport {
	t := &Transport{
		backend:      b,
		maxRedirects: DefaultMaxRedirects,
		log:          logger.WithComponent(logger.ComponentTransport),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Backend returns the underlying backend.
func (t *Transport) Backend() Backend {
	return t.backend
}

// Send performs req, following redirects when requested.
func (t *Transport) Send(ctx context.Context, req *Request) (*Response, error) {
	current := *req
	for hops := 0; ; hops++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.log.Debug("GET", map[string]interface{}{"url": current.URL, "backend": t.backend.Name(), "hop": hops})
		resp, err := t.backend.Do(ctx, &current)
		if err != nil {
			return nil, err
		}
		resp.URL = current.URL
		t.log.Trace("response", map[string]interface{}{
			"status":   resp.StatusCode,
			"url":      current.URL,
			"buffered": len(resp.Body),
			"written":  resp.Written,
		})

		if !req.FollowRedirects || !IsRedirect(resp.StatusCode) {
			return resp, nil
		}
		if hops >= t.maxRedirects {
			return nil, fmt.Errorf("%w: more than %d redirects starting at %s", errs.ErrRedirectLimit, t.maxRedirects, req.URL)
		}

		next, err := redirectTarget(current.URL, resp.Header.Get(headerLocation))
		if err != nil {
			return nil, err
		}
		t.log.Debug("redirect", map[string]interface{}{"status": resp.StatusCode, "location": next})
		current.URL = next
	}
}

// Get fetches rawURL into memory, following redirects, and requires a 2xx
// final status.
func (t *Transport) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := t.Send(ctx, &Request{URL: rawURL, FollowRedirects: true})
	if err != nil {
		return nil, err
	}
	if !IsSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: GET %s returned %d", errs.ErrUnexpectedStatus, resp.URL, resp.StatusCode)
	}
	return resp.Body, nil
}

// IsRedirect reports whether the status code is one the redirect loop follows.
func IsRedirect(code int) bool {
	switch code {
	case http.StatusMultipleChoices,
		http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect:
		return true
	}
	return false
}

// IsSuccess reports whether the status code is 2xx.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// redirectTarget validates a Location value. Only absolute http(s) URLs
// are followed.
func redirectTarget(base, location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("%w: redirect from %s without Location header", errs.ErrProtocolParse, base)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: invalid Location %q: %w", errs.ErrProtocolParse, location, err)
	}
	if !ref.IsAbs() || ref.Host == "" {
		return "", fmt.Errorf("%w: redirect from %s to non-absolute Location %q", errs.ErrProtocolParse, base, location)
	}
	if err := checkURL(ref); err != nil {
		return "", err
	}
	return ref.String(), nil
}

// parseURL parses an absolute http(s) URL.
func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %w", errs.ErrProtocolParse, raw, err)
	}
	if err := checkURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

func checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme in %q", errs.ErrProtocolParse, u.String())
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", errs.ErrProtocolParse, u.String())
	}
	return nil
}

// NewLimiter returns a limiter pacing bytesPerSec, or nil when unlimited.
// The burst is at least chunk so a single read never exceeds it.
func NewLimiter(bytesPerSec int64, chunk int) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := int(bytesPerSec)
	if burst < chunk {
		burst = chunk
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// bodyLoop copies a response body in chunk-sized reads, checking for
// cancellation and reporting progress at every chunk boundary.
type bodyLoop struct {
	ctx      context.Context
	chunk    int
	limiter  *rate.Limiter
	sink     io.Writer
	progress ProgressFunc
	total    int64
}

// run reads r until EOF. With a sink, bytes go to the sink; otherwise they
// are returned. Read failures wrap errs.ErrConnection, sink failures wrap errs.ErrIO.
func (l *bodyLoop) run(r io.Reader) (body []byte, written int64, err error) {
	buf := make([]byte, l.chunk)
	for {
		if err := l.ctx.Err(); err != nil {
			return body, written, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if l.limiter != nil {
				if err := l.limiter.WaitN(l.ctx, n); err != nil {
					return body, written, err
				}
			}
			if l.sink != nil {
				if _, werr := l.sink.Write(buf[:n]); werr != nil {
					return body, written, fmt.Errorf("%w: write: %w", errs.ErrIO, werr)
				}
			} else {
				body = append(body, buf[:n]...)
			}
			written += int64(n)
			if l.progress != nil && l.total > 0 {
				l.progress(written, l.total)
			}
		}
		if rerr == io.EOF {
			return body, written, nil
		}
		if rerr != nil {
			if err := l.ctx.Err(); err != nil {
				return body, written, err
			}
			return body, written, fmt.Errorf("%w: read body: %w", errs.ErrConnection, rerr)
		}
	}
}
