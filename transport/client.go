package transport

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/ytget/ytfetch/errs"
)

// defaultTransport is a tuned HTTP transport cloned by every ClientBackend.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	// Content-Encoding is negotiated and decoded by the backend itself.
	DisableCompression: true,
	ReadBufferSize:     16 * 1024,
	WriteBufferSize:    16 * 1024,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// ClientBackend performs requests with net/http.
//
// Certificate verification is disabled unless BackendConfig.VerifyTLS is
// set: the platform rotates certificates and CDN host names often enough
// that strict checking broke downloads. This is a known risk.
type ClientBackend struct {
	HTTPClient *http.Client
	cfg        BackendConfig
}

// NewClientBackend creates a net/http backend. Automatic redirects are
// disabled; Transport follows them instead.
func NewClientBackend(cfg BackendConfig) (*ClientBackend, error) {
	tr := defaultTransport.Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}
	if cfg.DialTimeout > 0 {
		tr.DialContext = (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}
	if cfg.Timeout > 0 {
		tr.ResponseHeaderTimeout = cfg.Timeout
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	return &ClientBackend{
		HTTPClient: &http.Client{
			Transport: tr,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cfg: cfg,
	}, nil
}

// Name implements Backend.
func (c *ClientBackend) Name() string { return "client" }

// Do implements Backend.
func (c *ClientBackend) Do(ctx context.Context, req *Request) (*Response, error) {
	u, err := parseURL(req.URL)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", errs.ErrProtocolParse, err)
	}
	if c.cfg.UserAgent != "" {
		hreq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	hreq.Header.Set("Accept", "*/*")
	if req.Sink != nil {
		hreq.Header.Set("Accept-Encoding", "identity")
	} else {
		hreq.Header.Set("Accept-Encoding", "gzip, br")
	}

	resp, err := c.HTTPClient.Do(hreq)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: GET %s: %w", errs.ErrConnection, u.Redacted(), err)
	}
	defer resp.Body.Close()

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if IsRedirect(resp.StatusCode) {
		return out, nil
	}

	loop := &bodyLoop{
		ctx:     ctx,
		chunk:   c.cfg.chunkSize(),
		limiter: c.cfg.Limiter,
		total:   resp.ContentLength,
	}
	if IsSuccess(resp.StatusCode) {
		loop.progress = req.Progress
	}
	var body io.Reader = resp.Body
	if req.Sink != nil && IsSuccess(resp.StatusCode) {
		loop.sink = req.Sink
	} else {
		decoded, err := decodeBody(resp)
		if err != nil {
			return nil, err
		}
		if decoded != nil {
			body = decoded
			loop.total = -1
		}
	}

	data, written, err := loop.run(body)
	if err != nil {
		return nil, err
	}
	out.Body = data
	if loop.sink != nil {
		out.Written = written
	}
	return out, nil
}

// decodeBody returns a decoding reader for compressed responses, or nil
// when the body is sent as is. Decoded responses lose their length headers.
func decodeBody(resp *http.Response) (io.Reader, error) {
	var r io.Reader
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
		return nil, nil
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip body: %w", errs.ErrProtocolParse, err)
		}
		r = gz
	case "br":
		r = brotli.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("%w: unsupported Content-Encoding %q", errs.ErrProtocolParse, enc)
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del(headerContentLength)
	return r, nil
}
