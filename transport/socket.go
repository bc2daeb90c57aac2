package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/ytget/ytfetch/errs"
)

const maxHeaderBytes = 64 << 10

var headerTerminator = []byte("\r\n\r\n")

// BackendConfig holds the settings shared by both backends. Zero values use defaults.
type BackendConfig struct {
	UserAgent string
	// ChunkSize is the read size for response bodies.
	ChunkSize int
	// Timeout bounds the wait for any single read.
	Timeout     time.Duration
	DialTimeout time.Duration
	// VerifyTLS enables certificate and host name verification.
	VerifyTLS bool
	// Proxy is a proxy URL. The socket backend accepts socks5 and socks5h only.
	Proxy   string
	Limiter *rate.Limiter
}

func (c BackendConfig) chunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return DefaultChunkSize
}

// SocketBackend speaks HTTP/1.1 directly over a TCP or TLS connection.
type SocketBackend struct {
	cfg    BackendConfig
	dialer proxy.Dialer
}

// NewSocketBackend creates a socket backend.
func NewSocketBackend(cfg BackendConfig) (*SocketBackend, error) {
	direct := &net.Dialer{Timeout: cfg.DialTimeout}
	b := &SocketBackend{cfg: cfg, dialer: direct}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return nil, fmt.Errorf("socket backend supports socks5 proxies only, got %q", u.Scheme)
		}
		d, err := proxy.FromURL(u, direct)
		if err != nil {
			return nil, fmt.Errorf("create proxy dialer: %w", err)
		}
		b.dialer = d
	}
	return b, nil
}

// Name implements Backend.
func (b *SocketBackend) Name() string { return "socket" }

// Do implements Backend.
func (b *SocketBackend) Do(ctx context.Context, req *Request) (*Response, error) {
	u, err := parseURL(req.URL)
	if err != nil {
		return nil, err
	}

	addr := hostPort(u)
	conn, err := b.dial(ctx, addr)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: dial %s: %w", errs.ErrConnection, addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if u.Scheme == "https" {
		tlsConn := tls.Client(conn, &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: !b.cfg.VerifyTLS,
		})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			return nil, fmt.Errorf("%w: tls handshake with %s: %w", errs.ErrConnection, addr, err)
		}
		conn = tlsConn
	}
	if b.cfg.Timeout > 0 {
		conn = &idleConn{Conn: conn, timeout: b.cfg.Timeout}
	}

	if _, err := io.WriteString(conn, b.requestHead(u)); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: write request: %w", errs.ErrConnection, err)
	}

	head, rest, err := b.readHead(ctx, conn)
	if err != nil {
		return nil, err
	}
	status, header, err := parseHead(head)
	if err != nil {
		return nil, err
	}
	resp := &Response{StatusCode: status, Header: header}
	if IsRedirect(status) {
		return resp, nil
	}

	body := io.MultiReader(bytes.NewReader(rest), conn)
	total := int64(-1)
	if strings.EqualFold(header.Get("Transfer-Encoding"), "chunked") {
		body = httputil.NewChunkedReader(body)
	} else if cl := header.Get(headerContentLength); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid Content-Length %q", errs.ErrProtocolParse, cl)
		}
		total = n
		body = io.LimitReader(body, n)
	}

	loop := &bodyLoop{
		ctx:     ctx,
		chunk:   b.cfg.chunkSize(),
		limiter: b.cfg.Limiter,
		total:   total,
	}
	if IsSuccess(status) {
		loop.progress = req.Progress
	}
	if req.Sink != nil && IsSuccess(status) {
		loop.sink = req.Sink
	}
	data, written, err := loop.run(body)
	if err != nil {
		return nil, err
	}
	if total >= 0 && written < total {
		return nil, fmt.Errorf("%w: body truncated at %d of %d bytes", errs.ErrConnection, written, total)
	}

	resp.Body = data
	if loop.sink != nil {
		resp.Written = written
	}
	return resp, nil
}

func (b *SocketBackend) dial(ctx context.Context, addr string) (net.Conn, error) {
	if cd, ok := b.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return b.dialer.Dial("tcp", addr)
}

// requestHead renders the request line and the minimal header set.
func (b *SocketBackend) requestHead(u *url.URL) string {
	ua := b.cfg.UserAgent
	if ua == "" {
		ua = "ytfetch"
	}
	var sb strings.Builder
	sb.WriteString("GET " + u.RequestURI() + " HTTP/1.1\r\n")
	sb.WriteString("Host: " + u.Host + "\r\n")
	sb.WriteString("Accept: */*\r\n")
	sb.WriteString("User-Agent: " + ua + "\r\n")
	sb.WriteString("Connection: close\r\n\r\n")
	return sb.String()
}

// readHead reads until the first blank line. It returns the header block
// including the terminator and whatever body bytes arrived with it.
func (b *SocketBackend) readHead(ctx context.Context, conn net.Conn) (head, rest []byte, err error) {
	buf := make([]byte, b.cfg.chunkSize())
	var acc []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		n, rerr := conn.Read(buf)
		acc = append(acc, buf[:n]...)
		if i := bytes.Index(acc, headerTerminator); i >= 0 {
			end := i + len(headerTerminator)
			return acc[:end], acc[end:], nil
		}
		if len(acc) > maxHeaderBytes {
			return nil, nil, fmt.Errorf("%w: header block exceeds %d bytes", errs.ErrProtocolParse, maxHeaderBytes)
		}
		if rerr == io.EOF {
			if len(acc) == 0 {
				return nil, nil, fmt.Errorf("%w: empty response", errs.ErrConnection)
			}
			return nil, nil, fmt.Errorf("%w: connection closed inside header block", errs.ErrProtocolParse)
		}
		if rerr != nil {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("%w: read headers: %w", errs.ErrConnection, rerr)
		}
	}
}

// parseHead parses "HTTP/1.x NNN Reason" and the header lines that follow.
func parseHead(head []byte) (int, http.Header, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(head)))
	line, err := tp.ReadLine()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read status line: %w", errs.ErrProtocolParse, err)
	}

	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return 0, nil, fmt.Errorf("%w: malformed status line %q", errs.ErrProtocolParse, line)
	}
	codeText, _, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	code, err := strconv.Atoi(codeText)
	if err != nil || len(codeText) != 3 || code < 100 {
		return 0, nil, fmt.Errorf("%w: malformed status code in %q", errs.ErrProtocolParse, line)
	}

	mh, err := tp.ReadMIMEHeader()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read headers: %w", errs.ErrProtocolParse, err)
	}
	return code, http.Header(mh), nil
}

func hostPort(u *url.URL) string {
	if port := u.Port(); port != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// idleConn refreshes the read deadline before every read.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}
