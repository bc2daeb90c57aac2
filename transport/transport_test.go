package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ytget/ytfetch/errs"
)

// scriptedBackend answers by URL from a fixed table.
type scriptedBackend struct {
	responses map[string]*Response
	calls     []string
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Do(_ context.Context, req *Request) (*Response, error) {
	s.calls = append(s.calls, req.URL)
	resp, ok := s.responses[req.URL]
	if !ok {
		return nil, fmt.Errorf("%w: no route to %s", errs.ErrConnection, req.URL)
	}
	cp := *resp
	cp.Header = resp.Header.Clone()
	if req.Sink != nil && IsSuccess(cp.StatusCode) {
		n, _ := req.Sink.Write(cp.Body)
		cp.Written = int64(n)
		cp.Body = nil
	}
	return &cp, nil
}

func redirect(code int, location string) *Response {
	h := http.Header{}
	if location != "" {
		h.Set("Location", location)
	}
	return &Response{StatusCode: code, Header: h}
}

func ok(body string) *Response {
	return &Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(body)}
}

// chain builds hops redirects ending in a 200.
func chain(hops int) *scriptedBackend {
	b := &scriptedBackend{responses: map[string]*Response{}}
	for i := 0; i < hops; i++ {
		b.responses[fmt.Sprintf("http://r.test/%d", i)] = redirect(http.StatusFound, fmt.Sprintf("http://r.test/%d", i+1))
	}
	b.responses[fmt.Sprintf("http://r.test/%d", hops)] = ok("final")
	return b
}

func TestSend_FollowsMovedPermanently(t *testing.T) {
	b := &scriptedBackend{responses: map[string]*Response{
		"http://x.test/a": redirect(http.StatusMovedPermanently, "http://y.test/z"),
		"http://y.test/z": ok("hello"),
	}}
	tr := New(b)

	resp, err := tr.Send(context.Background(), &Request{URL: "http://x.test/a", FollowRedirects: true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "hello" {
		t.Errorf("got %d %q", resp.StatusCode, resp.Body)
	}
	if resp.URL != "http://y.test/z" {
		t.Errorf("final URL = %q", resp.URL)
	}
}

func TestSend_RedirectLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		hops    int
		wantErr bool
	}{
		{name: "default limit exactly", limit: DefaultMaxRedirects, hops: DefaultMaxRedirects},
		{name: "default limit plus one", limit: DefaultMaxRedirects, hops: DefaultMaxRedirects + 1, wantErr: true},
		{name: "custom limit exactly", limit: 3, hops: 3},
		{name: "custom limit plus one", limit: 3, hops: 4, wantErr: true},
		{name: "zero limit no redirect", limit: 0, hops: 0},
		{name: "zero limit one redirect", limit: 0, hops: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := chain(tt.hops)
			tr := New(b, WithMaxRedirects(tt.limit))

			resp, err := tr.Send(context.Background(), &Request{URL: "http://r.test/0", FollowRedirects: true})
			if tt.wantErr {
				if !errors.Is(err, errs.ErrRedirectLimit) {
					t.Fatalf("expected ErrRedirectLimit, got %v", err)
				}
				if len(b.calls) != tt.limit+1 {
					t.Errorf("expected %d requests, got %d", tt.limit+1, len(b.calls))
				}
				return
			}
			if err != nil {
				t.Fatalf("Send: %v", err)
			}
			if string(resp.Body) != "final" {
				t.Errorf("body = %q", resp.Body)
			}
		})
	}
}

func TestSend_AllRedirectCodes(t *testing.T) {
	for _, code := range []int{300, 301, 302, 303, 307} {
		b := &scriptedBackend{responses: map[string]*Response{
			"http://x.test/a": redirect(code, "http://x.test/b"),
			"http://x.test/b": ok("done"),
		}}
		resp, err := New(b).Send(context.Background(), &Request{URL: "http://x.test/a", FollowRedirects: true})
		if err != nil || string(resp.Body) != "done" {
			t.Errorf("code %d: resp=%v err=%v", code, resp, err)
		}
	}
}

func TestSend_NotFollowedCodes(t *testing.T) {
	// 308 is outside the followed set and comes back as is.
	b := &scriptedBackend{responses: map[string]*Response{
		"http://x.test/a": redirect(http.StatusPermanentRedirect, "http://x.test/b"),
	}}
	resp, err := New(b).Send(context.Background(), &Request{URL: "http://x.test/a", FollowRedirects: true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusPermanentRedirect {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestSend_NoFollow(t *testing.T) {
	b := &scriptedBackend{responses: map[string]*Response{
		"http://x.test/a": redirect(http.StatusFound, "http://x.test/b"),
	}}
	resp, err := New(b).Send(context.Background(), &Request{URL: "http://x.test/a"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode != http.StatusFound || len(b.calls) != 1 {
		t.Errorf("status=%d calls=%d", resp.StatusCode, len(b.calls))
	}
}

func TestSend_BadLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
	}{
		{name: "missing", location: ""},
		{name: "unsupported scheme", location: "ftp://x.test/file"},
		{name: "unparsable", location: "http://[::1"},
		{name: "relative path", location: "../b?x=1"},
		{name: "host relative", location: "/b"},
		{name: "scheme relative", location: "//y.test/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &scriptedBackend{responses: map[string]*Response{
				"http://x.test/a": redirect(http.StatusFound, tt.location),
			}}
			_, err := New(b).Send(context.Background(), &Request{URL: "http://x.test/a", FollowRedirects: true})
			if !errors.Is(err, errs.ErrProtocolParse) {
				t.Fatalf("expected ErrProtocolParse, got %v", err)
			}
		})
	}
}

func TestSend_SinkGetsOnlyFinalBody(t *testing.T) {
	b := &scriptedBackend{responses: map[string]*Response{
		"http://x.test/a": {StatusCode: http.StatusFound, Header: http.Header{"Location": {"http://x.test/b"}}, Body: []byte("moved")},
		"http://x.test/b": ok("payload"),
	}}
	var sink bytes.Buffer
	resp, err := New(b).Send(context.Background(), &Request{URL: "http://x.test/a", FollowRedirects: true, Sink: &sink})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sink.String() != "payload" {
		t.Errorf("sink = %q", sink.String())
	}
	if resp.Written != int64(len("payload")) {
		t.Errorf("Written = %d", resp.Written)
	}
}

func TestSend_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(chain(1)).Send(ctx, &Request{URL: "http://r.test/0", FollowRedirects: true})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGet_Status(t *testing.T) {
	b := &scriptedBackend{responses: map[string]*Response{
		"http://x.test/ok":      ok("fine"),
		"http://x.test/missing": {StatusCode: http.StatusNotFound, Header: http.Header{}, Body: []byte("nope")},
	}}
	tr := New(b)

	body, err := tr.Get(context.Background(), "http://x.test/ok")
	if err != nil || string(body) != "fine" {
		t.Errorf("Get ok: %q %v", body, err)
	}
	if _, err := tr.Get(context.Background(), "http://x.test/missing"); !errors.Is(err, errs.ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
	if _, err := tr.Get(context.Background(), "http://x.test/unknown"); !errors.Is(err, errs.ErrConnection) {
		t.Errorf("expected ErrConnection, got %v", err)
	}
}

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0, 128) != nil {
		t.Error("zero rate must disable limiting")
	}
	l := NewLimiter(64, 128)
	if l == nil || l.Burst() != 128 {
		t.Errorf("burst must cover one chunk, got %v", l)
	}
}
