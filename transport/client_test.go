package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/ytget/ytfetch/errs"
)

func newClient(t *testing.T, cfg BackendConfig) *ClientBackend {
	t.Helper()
	b, err := NewClientBackend(cfg)
	if err != nil {
		t.Fatalf("NewClientBackend: %v", err)
	}
	return b
}

func TestClientBackend_Body(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	resp, err := newClient(t, BackendConfig{UserAgent: "test-agent"}).Do(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "hello" {
		t.Errorf("got %d %q", resp.StatusCode, resp.Body)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestClientBackend_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			http.Redirect(w, r, "http://"+r.Host+"/b", http.StatusFound)
			return
		}
		w.Write([]byte("b"))
	}))
	defer srv.Close()

	b := newClient(t, BackendConfig{})
	resp, err := b.Do(context.Background(), &Request{URL: srv.URL + "/a"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("backend followed the redirect itself: %d", resp.StatusCode)
	}

	resp, err = New(b).Send(context.Background(), &Request{URL: srv.URL + "/a", FollowRedirects: true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(resp.Body) != "b" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestClientBackend_SinkAndProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 4096)
	var gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	var sink bytes.Buffer
	var last, total int64
	resp, err := newClient(t, BackendConfig{ChunkSize: 1024}).Do(context.Background(), &Request{
		URL:  srv.URL,
		Sink: &sink,
		Progress: func(d, tot int64) {
			last, total = d, tot
		},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !bytes.Equal(sink.Bytes(), payload) {
		t.Errorf("sink got %d bytes", sink.Len())
	}
	if resp.Written != int64(len(payload)) || last != int64(len(payload)) || total != int64(len(payload)) {
		t.Errorf("written=%d last=%d total=%d", resp.Written, last, total)
	}
	if gotEncoding != "identity" {
		t.Errorf("streams must ask for identity encoding, got %q", gotEncoding)
	}
}

func TestClientBackend_DecodesCompressedPages(t *testing.T) {
	const page = "<html>ytplayer.config = {};</html>"

	tests := []struct {
		name   string
		encode func(*bytes.Buffer)
	}{
		{name: "br", encode: func(buf *bytes.Buffer) {
			w := brotli.NewWriter(buf)
			w.Write([]byte(page))
			w.Close()
		}},
		{name: "gzip", encode: func(buf *bytes.Buffer) {
			w := gzip.NewWriter(buf)
			w.Write([]byte(page))
			w.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var encoded bytes.Buffer
			tt.encode(&encoded)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.name)
				w.Write(encoded.Bytes())
			}))
			defer srv.Close()

			resp, err := newClient(t, BackendConfig{}).Do(context.Background(), &Request{URL: srv.URL})
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if string(resp.Body) != page {
				t.Errorf("body = %q", resp.Body)
			}
			if resp.Header.Get("Content-Encoding") != "" {
				t.Error("Content-Encoding should be dropped after decoding")
			}
		})
	}
}

func TestClientBackend_InsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer srv.Close()

	resp, err := newClient(t, BackendConfig{}).Do(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(resp.Body) != "secure" {
		t.Errorf("body = %q", resp.Body)
	}

	_, err = newClient(t, BackendConfig{VerifyTLS: true}).Do(context.Background(), &Request{URL: srv.URL})
	if !errors.Is(err, errs.ErrConnection) {
		t.Errorf("self-signed certificate must fail verification, got %v", err)
	}
}

func TestClientBackend_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, BackendConfig{}).Do(ctx, &Request{URL: srv.URL})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientBackend_BadURL(t *testing.T) {
	_, err := newClient(t, BackendConfig{}).Do(context.Background(), &Request{URL: "file:///etc/passwd"})
	if !errors.Is(err, errs.ErrProtocolParse) {
		t.Fatalf("expected ErrProtocolParse, got %v", err)
	}
}

func TestBackendsAreInterchangeable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			http.Redirect(w, r, "http://"+r.Host+"/hop", http.StatusSeeOther)
		case "/hop":
			http.Redirect(w, r, "http://"+r.Host+"/end", http.StatusTemporaryRedirect)
		default:
			w.Write([]byte("same"))
		}
	}))
	defer srv.Close()

	backends := []Backend{
		newSocket(t, BackendConfig{}),
		newClient(t, BackendConfig{}),
	}
	for _, b := range backends {
		t.Run(b.Name(), func(t *testing.T) {
			body, err := New(b).Get(context.Background(), srv.URL+"/start")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(body) != "same" {
				t.Errorf("body = %q", body)
			}
		})
	}
}

func TestBackends_ProgressOnlyForSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := []byte("payload")
		if r.URL.Path == "/missing" {
			body = []byte("<html>not found</html>")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.WriteHeader(http.StatusNotFound)
		} else {
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		}
		w.Write(body)
	}))
	defer srv.Close()

	backends := []Backend{
		newSocket(t, BackendConfig{}),
		newClient(t, BackendConfig{}),
	}
	for _, b := range backends {
		t.Run(b.Name(), func(t *testing.T) {
			var calls int
			progress := func(downloaded, total int64) { calls++ }

			resp, err := b.Do(context.Background(), &Request{URL: srv.URL + "/missing", Progress: progress})
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if resp.StatusCode != http.StatusNotFound || calls != 0 {
				t.Errorf("status=%d progress calls=%d, want 404 and none", resp.StatusCode, calls)
			}

			var sink bytes.Buffer
			if _, err := b.Do(context.Background(), &Request{URL: srv.URL + "/ok", Sink: &sink, Progress: progress}); err != nil {
				t.Fatalf("Do: %v", err)
			}
			if calls == 0 {
				t.Error("expected progress for a 2xx body")
			}
		})
	}
}
