package cipher

import (
	"context"
	"time"

	"github.com/ytget/ytfetch/internal/logger"
)

// Fetcher retrieves a document into memory. *transport.Transport satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Resolver turns a watch page into the cipher program of its player script.
type Resolver struct {
	fetcher Fetcher
	baseURL string
	cache   Cache
	log     *logger.ComponentLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlayerBaseURL overrides DefaultPlayerBaseURL.
func WithPlayerBaseURL(base string) Option {
	return func(r *Resolver) {
		if base != "" {
			r.baseURL = base
		}
	}
}

// WithCache enables program caching by player URL. nil disables it.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.ComponentLogger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a Resolver fetching scripts through f.
func NewResolver(f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: f,
		baseURL: DefaultPlayerBaseURL,
		log:     logger.WithComponent(logger.ComponentCipher),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlayerURL returns the player script URL referenced by page.
func (r *Resolver) PlayerURL(page string) (string, error) {
	return PlayerURL(r.baseURL, page)
}

// Script fetches the player script referenced by page.
func (r *Resolver) Script(ctx context.Context, page string) (playerURL, script string, err error) {
	playerURL, err = r.PlayerURL(page)
	if err != nil {
		return "", "", err
	}
	script, err = r.fetch(ctx, playerURL)
	return playerURL, script, err
}

func (r *Resolver) fetch(ctx context.Context, playerURL string) (string, error) {
	body, err := r.fetcher.Get(ctx, playerURL)
	if err != nil {
		return "", downloadError(playerURL, err)
	}
	return string(body), nil
}

// Resolve fetches the player script referenced by page and extracts its
// cipher program.
func (r *Resolver) Resolve(ctx context.Context, page string) (Program, error) {
	playerURL, err := r.PlayerURL(page)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if p, ok := r.cache.Get(playerURL); ok {
			r.log.Debug("program cache hit", map[string]interface{}{"player": playerURL})
			return p, nil
		}
	}

	start := time.Now()
	script, err := r.fetch(ctx, playerURL)
	if err != nil {
		return nil, err
	}
	p, err := ExtractProgram(script)
	if err != nil {
		r.log.Warn("cipher extraction failed", map[string]interface{}{"player": playerURL, "error": err.Error()})
		return nil, err
	}
	r.log.Info("cipher resolved", map[string]interface{}{
		"player":   playerURL,
		"program":  p.String(),
		"duration": time.Since(start).String(),
	})

	if r.cache != nil {
		r.cache.Set(playerURL, p)
	}
	return p, nil
}
