package ytfetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/ytfetch/downloader"
	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/config"
	"github.com/ytget/ytfetch/internal/logger"
	"github.com/ytget/ytfetch/internal/sanitize"
	"github.com/ytget/ytfetch/transport"
	"github.com/ytget/ytfetch/types"
	"github.com/ytget/ytfetch/youtube/cipher"
	"github.com/ytget/ytfetch/youtube/formats"
	"github.com/ytget/ytfetch/youtube/page"
)

// DefaultHomeURL is the page RandomVideoURL picks a video from.
const DefaultHomeURL = "https://www.youtube.com/"

// Progress describes current progress of an ongoing download.
type Progress = downloader.Progress

// Result describes a finished download.
type Result struct {
	Info   *types.VideoInfo
	Target *types.Target
	// Path is the final file, extension included when the mime type is known.
	Path string
	Size int64
}

// CipherInfo is what the print-cipher surface reports.
type CipherInfo struct {
	VideoURL  string
	PlayerURL string
	Program   cipher.Program
	// Script is the player script the program was read from.
	Script string
}

// Downloader runs the pipeline for one video at a time. Use one Downloader
// per concurrent download; they may share a Transport.
type Downloader struct {
	cfg       *config.Config
	transport *transport.Transport
	resolver  *cipher.Resolver

	itag      string
	fileName  string
	outputDir string
	homeURL   string
	progress  func(Progress)

	m   machine
	log *logger.ComponentLogger
}

// New creates a Downloader with the default configuration.
func New() *Downloader {
	return &Downloader{
		cfg:     config.DefaultConfig(),
		homeURL: DefaultHomeURL,
		log:     logger.WithComponent(logger.ComponentApp),
	}
}

// WithConfig replaces the configuration. It must be called before the first run.
func (d *Downloader) WithConfig(cfg *config.Config) *Downloader {
	if cfg != nil {
		d.cfg = cfg
		if cfg.Output.Directory != "" && d.outputDir == "" {
			d.outputDir = cfg.Output.Directory
		}
	}
	return d
}

// WithTransport uses t instead of building one from the configuration.
func (d *Downloader) WithTransport(t *transport.Transport) *Downloader {
	d.transport = t
	d.resolver = nil
	return d
}

// WithFormat selects a format by itag. Highest quality is used when the
// itag is empty or not offered.
func (d *Downloader) WithFormat(itag string) *Downloader {
	d.itag = strings.TrimSpace(itag)
	return d
}

// WithFileName sets the output base name. The extension is appended after download.
func (d *Downloader) WithFileName(name string) *Downloader {
	d.fileName = name
	return d
}

// WithOutputDir sets the directory the file is written to.
func (d *Downloader) WithOutputDir(dir string) *Downloader {
	d.outputDir = dir
	return d
}

// WithHomeURL sets the page RandomVideoURL reads.
func (d *Downloader) WithHomeURL(u string) *Downloader {
	if u != "" {
		d.homeURL = u
	}
	return d
}

// WithProgress registers a callback that receives progress updates. It runs
// on the downloading goroutine after every chunk and must return promptly.
func (d *Downloader) WithProgress(f func(Progress)) *Downloader {
	d.progress = f
	return d
}

// WithStateHook registers an observer for pipeline transitions.
func (d *Downloader) WithStateHook(h StateHook) *Downloader {
	d.m.hook = h
	return d
}

// State returns the state of the current or last run.
func (d *Downloader) State() State { return d.m.state }

// Err returns the error that moved the last run to Failed.
func (d *Downloader) Err() error { return d.m.err }

// NewTransport builds the transport described by cfg. The backend is
// chosen here, once.
func NewTransport(cfg *config.Config) (*transport.Transport, error) {
	tc := cfg.Transport
	bps, err := config.ParseRate(tc.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	bc := transport.BackendConfig{
		UserAgent:   tc.UserAgent,
		ChunkSize:   tc.ChunkSize,
		Timeout:     tc.Timeout,
		DialTimeout: tc.DialTimeout,
		VerifyTLS:   tc.VerifyTLS,
		Proxy:       tc.Proxy,
		Limiter:     transport.NewLimiter(bps, tc.ChunkSize),
	}

	var b transport.Backend
	switch tc.Backend {
	case config.BackendClient:
		b, err = transport.NewClientBackend(bc)
	case config.BackendSocket, "":
		b, err = transport.NewSocketBackend(bc)
	default:
		err = fmt.Errorf("unknown transport backend %q", tc.Backend)
	}
	if err != nil {
		return nil, err
	}
	return transport.New(b, transport.WithMaxRedirects(tc.MaxRedirects)), nil
}

func (d *Downloader) setup() error {
	if d.transport == nil {
		t, err := NewTransport(d.cfg)
		if err != nil {
			return err
		}
		d.transport = t
	}
	if d.resolver == nil {
		opts := []cipher.Option{cipher.WithPlayerBaseURL(d.cfg.Player.BaseURL)}
		if d.cfg.Player.CacheTTL > 0 {
			opts = append(opts, cipher.WithCache(cipher.NewMemoryCache(d.cfg.Player.CacheTTL)))
		}
		d.resolver = cipher.NewResolver(d.transport, opts...)
	}
	return nil
}

// start begins a new run and returns its logger.
func (d *Downloader) start(videoURL string) (*logger.ComponentLogger, error) {
	d.m.reset()
	log := d.log.With(map[string]interface{}{"run_id": uuid.NewString()})
	log.Info("run started", map[string]interface{}{"url": videoURL})
	if err := d.setup(); err != nil {
		return log, d.m.fail(err)
	}
	return log, nil
}

func (d *Downloader) fetchPage(ctx context.Context, videoURL string) (string, error) {
	body, err := d.transport.Get(ctx, videoURL)
	if err != nil {
		return "", d.m.fail(fmt.Errorf("fetch watch page: %w", err))
	}
	d.m.advance(PageFetched)
	return string(body), nil
}

func (d *Downloader) catalog(videoURL, html string) (*types.VideoInfo, error) {
	raw, err := page.ExtractFormatMap(html)
	if err != nil {
		return nil, d.m.fail(err)
	}
	list := formats.ParseMap(raw)
	if len(list) == 0 {
		return nil, d.m.fail(errs.ErrNoFormatsFound)
	}
	d.m.advance(CatalogExtracted)
	return &types.VideoInfo{ID: page.VideoID(videoURL), Title: page.Title(html), Formats: list}, nil
}

// Formats fetches the watch page and returns its catalog.
func (d *Downloader) Formats(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	if _, err := d.start(videoURL); err != nil {
		return nil, err
	}
	html, err := d.fetchPage(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return d.catalog(videoURL, html)
}

// ResolveURL runs the pipeline up to URLResolved and returns the selected
// format with its playable URL.
func (d *Downloader) ResolveURL(ctx context.Context, videoURL string) (*types.Target, error) {
	log, err := d.start(videoURL)
	if err != nil {
		return nil, err
	}
	target, _, err := d.resolve(ctx, videoURL, log)
	return target, err
}

func (d *Downloader) resolve(ctx context.Context, videoURL string, log *logger.ComponentLogger) (*types.Target, *types.VideoInfo, error) {
	html, err := d.fetchPage(ctx, videoURL)
	if err != nil {
		return nil, nil, err
	}
	info, err := d.catalog(videoURL, html)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("catalog extracted", map[string]interface{}{"formats": len(info.Formats), "title": info.Title})

	f, err := formats.Select(info.Formats, d.itag)
	if err != nil {
		return nil, nil, d.m.fail(err)
	}
	if d.itag != "" && f.Itag != d.itag {
		log.Warn("requested format not offered, using highest quality", map[string]interface{}{"itag": d.itag})
	}
	d.m.advance(FormatSelected)
	log.Info("format selected", map[string]interface{}{"itag": f.Itag, "quality": f.Quality, "type": f.MimeType})

	finalURL, err := d.signedURL(ctx, html, f)
	if err != nil {
		return nil, nil, d.m.fail(err)
	}
	d.m.advance(URLResolved)

	name := d.fileName
	if strings.TrimSpace(name) != "" {
		name = sanitize.Name(name)
	} else {
		name = sanitize.BaseName(info.Title, info.ID)
	}
	return &types.Target{Format: *f, URL: finalURL, FileName: name}, info, nil
}

func (d *Downloader) signedURL(ctx context.Context, html string, f *types.Format) (string, error) {
	switch {
	case f.Sig != "":
		return withQuery(f.URL, f.SignatureParam(), f.Sig)
	case f.Ciphered():
		prog, err := d.resolver.Resolve(ctx, html)
		if err != nil {
			return "", err
		}
		return withQuery(f.URL, f.SignatureParam(), prog.Decipher(f.S))
	}
	return f.URL, nil
}

// withQuery appends key=value to rawURL. The existing query is left byte
// for byte as served, since the media URL is signed over it.
func withQuery(rawURL, key, value string) (string, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return "", fmt.Errorf("%w: format url: %w", errs.ErrProtocolParse, err)
	}
	base, fragment, hasFragment := strings.Cut(rawURL, "#")
	sep := "&"
	switch {
	case !strings.Contains(base, "?"):
		sep = "?"
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		sep = ""
	}
	out := base + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if hasFragment {
		out += "#" + fragment
	}
	return out, nil
}

// Download runs the whole pipeline and writes <dir>/<name>.<ext>.
//
// If streaming fails, the partial file stays at <dir>/<name>. Removing it is
// up to the caller.
func (d *Downloader) Download(ctx context.Context, videoURL string) (*Result, error) {
	log, err := d.start(videoURL)
	if err != nil {
		return nil, err
	}
	target, info, err := d.resolve(ctx, videoURL, log)
	if err != nil {
		return nil, err
	}

	minFree, err := config.ParseRate(d.cfg.Output.MinFreeSpace)
	if err != nil {
		return nil, d.m.fail(fmt.Errorf("min free space: %w", err))
	}
	dl := downloader.New(d.transport, d.progress).WithLogger(logger.WithComponent(logger.ComponentDownload).With(map[string]interface{}{"url": videoURL}))
	dl.MinFreeSpace = uint64(minFree)

	path := filepath.Join(d.outputDir, target.FileName)
	d.m.advance(Downloading)
	begin := time.Now()
	size, err := dl.Download(ctx, target.URL, path)
	if err != nil {
		return nil, d.m.fail(err)
	}
	path, err = downloader.AppendExtension(path, target.Format.MimeType)
	if err != nil {
		return nil, d.m.fail(err)
	}
	d.m.advance(Completed)
	log.Info("run completed", map[string]interface{}{"path": path, "bytes": size, "duration": time.Since(begin).String()})

	return &Result{Info: info, Target: target, Path: path, Size: size}, nil
}

// Cipher resolves the cipher program of the player used by videoURL. An
// empty videoURL picks a random video from the home page.
func (d *Downloader) Cipher(ctx context.Context, videoURL string) (*CipherInfo, error) {
	if err := d.setup(); err != nil {
		return nil, err
	}
	if videoURL == "" {
		u, err := d.RandomVideoURL(ctx)
		if err != nil {
			return nil, err
		}
		videoURL = u
	}
	body, err := d.transport.Get(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	playerURL, script, err := d.resolver.Script(ctx, string(body))
	if err != nil {
		return nil, err
	}
	prog, err := cipher.ExtractProgram(script)
	if err != nil {
		return nil, err
	}
	return &CipherInfo{VideoURL: videoURL, PlayerURL: playerURL, Program: prog, Script: script}, nil
}

// RandomVideoURL returns the watch URL of a random video linked from the home page.
func (d *Downloader) RandomVideoURL(ctx context.Context) (string, error) {
	if err := d.setup(); err != nil {
		return "", err
	}
	body, err := d.transport.Get(ctx, d.homeURL)
	if err != nil {
		return "", fmt.Errorf("fetch home page: %w", err)
	}
	ids := page.WatchLinks(string(body))
	if len(ids) == 0 {
		return "", fmt.Errorf("no video links on %s: %w", d.homeURL, errs.ErrPlatformFormatChanged)
	}
	base, err := url.Parse(d.homeURL)
	if err != nil {
		return "", fmt.Errorf("%w: home url: %w", errs.ErrInvalidURL, err)
	}
	ref := &url.URL{Path: "/watch", RawQuery: url.Values{"v": {ids[rand.Intn(len(ids))]}}.Encode()}
	return base.ResolveReference(ref).String(), nil
}

var watchHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
}

// ValidateURL accepts https or http watch URLs of the form
// youtube.com/watch?v=ID and youtu.be/ID.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", errs.ErrInvalidURL, rawURL)
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case watchHosts[host] && u.Path == "/watch" && u.Query().Get("v") != "":
		return nil
	case host == "youtu.be" && strings.Trim(u.Path, "/") != "":
		return nil
	}
	return fmt.Errorf("%w: %q", errs.ErrInvalidURL, rawURL)
}

// IsPlatformChange reports whether err means the platform changed its page
// or player format. Such errors are not worth retrying.
func IsPlatformChange(err error) bool {
	return errors.Is(err, errs.ErrPlatformFormatChanged)
}
