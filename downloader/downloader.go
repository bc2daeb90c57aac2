package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/ytget/ytfetch/errs"
	"github.com/ytget/ytfetch/internal/logger"
	"github.com/ytget/ytfetch/internal/mimeext"
	"github.com/ytget/ytfetch/transport"
)

const fileMode = 0644

// Progress holds information about download progress.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// Sender performs one transport request. *transport.Transport satisfies it.
type Sender interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Downloader streams media into files through a Sender.
type Downloader struct {
	Transport    Sender
	ProgressFunc func(Progress)
	// MinFreeSpace is kept free on the destination volume; 0 only checks
	// that the announced size fits.
	MinFreeSpace uint64

	freeSpace func(dir string) (uint64, error)
	log       *logger.ComponentLogger
}

// New creates a new downloader. progressFunc may be nil.
func New(t Sender, progressFunc func(Progress)) *Downloader {
	return &Downloader{
		Transport:    t,
		ProgressFunc: progressFunc,
		freeSpace:    diskFree,
		log:          logger.WithComponent(logger.ComponentDownload),
	}
}

// WithLogger replaces the component logger.
func (d *Downloader) WithLogger(l *logger.ComponentLogger) *Downloader {
	if l != nil {
		d.log = l
	}
	return d
}

func diskFree(dir string) (uint64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Download streams urlStr into outputPath, following redirects, and returns
// the number of bytes written.
//
// A failed transfer leaves the partial file in place. Removing it is up to
// the caller.
func (d *Downloader) Download(ctx context.Context, urlStr string, outputPath string) (int64, error) {
	dir := filepath.Dir(outputPath)
	free, freeErr := d.freeSpace(dir)
	if freeErr == nil && free < d.MinFreeSpace {
		return 0, fmt.Errorf("%w: %s free in %s, %s required", errs.ErrIO,
			humanize.Bytes(free), dir, humanize.Bytes(d.MinFreeSpace))
	}

	out, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	defer func() { _ = out.Close() }()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	checked := false
	progress := func(downloaded, total int64) {
		if !checked {
			checked = true
			if freeErr == nil && uint64(total)+d.MinFreeSpace > free {
				cancel(fmt.Errorf("%w: %s needed in %s, %s free", errs.ErrIO,
					humanize.Bytes(uint64(total)), dir, humanize.Bytes(free)))
				return
			}
			d.log.Debug("download size", map[string]interface{}{"total": humanize.Bytes(uint64(total))})
		}
		if d.ProgressFunc != nil {
			d.ProgressFunc(Progress{
				TotalSize:      total,
				DownloadedSize: downloaded,
				Percent:        float64(downloaded) / float64(total) * 100,
			})
		}
	}

	d.log.Info("download started", map[string]interface{}{"path": outputPath})
	resp, err := d.Transport.Send(ctx, &transport.Request{
		URL:             urlStr,
		FollowRedirects: true,
		Sink:            out,
		Progress:        progress,
	})
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return 0, cause
		}
		return 0, err
	}
	if !transport.IsSuccess(resp.StatusCode) {
		_ = out.Close()
		_ = os.Remove(outputPath)
		return 0, fmt.Errorf("%w: media request returned %d", errs.ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := out.Sync(); err != nil {
		return resp.Written, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	if resp.Written == 0 {
		return 0, fmt.Errorf("%w: empty download: 0 bytes written", errs.ErrIO)
	}

	d.log.Info("download finished", map[string]interface{}{
		"path":  outputPath,
		"bytes": humanize.Bytes(uint64(resp.Written)),
	})
	return resp.Written, nil
}

// AppendExtension renames path to path.<ext> with ext inferred from mime.
// An unknown mime type leaves the file where it is.
func AppendExtension(path, mime string) (string, error) {
	ext, ok := mimeext.ExtFromMime(mime)
	if !ok {
		return path, nil
	}
	target := path + "." + ext
	if err := os.Rename(path, target); err != nil {
		return path, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	return target, nil
}
