package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/h2non/filetype"

	"github.com/tejashwikalptaru/offtune/internal/adapter/storage/folder"
	"github.com/tejashwikalptaru/offtune/internal/domain"
)

const (
	copyBufferSize  = 32 * 1024
	defaultFileName = "download"
	filePermissions = 0o644
)

type transferResult struct {
	path string
	mime string
	size int64
	err  error
}

// transfer runs one attempt for en, resuming from the partial file when the server supports ranges.
func (e *Engine) transfer(ctx context.Context, en entry) transferResult {
	log := e.logger.With(slog.Int64("handle", en.Handle))
	wctx := context.WithoutCancel(ctx)

	if err := os.MkdirAll(en.Destination, folder.DirPermissions); err != nil {
		return transferResult{err: fmt.Errorf("create destination: %w", err)}
	}

	part := partPath(en)
	var offset int64
	if info, err := os.Stat(part); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, en.SourceURL, nil)
	if err != nil {
		return transferResult{err: err}
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return transferResult{err: stopCause(ctx, err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		if offset > 0 {
			log.Debug("server ignored range, restarting", slog.Int64("offset", offset))
			offset = 0
		}
	case http.StatusRequestedRangeNotSatisfiable:
		_ = os.Remove(part)
		return transferResult{err: domain.NewEngineError("transfer", domain.EngineHandle(en.Handle),
			resp.StatusCode, "stale partial file", nil)}
	default:
		return transferResult{err: domain.NewEngineError("transfer", domain.EngineHandle(en.Handle),
			resp.StatusCode, resp.Status, nil)}
	}

	if offset == 0 {
		_ = os.Remove(part)
		if name := fileNameFromDisposition(resp.Header.Get("Content-Disposition")); name != "" && name != en.FileName {
			if err := e.store.setFileName(ctx, en.Handle, name); err != nil {
				return transferResult{err: stopCause(ctx, err)}
			}
			en.FileName = name
			part = partPath(en)
		}
	}

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if offset > 0 {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	out, err := os.OpenFile(part, flags, filePermissions)
	if err != nil {
		return transferResult{err: fmt.Errorf("open partial file: %w", err)}
	}

	log.Info("transfer started",
		slog.String("url", en.SourceURL),
		slog.String("offset", humanize.Bytes(uint64(offset))),
		slog.String("total", humanizeTotal(total)))

	written, copyErr := e.copy(ctx, en.Handle, out, resp.Body, offset, total)
	closeErr := out.Close()
	if err := e.store.progress(wctx, en.Handle, written, total); err != nil {
		log.Warn("failed to persist progress", slog.Any("error", err))
	}
	if copyErr != nil {
		return transferResult{err: copyErr}
	}
	if closeErr != nil {
		return transferResult{err: closeErr}
	}
	if total >= 0 && written != total {
		return transferResult{err: fmt.Errorf("short transfer: got %d of %d bytes", written, total)}
	}

	// A pause or cancel from another process may land after the last progress check.
	if err := e.checkStatus(ctx, en.Handle); err != nil {
		return transferResult{err: err}
	}

	final := uniquePath(en.Destination, en.FileName)
	if err := os.Rename(part, final); err != nil {
		return transferResult{err: fmt.Errorf("finalize: %w", err)}
	}

	return transferResult{
		path: final,
		mime: detectMIME(final, resp.Header.Get("Content-Type")),
		size: written,
	}
}

// copy streams body into out, persisting progress and re-checking the entry status
// every ProgressInterval. Returns the total bytes now in the partial file.
func (e *Engine) copy(ctx context.Context, handle int64, out io.Writer, body io.Reader, offset, total int64) (int64, error) {
	buf := make([]byte, copyBufferSize)
	written := offset
	last := time.Now()

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write partial file: %w", err)
			}
			written += int64(n)
		}

		if time.Since(last) >= e.opts.ProgressInterval {
			last = time.Now()
			if err := e.store.progress(ctx, handle, written, total); err != nil {
				return written, stopCause(ctx, err)
			}
			if err := e.checkStatus(ctx, handle); err != nil {
				return written, err
			}
			e.logger.Debug("transfer progress",
				slog.Int64("handle", handle),
				slog.String("downloaded", humanize.Bytes(uint64(written))),
				slog.String("total", humanizeTotal(total)))
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, stopCause(ctx, readErr)
		}
	}
}

// checkStatus maps a status change made outside this worker to a stop error.
func (e *Engine) checkStatus(ctx context.Context, handle int64) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	status, err := e.store.status(ctx, handle)
	if errors.Is(err, domain.ErrEngineEntryNotFound) {
		return errRemoved
	}
	if err != nil {
		return stopCause(ctx, err)
	}
	switch domain.ParseDownloadStatus(status) {
	case domain.DownloadStatusDownloading:
		return nil
	case domain.DownloadStatusCancelled:
		return errCancelled
	default:
		return errPaused
	}
}

// stopCause prefers the cancellation cause over the I/O error it produced.
func stopCause(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	return err
}

func partPath(en entry) string {
	return filepath.Join(en.Destination, fmt.Sprintf("%s.%d.part", en.FileName, en.Handle))
}

// uniquePath returns dir/name, or dir/"name (n).ext" when that file already exists.
func uniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
	}
}

func fileNameFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	if base == "/" || base == "." {
		base = ""
	}
	return folder.SanitizeName(base, defaultFileName)
}

func fileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return folder.SanitizeName(name, "")
}

// detectMIME sniffs the file content, falling back to the response header.
func detectMIME(path, contentType string) string {
	if kind, err := filetype.MatchFile(path); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return "application/octet-stream"
}

func humanizeTotal(total int64) string {
	if total < 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(total))
}
