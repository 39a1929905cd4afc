// Package httpfetch implements ports.FetchEngine as an in-process HTTP downloader.
//
// Engine state is kept in the fetch_entries table of the shared SQLite database,
// so any process may enqueue, pause or cancel while a single process (the one
// calling Run) performs the transfers. Workers observe status changes made by
// other processes by re-reading their entry while copying.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// Options configures the engine.
type Options struct {
	// MaxConcurrent bounds simultaneous transfers
	MaxConcurrent int

	// RetryCount is how many times a failed transfer is retried automatically
	RetryCount int

	// PollInterval is how often Run looks for queued entries without a wake-up
	PollInterval time.Duration

	// ProgressInterval is how often a transfer persists progress and checks its status
	ProgressInterval time.Duration

	// UserAgent is sent with every request
	UserAgent string

	// Client performs the requests; nil uses a client without a global timeout
	Client *http.Client
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaxConcurrent:    1,
		RetryCount:       3,
		PollInterval:     2 * time.Second,
		ProgressInterval: 500 * time.Millisecond,
		UserAgent:        "offtune/1.0",
	}
}

var (
	errPaused    = errors.New("transfer paused")
	errCancelled = errors.New("transfer cancelled")
	errRemoved   = errors.New("transfer removed")
)

// running tracks a transfer owned by this process.
type running struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Engine is the HTTP fetch engine.
//
// Thread-safety: All methods are safe for concurrent use.
type Engine struct {
	store  *store
	opts   Options
	client *http.Client
	logger *slog.Logger

	wake chan struct{}

	mu      sync.Mutex
	running map[int64]*running
}

// NewEngine creates an engine on an opened database, applying its schema.
func NewEngine(ctx context.Context, db *sqlx.DB, opts Options, logger *slog.Logger) (*Engine, error) {
	defaults := DefaultOptions()
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaults.MaxConcurrent
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaults.ProgressInterval
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 0}
	}

	s, err := newStore(ctx, db)
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:   s,
		opts:    opts,
		client:  client,
		logger:  logger.With(slog.String("component", "httpfetch")),
		wake:    make(chan struct{}, 1),
		running: make(map[int64]*running),
	}, nil
}

// Enqueue records a new queued entry. Run picks it up.
func (e *Engine) Enqueue(ctx context.Context, sourceURL, destination string) (domain.EngineHandle, error) {
	parsed, err := url.Parse(sourceURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return domain.InvalidEngineHandle, domain.NewEngineError("enqueue", domain.InvalidEngineHandle, 0,
			"unsupported url "+sourceURL, err)
	}
	if destination == "" {
		return domain.InvalidEngineHandle, domain.NewEngineError("enqueue", domain.InvalidEngineHandle, 0,
			"destination is empty", nil)
	}

	handle, err := e.store.insert(ctx, sourceURL, destination, fileNameFromURL(parsed))
	if err != nil {
		return domain.InvalidEngineHandle, domain.NewEngineError("enqueue", domain.InvalidEngineHandle, 0,
			"failed to record entry", err)
	}

	e.logger.Info("entry queued",
		slog.Int64("handle", handle),
		slog.String("url", sourceURL),
		slog.String("destination", destination))
	e.signal()
	return domain.EngineHandle(handle), nil
}

// Status returns the entry snapshot, or domain.ErrEngineEntryNotFound.
func (e *Engine) Status(ctx context.Context, handle domain.EngineHandle) (domain.EngineDownload, error) {
	en, err := e.store.get(ctx, int64(handle))
	if err != nil {
		if errors.Is(err, domain.ErrEngineEntryNotFound) {
			return domain.EngineDownload{}, err
		}
		return domain.EngineDownload{}, domain.NewEngineError("status", handle, 0, "failed to read entry", err)
	}
	return en.toDomain(), nil
}

// Pause suspends queued or transferring entries. Partial data is kept.
func (e *Engine) Pause(ctx context.Context, handles ...domain.EngineHandle) error {
	return e.each(ctx, "pause", handles, func(h int64) error {
		if _, err := e.store.transition(ctx, h, domain.DownloadStatusPaused,
			domain.DownloadStatusQueued, domain.DownloadStatusDownloading); err != nil {
			return err
		}
		e.stop(ctx, h, errPaused)
		return nil
	})
}

// Resume queues paused entries again; transfers continue from the partial file.
func (e *Engine) Resume(ctx context.Context, handles ...domain.EngineHandle) error {
	err := e.each(ctx, "resume", handles, func(h int64) error {
		_, err := e.store.transition(ctx, h, domain.DownloadStatusQueued, domain.DownloadStatusPaused)
		return err
	})
	e.signal()
	return err
}

// Cancel stops entries and drops their partial data. The entries stay known.
func (e *Engine) Cancel(ctx context.Context, handles ...domain.EngineHandle) error {
	return e.each(ctx, "cancel", handles, func(h int64) error {
		changed, err := e.store.transition(ctx, h, domain.DownloadStatusCancelled,
			domain.DownloadStatusNone, domain.DownloadStatusQueued,
			domain.DownloadStatusDownloading, domain.DownloadStatusPaused)
		if err != nil || !changed {
			return err
		}
		e.stop(ctx, h, errCancelled)
		return e.dropPartial(ctx, h)
	})
}

// Retry restarts failed or cancelled entries from scratch.
func (e *Engine) Retry(ctx context.Context, handles ...domain.EngineHandle) error {
	err := e.each(ctx, "retry", handles, func(h int64) error {
		en, err := e.store.get(ctx, h)
		if err != nil {
			return err
		}
		switch domain.ParseDownloadStatus(en.Status) {
		case domain.DownloadStatusFailed, domain.DownloadStatusCancelled:
		default:
			return nil
		}
		if err := os.Remove(partPath(en)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("drop partial: %w", err)
		}
		_, err = e.store.restart(ctx, h)
		return err
	})
	e.signal()
	return err
}

// Remove forgets entries. Completed files stay on disk; partial files are dropped.
func (e *Engine) Remove(ctx context.Context, handles ...domain.EngineHandle) error {
	return e.each(ctx, "remove", handles, func(h int64) error {
		e.stop(ctx, h, errRemoved)
		if err := e.dropPartial(ctx, h); err != nil {
			return err
		}
		return e.store.delete(ctx, h)
	})
}

// Delete forgets entries and erases their files.
func (e *Engine) Delete(ctx context.Context, handles ...domain.EngineHandle) error {
	return e.each(ctx, "delete", handles, func(h int64) error {
		e.stop(ctx, h, errRemoved)
		if err := e.dropPartial(ctx, h); err != nil {
			return err
		}
		en, err := e.store.get(ctx, h)
		if err != nil {
			return err
		}
		if en.FilePath != "" {
			if err := os.Remove(en.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("erase %s: %w", en.FilePath, err)
			}
		}
		return e.store.delete(ctx, h)
	})
}

// each applies fn per handle. Unknown handles are skipped; other errors are joined.
func (e *Engine) each(ctx context.Context, op string, handles []domain.EngineHandle, fn func(h int64) error) error {
	var errs []error
	for _, handle := range handles {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(int64(handle))
		if err == nil || errors.Is(err, domain.ErrEngineEntryNotFound) {
			continue
		}
		errs = append(errs, domain.NewEngineError(op, handle, 0, err.Error(), err))
	}
	if len(errs) == 0 {
		e.logger.Debug("batch applied", slog.String("op", op), slog.Int("count", len(handles)))
	}
	return errors.Join(errs...)
}

// dropPartial removes the .part file of an unfinished entry.
func (e *Engine) dropPartial(ctx context.Context, h int64) error {
	en, err := e.store.get(ctx, h)
	if err != nil {
		return err
	}
	if err := os.Remove(partPath(en)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("drop partial: %w", err)
	}
	return nil
}

// stop cancels a local transfer and waits for its worker to exit.
func (e *Engine) stop(ctx context.Context, h int64, cause error) {
	e.mu.Lock()
	r, ok := e.running[h]
	e.mu.Unlock()
	if !ok {
		return
	}
	r.cancel(cause)
	select {
	case <-r.done:
	case <-ctx.Done():
	}
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Run performs queued transfers until ctx is cancelled. Only one process should run
// the engine per database; transfers interrupted by a previous crash are requeued.
// Transfers in flight at shutdown are requeued and resume on the next Run.
func (e *Engine) Run(ctx context.Context) error {
	n, err := e.store.requeueInterrupted(ctx)
	if err != nil {
		return fmt.Errorf("requeue interrupted: %w", err)
	}
	if n > 0 {
		e.logger.Info("requeued interrupted transfers", slog.Int64("count", n))
	}

	g, gctx := errgroup.WithContext(ctx)
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	e.logger.Info("engine started",
		slog.Int("max_concurrent", e.opts.MaxConcurrent),
		slog.Int("retry_count", e.opts.RetryCount))

	for {
		e.dispatch(gctx, g)

		select {
		case <-gctx.Done():
			err := g.Wait()
			e.logger.Info("engine stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-e.wake:
		case <-ticker.C:
		}
	}
}

// dispatch claims queued entries up to the free transfer slots.
func (e *Engine) dispatch(ctx context.Context, g *errgroup.Group) {
	e.mu.Lock()
	free := e.opts.MaxConcurrent - len(e.running)
	e.mu.Unlock()
	if free <= 0 || ctx.Err() != nil {
		return
	}

	entries, err := e.store.queued(ctx, free)
	if err != nil {
		e.logger.Error("failed to list queued entries", slog.Any("error", err))
		return
	}

	for _, en := range entries {
		claimed, err := e.store.transition(ctx, en.Handle, domain.DownloadStatusDownloading, domain.DownloadStatusQueued)
		if err != nil || !claimed {
			continue
		}

		tctx, cancel := context.WithCancelCause(ctx)
		r := &running{cancel: cancel, done: make(chan struct{})}
		e.mu.Lock()
		e.running[en.Handle] = r
		e.mu.Unlock()

		g.Go(func() error {
			defer func() {
				e.mu.Lock()
				delete(e.running, en.Handle)
				e.mu.Unlock()
				cancel(nil)
				close(r.done)
				e.signal()
			}()
			e.finish(ctx, en, e.transfer(tctx, en))
			return nil
		})
	}
}

// finish records the outcome of one transfer attempt.
func (e *Engine) finish(ctx context.Context, en entry, result transferResult) {
	log := e.logger.With(slog.Int64("handle", en.Handle))
	// Outcome writes must land even when the run context is already done.
	wctx := context.WithoutCancel(ctx)

	switch {
	case result.err == nil:
		recorded, err := e.store.complete(wctx, en.Handle, result.path, result.mime, result.size)
		if err != nil {
			log.Error("failed to record completion", slog.Any("error", err))
			return
		}
		if !recorded {
			// The entry was removed while the file was being moved into place.
			if err := os.Remove(result.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("failed to drop untracked file", slog.String("file", result.path), slog.Any("error", err))
			}
			log.Info("transfer finished for a removed entry", slog.String("file", result.path))
			return
		}
		log.Info("transfer completed",
			slog.String("file", result.path),
			slog.String("size", humanize.Bytes(uint64(result.size))),
			slog.String("mime", result.mime))

	case errors.Is(result.err, errPaused), errors.Is(result.err, errCancelled), errors.Is(result.err, errRemoved):
		log.Info("transfer stopped", slog.String("reason", result.err.Error()))

	case ctx.Err() != nil:
		if _, err := e.store.transition(wctx, en.Handle, domain.DownloadStatusQueued, domain.DownloadStatusDownloading); err != nil {
			log.Error("failed to requeue on shutdown", slog.Any("error", err))
		}

	default:
		next, err := e.store.attemptFailed(wctx, en.Handle, result.err, e.opts.RetryCount)
		if err != nil {
			log.Error("failed to record failure", slog.Any("error", err))
			return
		}
		log.Warn("transfer attempt failed",
			slog.String("next", next.String()),
			slog.Any("error", result.err))
	}
}

var _ ports.FetchEngine = (*Engine)(nil)
