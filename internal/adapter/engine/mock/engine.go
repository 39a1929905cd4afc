// Package mock provides a mock implementation of the FetchEngine interface.
// This is used for testing services without any network transfer.
package mock

import (
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// Engine is an in-memory FetchEngine. Entries never progress on their own;
// tests drive them with SetStatus, Complete and Forget.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	logger *slog.Logger

	entries    map[domain.EngineHandle]*mockEntry
	nextHandle domain.EngineHandle
	calls      map[string][]domain.EngineHandle
	enqueued   []Submission
	mu         sync.RWMutex

	// Behavior configuration (for testing error scenarios)
	failEnqueue error
	failStatus  error
}

// Submission records the arguments of an Enqueue call.
type Submission struct {
	SourceURL   string
	Destination string
	Handle      domain.EngineHandle
}

type mockEntry struct {
	sourceURL   string
	destination string
	status      domain.DownloadStatus
	rawStatus   string
	filePath    string
	total       int64
	done        int64
}

// NewEngine creates a new mock fetch engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:     logger.With(slog.String("component", "mock-engine")),
		entries:    make(map[domain.EngineHandle]*mockEntry),
		nextHandle: 1,
		calls:      make(map[string][]domain.EngineHandle),
	}
}

// SetFailEnqueue makes Enqueue return err (nil restores normal behavior).
func (m *Engine) SetFailEnqueue(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failEnqueue = err
}

// SetNextHandle sets the handle the next successful Enqueue returns.
func (m *Engine) SetNextHandle(handle domain.EngineHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandle = handle
}

// SetFailStatus makes Status return err for every handle.
func (m *Engine) SetFailStatus(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = err
}

// Enqueue registers a new queued entry.
func (m *Engine) Enqueue(_ context.Context, sourceURL, destination string) (domain.EngineHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failEnqueue != nil {
		return domain.InvalidEngineHandle, m.failEnqueue
	}

	handle := m.nextHandle
	m.nextHandle++
	m.entries[handle] = &mockEntry{
		sourceURL:   sourceURL,
		destination: destination,
		status:      domain.DownloadStatusQueued,
	}
	m.enqueued = append(m.enqueued, Submission{SourceURL: sourceURL, Destination: destination, Handle: handle})
	m.calls["enqueue"] = append(m.calls["enqueue"], handle)

	m.logger.Debug("entry enqueued", slog.Int64("handle", int64(handle)), slog.String("url", sourceURL))
	return handle, nil
}

// Status returns the entry snapshot.
func (m *Engine) Status(_ context.Context, handle domain.EngineHandle) (domain.EngineDownload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failStatus != nil {
		return domain.EngineDownload{}, m.failStatus
	}
	e, ok := m.entries[handle]
	if !ok {
		return domain.EngineDownload{}, domain.ErrEngineEntryNotFound
	}

	progress := -1
	if e.total > 0 {
		progress = int(e.done * 100 / e.total)
	}
	raw := e.rawStatus
	if raw == "" {
		raw = e.status.String()
	}
	return domain.EngineDownload{
		Handle:          handle,
		Status:          e.status,
		RawStatus:       raw,
		Progress:        progress,
		DownloadedBytes: e.done,
		TotalBytes:      e.total,
		FilePath:        e.filePath,
	}, nil
}

// Pause marks entries paused.
func (m *Engine) Pause(_ context.Context, handles ...domain.EngineHandle) error {
	m.apply("pause", handles, func(e *mockEntry) { e.status = domain.DownloadStatusPaused })
	return nil
}

// Resume marks entries queued again.
func (m *Engine) Resume(_ context.Context, handles ...domain.EngineHandle) error {
	m.apply("resume", handles, func(e *mockEntry) { e.status = domain.DownloadStatusQueued })
	return nil
}

// Cancel marks entries cancelled.
func (m *Engine) Cancel(_ context.Context, handles ...domain.EngineHandle) error {
	m.apply("cancel", handles, func(e *mockEntry) { e.status = domain.DownloadStatusCancelled })
	return nil
}

// Retry restarts entries from scratch.
func (m *Engine) Retry(_ context.Context, handles ...domain.EngineHandle) error {
	m.apply("retry", handles, func(e *mockEntry) {
		e.status = domain.DownloadStatusQueued
		e.done = 0
	})
	return nil
}

// Remove forgets entries.
func (m *Engine) Remove(_ context.Context, handles ...domain.EngineHandle) error {
	m.forget("remove", handles)
	return nil
}

// Delete forgets entries. The mock has no files to erase.
func (m *Engine) Delete(_ context.Context, handles ...domain.EngineHandle) error {
	m.forget("delete", handles)
	return nil
}

func (m *Engine) apply(op string, handles []domain.EngineHandle, fn func(e *mockEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range handles {
		m.calls[op] = append(m.calls[op], h)
		if e, ok := m.entries[h]; ok {
			fn(e)
		}
	}
}

func (m *Engine) forget(op string, handles []domain.EngineHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range handles {
		m.calls[op] = append(m.calls[op], h)
		delete(m.entries, h)
	}
}

// SetStatus forces the status of an entry.
func (m *Engine) SetStatus(handle domain.EngineHandle, status domain.DownloadStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[handle]; ok {
		e.status = status
		e.rawStatus = ""
	}
}

// SetRawStatus reports an engine-native status this core does not recognise.
func (m *Engine) SetRawStatus(handle domain.EngineHandle, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[handle]; ok {
		e.status = domain.DownloadStatusUnknown
		e.rawStatus = raw
	}
}

// Complete marks an entry completed with its file written under the destination.
// Returns the file path the entry now reports.
func (m *Engine) Complete(handle domain.EngineHandle, fileName string, size int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[handle]
	if !ok {
		return ""
	}
	e.status = domain.DownloadStatusCompleted
	e.rawStatus = ""
	e.filePath = path.Join(e.destination, fileName)
	e.total = size
	e.done = size
	return e.filePath
}

// Forget drops an entry as if the engine lost it.
func (m *Engine) Forget(handle domain.EngineHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, handle)
}

// Calls returns the handles passed to op ("enqueue", "pause", "resume", "cancel",
// "retry", "remove", "delete") in call order.
func (m *Engine) Calls(op string) []domain.EngineHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.EngineHandle(nil), m.calls[op]...)
}

// Submissions returns every successful Enqueue in call order.
func (m *Engine) Submissions() []Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Submission(nil), m.enqueued...)
}

// EntryCount returns the number of entries the engine knows.
func (m *Engine) EntryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Verify that Engine implements the FetchEngine interface
var _ ports.FetchEngine = (*Engine)(nil)
