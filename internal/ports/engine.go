package ports

import (
	"context"

	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// FetchEngine is the external download engine. It owns the byte transfer,
// its retry policy, and the on-disk file; this core only submits work and
// asks for status by handle.
//
// Batch operations accept several handles and act on each; an unknown handle
// in a batch is skipped, not an error.
//
// Thread-safety: Implementations must be safe for concurrent use.
type FetchEngine interface {
	// Enqueue submits a transfer of sourceURL into destination (a directory).
	// Returns the handle identifying the new entry.
	Enqueue(ctx context.Context, sourceURL, destination string) (domain.EngineHandle, error)

	// Status returns the live snapshot of an entry.
	// Returns domain.ErrEngineEntryNotFound when the engine no longer knows the handle.
	Status(ctx context.Context, handle domain.EngineHandle) (domain.EngineDownload, error)

	// Pause suspends transfers, keeping partial data for a later Resume.
	Pause(ctx context.Context, handles ...domain.EngineHandle) error

	// Resume continues paused transfers.
	Resume(ctx context.Context, handles ...domain.EngineHandle) error

	// Cancel stops transfers. The entries stay known with status cancelled.
	Cancel(ctx context.Context, handles ...domain.EngineHandle) error

	// Retry restarts failed or cancelled transfers from scratch.
	Retry(ctx context.Context, handles ...domain.EngineHandle) error

	// Remove forgets the entries but keeps downloaded files on disk.
	Remove(ctx context.Context, handles ...domain.EngineHandle) error

	// Delete forgets the entries and erases their files.
	Delete(ctx context.Context, handles ...domain.EngineHandle) error
}
