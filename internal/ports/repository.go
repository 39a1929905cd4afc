// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// DownloadRepository is the persistent download record store, keyed by content id.
//
// Thread-safety: Implementations must be thread-safe.
type DownloadRepository interface {
	// Get returns the record for id.
	// If none exists, returns domain.ErrRecordNotFound.
	Get(ctx context.Context, id string) (domain.DownloadRequest, error)

	// Save inserts the record, replacing any existing record with the same id.
	Save(ctx context.Context, request domain.DownloadRequest) error

	// Delete removes the record for id. Missing ids are a no-op.
	Delete(ctx context.Context, id string) error

	// List returns all records, oldest first.
	List(ctx context.Context) ([]domain.DownloadRequest, error)
}

// PlaylistRepository handles the persistence of playlists.
//
// Thread-safety: Implementations must be thread-safe.
type PlaylistRepository interface {
	// Save persists a playlist.
	// If a playlist with the same ID exists, it is replaced.
	Save(playlist *domain.Playlist) error

	// Load retrieves a playlist by ID.
	// If the playlist doesn't exist, returns (nil, domain.ErrPlaylistNotFound).
	Load(id string) (*domain.Playlist, error)

	// LoadAll retrieves all saved playlists.
	LoadAll() ([]*domain.Playlist, error)

	// Delete removes a playlist by ID.
	// If the playlist doesn't exist, this is a no-op (no error).
	Delete(id string) error

	// Exists checks if a playlist with the given ID exists.
	Exists(id string) bool
}

// HistoryRepository persists the playback queue across restarts.
//
// Thread-safety: Implementations must be thread-safe.
type HistoryRepository interface {
	// SaveQueue persists the queue ids, title and current index.
	SaveQueue(state domain.QueueState) error

	// LoadQueue retrieves the last saved queue.
	// If no queue was saved, returns an empty state with CurrentIndex -1 (not an error).
	LoadQueue() (domain.QueueState, error)

	// Clear removes all saved history data.
	Clear() error
}

// PreferencesRepository handles the persistence of user preferences.
// This abstracts the Fyne preferences storage.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveFolderGrouping persists the subfolder strategy.
	SaveFolderGrouping(grouping domain.FolderGrouping) error

	// LoadFolderGrouping retrieves the subfolder strategy.
	// If none was saved, returns domain.GroupingFlat.
	LoadFolderGrouping() (domain.FolderGrouping, error)

	// SaveDownloadsRoot persists the root folder URI.
	SaveDownloadsRoot(uri string) error

	// LoadDownloadsRoot retrieves the root folder URI.
	// If none was saved, returns "" (not an error).
	LoadDownloadsRoot() (string, error)

	// ClearDownloadsRoot forgets the root folder URI.
	ClearDownloadsRoot() error

	// Clear removes all saved preferences.
	Clear() error
}

// PermissionStore keeps long-lived access grants on user-chosen folders.
//
// Thread-safety: Implementations must be thread-safe.
type PermissionStore interface {
	// Take records a persistable grant for uri. Taking an existing grant is a no-op.
	Take(uri string) error

	// Release drops the grant for uri. Unknown URIs are a no-op.
	Release(uri string) error

	// Granted lists the URIs currently held.
	Granted() []string
}
