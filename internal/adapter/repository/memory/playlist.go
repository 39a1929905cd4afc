package memory

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

const (
	playlistKeyPrefix = "playlist."
	keyPlaylistIDs    = "playlist._ids"
)

// PlaylistRepository implements ports.PlaylistRepository using Fyne preferences.
// Playlists are stored as JSON under "playlist.<id>"; the id index is a string list.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PlaylistRepository struct {
	prefs  fyne.Preferences
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewPlaylistRepository creates a new playlist repository.
func NewPlaylistRepository(prefs fyne.Preferences, logger *slog.Logger) *PlaylistRepository {
	return &PlaylistRepository{
		prefs:  prefs,
		logger: logger.With(slog.String("repository", "playlists")),
	}
}

// Save persists a playlist, replacing any with the same ID.
func (r *PlaylistRepository) Save(playlist *domain.Playlist) error {
	if playlist == nil || playlist.ID == "" {
		return domain.NewValidationError("playlist.id", playlist, "must not be empty")
	}

	data, err := json.Marshal(playlist)
	if err != nil {
		return domain.NewRepositoryError("save", "playlists", "failed to marshal playlist", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(playlistKeyPrefix+playlist.ID, string(data))

	ids := r.prefs.StringList(keyPlaylistIDs)
	if !slices.Contains(ids, playlist.ID) {
		r.prefs.SetStringList(keyPlaylistIDs, append(ids, playlist.ID))
	}
	return nil
}

// Load retrieves a playlist by ID, or domain.ErrPlaylistNotFound.
func (r *PlaylistRepository) Load(id string) (*domain.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.load(id)
}

func (r *PlaylistRepository) load(id string) (*domain.Playlist, error) {
	data := r.prefs.String(playlistKeyPrefix + id)
	if data == "" {
		return nil, domain.ErrPlaylistNotFound
	}

	var playlist domain.Playlist
	if err := json.Unmarshal([]byte(data), &playlist); err != nil {
		return nil, domain.NewRepositoryError("load", "playlists", "failed to unmarshal playlist "+id, err)
	}
	return &playlist, nil
}

// LoadAll retrieves all saved playlists in creation order.
// Missing or corrupted entries are skipped.
func (r *PlaylistRepository) LoadAll() ([]*domain.Playlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.prefs.StringList(keyPlaylistIDs)
	playlists := make([]*domain.Playlist, 0, len(ids))
	for _, id := range ids {
		playlist, err := r.load(id)
		if err != nil {
			r.logger.Warn("skipping unreadable playlist", slog.String("id", id), slog.Any("error", err))
			continue
		}
		playlists = append(playlists, playlist)
	}
	return playlists, nil
}

// Delete removes a playlist by ID.
func (r *PlaylistRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(playlistKeyPrefix + id)

	ids := r.prefs.StringList(keyPlaylistIDs)
	if i := slices.Index(ids, id); i >= 0 {
		r.prefs.SetStringList(keyPlaylistIDs, slices.Delete(ids, i, i+1))
	}
	return nil
}

// Exists checks if a playlist with the given ID exists.
func (r *PlaylistRepository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(playlistKeyPrefix+id) != ""
}

// Verify interface implementation
var _ ports.PlaylistRepository = (*PlaylistRepository)(nil)
