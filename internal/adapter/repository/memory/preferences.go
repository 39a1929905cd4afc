package memory

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

const (
	keyFolderGrouping = "preferences.folder_grouping"
	keyDownloadsRoot  = "preferences.downloads_root"
)

// PreferencesRepository implements ports.PreferencesRepository using Fyne preferences.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a new preferences repository.
// The preferences parameter should be obtained from the fyne.App.
func NewPreferencesRepository(prefs fyne.Preferences) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveFolderGrouping persists the subfolder strategy.
func (r *PreferencesRepository) SaveFolderGrouping(grouping domain.FolderGrouping) error {
	if _, err := domain.ParseFolderGrouping(string(grouping)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyFolderGrouping, string(grouping))
	return nil
}

// LoadFolderGrouping retrieves the subfolder strategy, flat when unset.
// A stored value that no longer parses also falls back to flat.
func (r *PreferencesRepository) LoadFolderGrouping() (domain.FolderGrouping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.prefs.StringWithFallback(keyFolderGrouping, string(domain.GroupingFlat))
	grouping, err := domain.ParseFolderGrouping(stored)
	if err != nil {
		return domain.GroupingFlat, nil
	}
	return grouping, nil
}

// SaveDownloadsRoot persists the root folder URI.
func (r *PreferencesRepository) SaveDownloadsRoot(uri string) error {
	if uri == "" {
		return domain.NewValidationError("downloads_root", uri, "must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyDownloadsRoot, uri)
	return nil
}

// LoadDownloadsRoot retrieves the root folder URI, "" when unset.
func (r *PreferencesRepository) LoadDownloadsRoot() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(keyDownloadsRoot), nil
}

// ClearDownloadsRoot forgets the root folder URI.
func (r *PreferencesRepository) ClearDownloadsRoot() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyDownloadsRoot)
	return nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyFolderGrouping)
	r.prefs.RemoveValue(keyDownloadsRoot)
	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
