package service

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// rootResetter is the part of DownloadService that forgets the downloads root.
type rootResetter interface {
	ResetDownloadsRoot() error
}

// PreferenceService manages user settings that are not owned by another service.
// The downloads root lives in DownloadService because changing it moves a grant
// and may retry the pending content.
// All operations are thread-safe via sync.RWMutex.
type PreferenceService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	repository ports.PreferencesRepository
	bus        ports.EventBus
	roots      rootResetter

	// Cached preferences
	grouping   domain.FolderGrouping
	cacheValid bool

	// Concurrency control
	mu sync.RWMutex
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(
	logger *slog.Logger,
	repository ports.PreferencesRepository,
	bus ports.EventBus,
	roots rootResetter,
) *PreferenceService {
	service := &PreferenceService{
		logger:     logger.With(slog.String("service", "preferences")),
		repository: repository,
		bus:        bus,
		roots:      roots,
		grouping:   domain.GroupingFlat,
	}

	// Load preferences from the repository
	service.loadPreferences()

	service.logger.Debug("preference service initialized")
	return service
}

// loadPreferences loads all preferences from repository into cache.
func (s *PreferenceService) loadPreferences() {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouping, err := s.repository.LoadFolderGrouping()
	if err != nil {
		s.logger.Warn("failed to load folder grouping", slog.Any("error", err))
		return
	}
	s.grouping = grouping
	s.cacheValid = true
}

// FolderGrouping returns the subfolder strategy used for new downloads.
func (s *PreferenceService) FolderGrouping() domain.FolderGrouping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.cacheValid {
		if grouping, err := s.repository.LoadFolderGrouping(); err == nil {
			return grouping
		}
	}
	return s.grouping
}

// SetFolderGrouping saves the subfolder strategy. Files already downloaded stay where they are.
func (s *PreferenceService) SetFolderGrouping(grouping domain.FolderGrouping) error {
	if _, err := domain.ParseFolderGrouping(string(grouping)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.cacheValid && s.grouping == grouping {
		s.mu.Unlock()
		return nil
	}
	if err := s.repository.SaveFolderGrouping(grouping); err != nil {
		s.mu.Unlock()
		return err
	}
	s.grouping = grouping
	s.cacheValid = true
	s.mu.Unlock()

	s.logger.Info("folder grouping changed", slog.String("grouping", string(grouping)))
	s.bus.Publish(domain.NewFolderGroupingChangedEvent(grouping))
	return nil
}

// ResetToDefaults clears every stored preference. The downloads root is reset
// through DownloadService first so its grant is released.
func (s *PreferenceService) ResetToDefaults() error {
	if err := s.roots.ResetDownloadsRoot(); err != nil {
		return err
	}
	if err := s.repository.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.grouping = domain.GroupingFlat
	s.cacheValid = true
	s.mu.Unlock()

	s.logger.Info("preferences reset to defaults")
	s.bus.Publish(domain.NewFolderGroupingChangedEvent(domain.GroupingFlat))
	return nil
}

// GetAllPreferences returns all preferences as a map.
func (s *PreferenceService) GetAllPreferences() map[string]any {
	root, err := s.repository.LoadDownloadsRoot()
	if err != nil {
		s.logger.Warn("failed to load downloads root", slog.Any("error", err))
	}
	return map[string]any{
		"folder_grouping": string(s.FolderGrouping()),
		"downloads_root":  root,
	}
}

// Shutdown cleans up resources.
func (s *PreferenceService) Shutdown() error {
	// No cleanup needed for preference service
	return nil
}
