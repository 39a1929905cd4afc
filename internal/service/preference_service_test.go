package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/offtune/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/logger"
)

// Mock preferences repository for testing
type mockPreferencesRepository struct {
	mu       sync.RWMutex
	grouping domain.FolderGrouping
	root     string
	saves    int
	failLoad error
}

func newMockPreferencesRepository() *mockPreferencesRepository {
	return &mockPreferencesRepository{grouping: domain.GroupingFlat}
}

func (m *mockPreferencesRepository) SaveFolderGrouping(grouping domain.FolderGrouping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grouping = grouping
	m.saves++
	return nil
}

func (m *mockPreferencesRepository) LoadFolderGrouping() (domain.FolderGrouping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failLoad != nil {
		return "", m.failLoad
	}
	return m.grouping, nil
}

func (m *mockPreferencesRepository) SaveDownloadsRoot(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = uri
	return nil
}

func (m *mockPreferencesRepository) LoadDownloadsRoot() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root, nil
}

func (m *mockPreferencesRepository) ClearDownloadsRoot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = ""
	return nil
}

func (m *mockPreferencesRepository) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grouping = domain.GroupingFlat
	m.root = ""
	return nil
}

// fakeRootResetter clears the root of the mock repository like DownloadService would.
type fakeRootResetter struct {
	repo   *mockPreferencesRepository
	resets int
	err    error
}

func (f *fakeRootResetter) ResetDownloadsRoot() error {
	if f.err != nil {
		return f.err
	}
	f.resets++
	return f.repo.ClearDownloadsRoot()
}

// Helper to create a test preference service
func newTestPreferenceService() (*PreferenceService, *mockPreferencesRepository, *eventbus.SyncEventBus) {
	repo := newMockPreferencesRepository()
	bus := eventbus.NewSyncEventBus(logger.NewTestLogger())
	service := NewPreferenceService(logger.NewTestLogger(), repo, bus, &fakeRootResetter{repo: repo})

	return service, repo, bus
}

func TestPreferenceService_FolderGrouping_Default(t *testing.T) {
	service, _, _ := newTestPreferenceService()
	defer service.Shutdown()

	assert.Equal(t, domain.GroupingFlat, service.FolderGrouping())
}

func TestPreferenceService_SetFolderGrouping(t *testing.T) {
	service, repo, bus := newTestPreferenceService()
	defer service.Shutdown()

	var got []domain.FolderGrouping
	bus.Subscribe(domain.EventFolderGroupingChanged, func(e domain.Event) {
		got = append(got, e.(domain.FolderGroupingChangedEvent).Grouping)
	})

	require.NoError(t, service.SetFolderGrouping(domain.GroupingArtist))

	// Verify cached value
	assert.Equal(t, domain.GroupingArtist, service.FolderGrouping())

	// Verify persisted value
	saved, _ := repo.LoadFolderGrouping()
	assert.Equal(t, domain.GroupingArtist, saved)

	// Setting the same value again is silent
	require.NoError(t, service.SetFolderGrouping(domain.GroupingArtist))
	assert.Equal(t, []domain.FolderGrouping{domain.GroupingArtist}, got)
	assert.Equal(t, 1, repo.saves)
}

func TestPreferenceService_SetFolderGrouping_Invalid(t *testing.T) {
	service, repo, _ := newTestPreferenceService()
	defer service.Shutdown()

	err := service.SetFolderGrouping("by_decade")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.GroupingFlat, service.FolderGrouping())
	assert.Zero(t, repo.saves)
}

func TestPreferenceService_LoadsStoredGrouping(t *testing.T) {
	repo := newMockPreferencesRepository()
	repo.grouping = domain.GroupingArtistAlbum
	service := NewPreferenceService(logger.NewTestLogger(), repo, eventbus.NewSyncEventBus(logger.NewTestLogger()), &fakeRootResetter{repo: repo})

	assert.Equal(t, domain.GroupingArtistAlbum, service.FolderGrouping())
}

func TestPreferenceService_UnreadableRepositoryFallsBack(t *testing.T) {
	repo := newMockPreferencesRepository()
	repo.failLoad = errors.New("prefs locked")
	service := NewPreferenceService(logger.NewTestLogger(), repo, eventbus.NewSyncEventBus(logger.NewTestLogger()), &fakeRootResetter{repo: repo})

	assert.Equal(t, domain.GroupingFlat, service.FolderGrouping())
}

func TestPreferenceService_ResetToDefaults(t *testing.T) {
	service, repo, _ := newTestPreferenceService()
	defer service.Shutdown()

	require.NoError(t, service.SetFolderGrouping(domain.GroupingArtistAlbum))
	require.NoError(t, repo.SaveDownloadsRoot("file:///music"))

	require.NoError(t, service.ResetToDefaults())
	assert.Equal(t, domain.GroupingFlat, service.FolderGrouping())

	all := service.GetAllPreferences()
	assert.Equal(t, "flat", all["folder_grouping"])
	assert.Equal(t, "", all["downloads_root"])
}

func TestPreferenceService_ConcurrentAccess(t *testing.T) {
	service, _, _ := newTestPreferenceService()
	defer service.Shutdown()

	groupings := []domain.FolderGrouping{domain.GroupingFlat, domain.GroupingArtist, domain.GroupingArtistAlbum}
	var wg sync.WaitGroup
	for i := range 30 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = service.SetFolderGrouping(groupings[i%len(groupings)])
		}()
		go func() {
			defer wg.Done()
			_ = service.FolderGrouping()
		}()
	}
	wg.Wait()

	assert.Contains(t, groupings, service.FolderGrouping())
}

func TestPreferenceService_ResetToDefaults_ResetsRootFirst(t *testing.T) {
	repo := newMockPreferencesRepository()
	roots := &fakeRootResetter{repo: repo}
	service := NewPreferenceService(logger.NewTestLogger(), repo, eventbus.NewSyncEventBus(logger.NewTestLogger()), roots)
	require.NoError(t, repo.SaveDownloadsRoot("file:///music"))

	require.NoError(t, service.ResetToDefaults())
	assert.Equal(t, 1, roots.resets)

	roots.err = errors.New("grant store locked")
	require.NoError(t, service.SetFolderGrouping(domain.GroupingArtist))
	assert.ErrorIs(t, service.ResetToDefaults(), roots.err)
	assert.Equal(t, domain.GroupingArtist, service.FolderGrouping(), "nothing is cleared when the root reset fails")
}
