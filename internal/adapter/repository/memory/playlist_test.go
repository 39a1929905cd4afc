package memory

import (
	"fmt"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/logger"
)

// Helper to create a test playlist repository
func newTestPlaylistRepository() *PlaylistRepository {
	app := test.NewApp()
	return NewPlaylistRepository(app.Preferences(), logger.NewTestLogger())
}

func TestPlaylistRepository_SaveAndLoad(t *testing.T) {
	repo := newTestPlaylistRepository()

	playlist := &domain.Playlist{
		ID:         "playlist1",
		Name:       "Road Trip",
		ContentIDs: []string{"track1", "track2"},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, repo.Save(playlist))

	loaded, err := repo.Load("playlist1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "Road Trip", loaded.Name)
	assert.Equal(t, []string{"track1", "track2"}, loaded.ContentIDs)
}

func TestPlaylistRepository_Load_NotFound(t *testing.T) {
	repo := newTestPlaylistRepository()

	_, err := repo.Load("nonexistent")
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestPlaylistRepository_Save_RequiresID(t *testing.T) {
	repo := newTestPlaylistRepository()

	var verr *domain.ValidationError
	assert.ErrorAs(t, repo.Save(&domain.Playlist{Name: "nameless"}), &verr)
	assert.ErrorAs(t, repo.Save(nil), &verr)
}

func TestPlaylistRepository_SaveOverwrites(t *testing.T) {
	repo := newTestPlaylistRepository()

	require.NoError(t, repo.Save(&domain.Playlist{ID: "p", Name: "Original", ContentIDs: []string{"a"}}))
	require.NoError(t, repo.Save(&domain.Playlist{ID: "p", Name: "Updated", ContentIDs: []string{"b", "c"}}))

	loaded, err := repo.Load("p")
	require.NoError(t, err)
	assert.Equal(t, "Updated", loaded.Name)
	assert.Equal(t, []string{"b", "c"}, loaded.ContentIDs)

	all, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 1, "overwrite must not duplicate the index entry")
}

func TestPlaylistRepository_LoadAll_Order(t *testing.T) {
	repo := newTestPlaylistRepository()

	all, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(&domain.Playlist{ID: fmt.Sprintf("p%d", i), Name: "n"}))
	}

	all, err = repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p0", all[0].ID)
	assert.Equal(t, "p2", all[2].ID)
}

func TestPlaylistRepository_LoadAll_SkipsCorrupted(t *testing.T) {
	app := test.NewApp()
	prefs := app.Preferences()
	repo := NewPlaylistRepository(prefs, logger.NewTestLogger())

	require.NoError(t, repo.Save(&domain.Playlist{ID: "good", Name: "ok"}))
	require.NoError(t, repo.Save(&domain.Playlist{ID: "bad", Name: "broken"}))
	prefs.SetString("playlist.bad", "{not json")

	all, err := repo.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)
}

func TestPlaylistRepository_DeleteAndExists(t *testing.T) {
	repo := newTestPlaylistRepository()

	require.NoError(t, repo.Save(&domain.Playlist{ID: "p", Name: "n"}))
	assert.True(t, repo.Exists("p"))

	require.NoError(t, repo.Delete("p"))
	assert.False(t, repo.Exists("p"))

	// Deleting again is a no-op
	require.NoError(t, repo.Delete("p"))

	all, err := repo.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}
