package memory

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// Helper to create a test history repository
func newTestHistoryRepository() *HistoryRepository {
	app := test.NewApp()
	return NewHistoryRepository(app.Preferences())
}

func TestHistoryRepository_SaveAndLoadQueue(t *testing.T) {
	repo := newTestHistoryRepository()

	state := domain.QueueState{
		Title:        "Downloads",
		IDs:          []string{"a", "b", "c"},
		CurrentIndex: 1,
		CurrentID:    "b",
		Shuffled:     true,
	}
	require.NoError(t, repo.SaveQueue(state))

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestHistoryRepository_LoadQueue_Empty(t *testing.T) {
	repo := newTestHistoryRepository()

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.Empty(t, loaded.IDs)
	assert.Equal(t, -1, loaded.CurrentIndex)
	assert.Equal(t, "", loaded.CurrentID)
}

func TestHistoryRepository_SaveIndexZero(t *testing.T) {
	repo := newTestHistoryRepository()

	require.NoError(t, repo.SaveQueue(domain.QueueState{IDs: []string{"a", "b"}, CurrentIndex: 0}))

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.CurrentIndex, "index 0 must not read back as unset")
	assert.Equal(t, "a", loaded.CurrentID)
}

func TestHistoryRepository_OutOfRangeIndexClamps(t *testing.T) {
	app := test.NewApp()
	prefs := app.Preferences()
	repo := NewHistoryRepository(prefs)

	require.NoError(t, repo.SaveQueue(domain.QueueState{IDs: []string{"a"}, CurrentIndex: 0}))
	prefs.SetInt("history.current_index", 10)

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.CurrentIndex)
}

func TestHistoryRepository_Clear(t *testing.T) {
	repo := newTestHistoryRepository()

	require.NoError(t, repo.SaveQueue(domain.QueueState{Title: "t", IDs: []string{"a"}, CurrentIndex: 0}))
	require.NoError(t, repo.Clear())

	loaded, err := repo.LoadQueue()
	require.NoError(t, err)
	assert.Empty(t, loaded.IDs)
	assert.Equal(t, "", loaded.Title)
	assert.Equal(t, -1, loaded.CurrentIndex)
}
