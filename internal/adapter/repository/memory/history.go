// Package memory provides repository implementations backed by Fyne preferences.
package memory

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

const (
	keyQueueIDs      = "history.queue_ids"
	keyQueueTitle    = "history.queue_title"
	keyQueueIndex    = "history.current_index"
	keyQueueShuffled = "history.shuffled"
)

// HistoryRepository implements ports.HistoryRepository using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories.
//
// Thread-safe: All operations protected by sync.RWMutex.
type HistoryRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(prefs fyne.Preferences) *HistoryRepository {
	return &HistoryRepository{
		prefs: prefs,
	}
}

// SaveQueue persists the queue ids, title, shuffle flag and current index.
// Only the active order is kept; a shuffled queue is restored as-is, with shuffle on.
func (r *HistoryRepository) SaveQueue(state domain.QueueState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetStringList(keyQueueIDs, state.IDs)
	r.prefs.SetString(keyQueueTitle, state.Title)
	r.prefs.SetBool(keyQueueShuffled, state.Shuffled)

	// Store index+1 to distinguish between "not set" (0) and "saved 0" (1)
	// This is because Fyne returns 0 if the key doesn't exist
	r.prefs.SetInt(keyQueueIndex, state.CurrentIndex+1)
	return nil
}

// LoadQueue retrieves the last saved queue.
func (r *HistoryRepository) LoadQueue() (domain.QueueState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := domain.QueueState{
		Title:        r.prefs.String(keyQueueTitle),
		IDs:          r.prefs.StringList(keyQueueIDs),
		CurrentIndex: r.prefs.Int(keyQueueIndex) - 1,
		Shuffled:     r.prefs.Bool(keyQueueShuffled),
	}
	if state.IDs == nil {
		state.IDs = []string{}
	}
	if state.CurrentIndex < 0 || state.CurrentIndex >= len(state.IDs) {
		state.CurrentIndex = -1
		if len(state.IDs) > 0 {
			state.CurrentIndex = 0
		}
	}
	if state.CurrentIndex >= 0 {
		state.CurrentID = state.IDs[state.CurrentIndex]
	}
	return state, nil
}

// Clear removes all saved history data.
func (r *HistoryRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyQueueIDs)
	r.prefs.RemoveValue(keyQueueTitle)
	r.prefs.RemoveValue(keyQueueIndex)
	r.prefs.RemoveValue(keyQueueShuffled)
	return nil
}

// Verify interface implementation
var _ ports.HistoryRepository = (*HistoryRepository)(nil)
