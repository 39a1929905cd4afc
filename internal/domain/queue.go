package domain

import (
	"math/rand/v2"
	"slices"
	"time"
)

// RestartThreshold is the elapsed playback time after which "previous" restarts the current track.
const RestartThreshold = 5 * time.Second

// Shuffler permutes n elements through swap, matching rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// QueueState is an immutable snapshot of a PlaybackQueue.
type QueueState struct {
	Title        string
	IDs          []string
	CurrentIndex int
	CurrentID    string
	Shuffled     bool
}

// PlaybackQueue holds the ordered track ids driving next/previous during playback.
// It is a pure in-memory structure; the owner is responsible for synchronization.
//
// While shuffled, original keeps the pre-shuffle order so it can be restored verbatim.
type PlaybackQueue struct {
	title    string
	ids      []string
	original []string
	current  int
	shuffled bool
	shuffle  Shuffler
}

// NewPlaybackQueue creates an empty queue. A nil shuffler uses math/rand/v2.
func NewPlaybackQueue(shuffle Shuffler) *PlaybackQueue {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &PlaybackQueue{current: -1, shuffle: shuffle}
}

// Len returns the number of ids in the active list.
func (q *PlaybackQueue) Len() int {
	return len(q.ids)
}

// IsEmpty reports whether the queue has no ids.
func (q *PlaybackQueue) IsEmpty() bool {
	return len(q.ids) == 0
}

// Shuffled reports whether shuffle mode is on.
func (q *PlaybackQueue) Shuffled() bool {
	return q.shuffled
}

// CurrentID returns the id at the current position.
func (q *PlaybackQueue) CurrentID() (string, bool) {
	if q.current < 0 || q.current >= len(q.ids) {
		return "", false
	}
	return q.ids[q.current], true
}

// Snapshot returns a copy of the queue state.
func (q *PlaybackQueue) Snapshot() QueueState {
	id, _ := q.CurrentID()
	return QueueState{
		Title:        q.title,
		IDs:          slices.Clone(q.ids),
		CurrentIndex: q.current,
		CurrentID:    id,
		Shuffled:     q.shuffled,
	}
}

// Replace swaps in a new playback context. The position is the first index holding currentID, or 0.
// Shuffle mode is kept: a shuffled queue reshuffles the new ids with the current one pinned first.
func (q *PlaybackQueue) Replace(ids []string, title, currentID string) {
	q.title = title
	q.ids = slices.Clone(ids)
	q.original = nil
	q.current = -1
	if len(q.ids) == 0 {
		return
	}

	q.current = 0
	if i := slices.Index(q.ids, currentID); i >= 0 {
		q.current = i
	}

	if q.shuffled {
		q.shuffleOn()
	}
}

// Remove deletes id from the active list, and from the saved order while shuffled.
// Removing the current id keeps the index, which then points at the following id,
// clamped to the last index.
func (q *PlaybackQueue) Remove(id string) error {
	i := slices.Index(q.ids, id)
	if i < 0 {
		return ErrTrackNotFound
	}

	q.ids = slices.Delete(q.ids, i, i+1)
	if q.shuffled {
		if j := slices.Index(q.original, id); j >= 0 {
			q.original = slices.Delete(q.original, j, j+1)
		}
	}

	switch {
	case len(q.ids) == 0:
		q.current = -1
	case i < q.current:
		q.current--
	case q.current >= len(q.ids):
		q.current = len(q.ids) - 1
	}
	return nil
}

// Swap exchanges two ids of the active list. The saved pre-shuffle order is not touched,
// so turning shuffle off afterwards still restores the order from before the swap.
func (q *PlaybackQueue) Swap(from, to int) error {
	if from < 0 || from >= len(q.ids) || to < 0 || to >= len(q.ids) {
		return ErrInvalidIndex
	}
	if from == to {
		return nil
	}

	q.ids[from], q.ids[to] = q.ids[to], q.ids[from]
	switch q.current {
	case from:
		q.current = to
	case to:
		q.current = from
	}
	return nil
}

// Shuffle turns shuffle mode on or off. Turning it on keeps the current id at index 0;
// turning it off restores the saved order and points at the current id within it.
// Returns false when nothing changed, which includes shuffling an empty queue.
func (q *PlaybackQueue) Shuffle(on bool) bool {
	if on == q.shuffled {
		return false
	}
	if on {
		if len(q.ids) == 0 {
			return false
		}
		q.shuffled = true
		q.shuffleOn()
		return true
	}

	q.shuffled = false
	if q.original == nil {
		return true
	}
	currentID, _ := q.CurrentID()
	q.ids = q.original
	q.original = nil
	q.current = 0
	if i := slices.Index(q.ids, currentID); i >= 0 {
		q.current = i
	}
	if len(q.ids) == 0 {
		q.current = -1
	}
	return true
}

func (q *PlaybackQueue) shuffleOn() {
	q.original = slices.Clone(q.ids)

	currentID := q.ids[q.current]
	rest := make([]string, 0, len(q.ids)-1)
	rest = append(rest, q.ids[:q.current]...)
	rest = append(rest, q.ids[q.current+1:]...)
	q.shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	q.ids = append([]string{currentID}, rest...)
	q.current = 0
}

// SetCurrent moves the position to id.
func (q *PlaybackQueue) SetCurrent(id string) error {
	i := slices.Index(q.ids, id)
	if i < 0 {
		return ErrTrackNotFound
	}
	q.current = i
	return nil
}

// PreviousID returns the id "previous" should play. Past RestartThreshold that is the
// current id again; at the head of the queue there is none.
func (q *PlaybackQueue) PreviousID(elapsed time.Duration) (string, bool) {
	currentID, ok := q.CurrentID()
	if !ok {
		return "", false
	}
	if elapsed >= RestartThreshold {
		return currentID, true
	}
	if q.current == 0 {
		return "", false
	}
	return q.ids[q.current-1], true
}

// NextID returns the id after the current one, or none at the tail.
func (q *PlaybackQueue) NextID() (string, bool) {
	if q.current < 0 || q.current >= len(q.ids)-1 {
		return "", false
	}
	return q.ids[q.current+1], true
}

// Restore loads a persisted snapshot. A shuffled snapshot keeps its order as the
// order to return to, since the pre-shuffle order is not persisted.
func (q *PlaybackQueue) Restore(state QueueState) {
	q.title = state.Title
	q.ids = slices.Clone(state.IDs)
	q.shuffled = state.Shuffled && len(q.ids) > 0
	q.original = nil
	if q.shuffled {
		q.original = slices.Clone(q.ids)
	}

	switch {
	case len(q.ids) == 0:
		q.current = -1
	case state.CurrentIndex < 0:
		q.current = 0
	case state.CurrentIndex >= len(q.ids):
		q.current = len(q.ids) - 1
	default:
		q.current = state.CurrentIndex
	}
}
