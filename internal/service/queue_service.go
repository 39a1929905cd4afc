package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// downloadsTitle names the queue built from completed downloads.
const downloadsTitle = "Downloads"

// downloadLister is the part of DownloadService the queue builds on.
type downloadLister interface {
	ListDownloads(ctx context.Context) ([]domain.AudioDownloadItem, error)
}

// QueueService owns the playback queue of the session. It publishes a QueueChangedEvent
// after every mutation and follows NowPlayingChangedEvent from the media session.
// All operations are thread-safe via sync.RWMutex.
type QueueService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	history   ports.HistoryRepository
	playlists ports.PlaylistRepository
	downloads downloadLister
	bus       ports.EventBus

	// State
	queue *domain.PlaybackQueue

	// Concurrency control
	mu sync.RWMutex

	// Event subscription
	nowPlayingSub domain.SubscriptionID
}

// NewQueueService creates a new queue service. A nil shuffler uses math/rand/v2.
func NewQueueService(
	logger *slog.Logger,
	history ports.HistoryRepository,
	playlists ports.PlaylistRepository,
	downloads downloadLister,
	bus ports.EventBus,
	shuffle domain.Shuffler,
) *QueueService {
	service := &QueueService{
		logger:    logger.With(slog.String("service", "queue")),
		history:   history,
		playlists: playlists,
		downloads: downloads,
		bus:       bus,
		queue:     domain.NewPlaybackQueue(shuffle),
	}

	// Follow the media session when it moves on its own
	service.nowPlayingSub = bus.Subscribe(domain.EventNowPlayingChanged, service.handleNowPlaying)

	service.logger.Debug("queue service initialized")
	return service
}

// Start restores the queue saved by the previous session.
func (s *QueueService) Start() error {
	state, err := s.history.LoadQueue()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.queue.Restore(state)
	snapshot := s.queue.Snapshot()
	s.mu.Unlock()

	s.logger.Debug("queue restored", slog.Int("length", len(snapshot.IDs)), slog.Int("index", snapshot.CurrentIndex))
	s.publish(snapshot)
	return nil
}

// State returns a snapshot of the queue.
func (s *QueueService) State() domain.QueueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.Snapshot()
}

// Replace swaps in a new playback context starting at currentID.
func (s *QueueService) Replace(ids []string, title, currentID string) {
	s.mutate(func(q *domain.PlaybackQueue) error {
		q.Replace(ids, title, currentID)
		return nil
	})
}

// Remove drops id from the queue.
func (s *QueueService) Remove(id string) error {
	return s.mutate(func(q *domain.PlaybackQueue) error {
		return q.Remove(id)
	})
}

// Swap exchanges the ids at two positions.
func (s *QueueService) Swap(from, to int) error {
	return s.mutate(func(q *domain.PlaybackQueue) error {
		return q.Swap(from, to)
	})
}

// Shuffle turns shuffle mode on or off. No event is published when nothing changed.
func (s *QueueService) Shuffle(on bool) {
	s.mu.Lock()
	changed := s.queue.Shuffle(on)
	snapshot := s.queue.Snapshot()
	s.mu.Unlock()

	if changed {
		s.logger.Debug("shuffle toggled", slog.Bool("on", on))
		s.publish(snapshot)
	}
}

// SetCurrent moves the position to id.
func (s *QueueService) SetCurrent(id string) error {
	return s.mutate(func(q *domain.PlaybackQueue) error {
		return q.SetCurrent(id)
	})
}

// PreviousID returns the id to play for "previous" given the elapsed position of the current track.
func (s *QueueService) PreviousID(elapsed time.Duration) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.PreviousID(elapsed)
}

// NextID returns the id after the current one.
func (s *QueueService) NextID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.NextID()
}

// ReportNowPlaying announces that the media session started id. Every subscriber
// sees the NowPlayingChangedEvent, this service included.
func (s *QueueService) ReportNowPlaying(id string) {
	s.bus.Publish(domain.NewNowPlayingChangedEvent(id))
}

// PlayPlaylist replaces the queue with a saved playlist, starting at its first track.
func (s *QueueService) PlayPlaylist(id string) error {
	playlist, err := s.playlists.Load(id)
	if err != nil {
		return err
	}
	if len(playlist.ContentIDs) == 0 {
		return domain.ErrQueueEmpty
	}
	s.Replace(playlist.ContentIDs, playlist.Name, playlist.ContentIDs[0])
	return nil
}

// PlayDownloads replaces the queue with every completed download, oldest first.
func (s *QueueService) PlayDownloads(ctx context.Context, currentID string) error {
	items, err := s.downloads.ListDownloads(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Download.Status == domain.DownloadStatusCompleted {
			ids = append(ids, item.Content.ID)
		}
	}
	if len(ids) == 0 {
		return domain.ErrQueueEmpty
	}
	s.Replace(ids, downloadsTitle, currentID)
	return nil
}

// SaveAsPlaylist stores the current queue order as a new playlist.
func (s *QueueService) SaveAsPlaylist(name string) (*domain.Playlist, error) {
	state := s.State()
	if len(state.IDs) == 0 {
		return nil, domain.ErrQueueEmpty
	}

	now := time.Now().UTC()
	playlist := &domain.Playlist{
		ID:         uuid.NewString(),
		Name:       name,
		ContentIDs: state.IDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.playlists.Save(playlist); err != nil {
		return nil, err
	}
	s.logger.Info("queue saved as playlist", slog.String("playlist_id", playlist.ID), slog.Int("tracks", len(playlist.ContentIDs)))
	return playlist, nil
}

// Playlists returns every saved playlist.
func (s *QueueService) Playlists() ([]*domain.Playlist, error) {
	return s.playlists.LoadAll()
}

// DeletePlaylist removes a saved playlist.
func (s *QueueService) DeletePlaylist(id string) error {
	return s.playlists.Delete(id)
}

// mutate applies fn under the write lock and publishes the new state when it succeeds.
// Publishing happens after unlocking so handlers can read the queue.
func (s *QueueService) mutate(fn func(q *domain.PlaybackQueue) error) error {
	s.mu.Lock()
	if err := fn(s.queue); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.queue.Snapshot()
	s.mu.Unlock()

	s.publish(snapshot)
	return nil
}

func (s *QueueService) publish(state domain.QueueState) {
	s.bus.Publish(domain.NewQueueChangedEvent(state))
}

// handleNowPlaying is called when the media session moves to another item.
func (s *QueueService) handleNowPlaying(event domain.Event) {
	e, ok := event.(domain.NowPlayingChangedEvent)
	if !ok {
		return
	}
	if err := s.SetCurrent(e.ContentID); err != nil {
		s.logger.Debug("now playing item is not queued", slog.String("content_id", e.ContentID))
	}
}

// Shutdown unsubscribes from the bus and saves the queue for the next session.
func (s *QueueService) Shutdown() error {
	s.bus.Unsubscribe(s.nowPlayingSub)

	s.mu.RLock()
	snapshot := s.queue.Snapshot()
	s.mu.RUnlock()

	return s.history.SaveQueue(snapshot)
}
