package httpapi

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// EnqueueRequest is the body of POST /downloads. ID may be omitted, in which
// case it is derived from SourceURL.
type EnqueueRequest struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	SourceURL       string `json:"source_url"`
	DurationSeconds int    `json:"duration_seconds"`
	ArtworkURL      string `json:"artwork_url"`
}

func (r EnqueueRequest) content() domain.AudioContent {
	return domain.AudioContent{
		ID:              r.ID,
		Title:           r.Title,
		Artist:          r.Artist,
		Album:           r.Album,
		SourceURL:       r.SourceURL,
		DurationSeconds: r.DurationSeconds,
		ArtworkURL:      r.ArtworkURL,
	}
}

// EnqueueResponse reports what an enqueue did.
type EnqueueResponse struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
}

// DownloadItem is the JSON view of a download.
type DownloadItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist,omitempty"`
	Album      string    `json:"album,omitempty"`
	Status     string    `json:"status"`
	RawStatus  string    `json:"raw_status,omitempty"`
	Progress   int       `json:"progress"`
	Downloaded int64     `json:"downloaded_bytes"`
	Total      int64     `json:"total_bytes"`
	Size       string    `json:"size"`
	FilePath   string    `json:"file_path,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Tags       *FileTags `json:"tags,omitempty"`
}

// FileTags is the JSON view of tags read from a completed file.
type FileTags struct {
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Year   int    `json:"year,omitempty"`
	Track  int    `json:"track,omitempty"`
	Format string `json:"format,omitempty"`
}

func toDownloadItem(item domain.AudioDownloadItem) DownloadItem {
	out := DownloadItem{
		ID:         item.Request.ID,
		Name:       item.Content.DisplayName(),
		Title:      item.Content.Title,
		Artist:     item.Content.Artist,
		Album:      item.Content.Album,
		Status:     item.Download.Status.String(),
		RawStatus:  item.Download.RawStatus,
		Progress:   item.Download.Progress,
		Downloaded: item.Download.DownloadedBytes,
		Total:      item.Download.TotalBytes,
		Size:       sizeLabel(item.Download),
		FilePath:   item.Download.FilePath,
		MimeType:   item.Download.MimeType,
		Error:      item.Download.Error,
		CreatedAt:  item.Request.CreatedAt,
	}
	if t := item.Tags; t != nil {
		out.Tags = &FileTags{
			Title:  t.Title,
			Artist: t.Artist,
			Album:  t.Album,
			Genre:  t.Genre,
			Year:   t.Year,
			Track:  t.Track,
			Format: t.Format,
		}
	}
	return out
}

// sizeLabel renders "3.2 MB / 8.0 MB", or just the downloaded amount when the total is unknown.
func sizeLabel(dl domain.EngineDownload) string {
	done := humanize.Bytes(uint64(max(dl.DownloadedBytes, 0)))
	if dl.TotalBytes <= 0 {
		return done
	}
	return done + " / " + humanize.Bytes(uint64(dl.TotalBytes))
}

// RootRequest is the body of PUT /settings/root.
type RootRequest struct {
	URI string `json:"uri"`
}

// GroupingRequest is the body of PUT /settings/grouping.
type GroupingRequest struct {
	Grouping string `json:"grouping"`
}

// ShuffleRequest is the body of PUT /queue/shuffle.
type ShuffleRequest struct {
	On bool `json:"on"`
}

// SwapRequest is the body of POST /queue/swap. Positions are zero-based.
type SwapRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ContentRequest names one content id, as in PUT /queue/current.
type ContentRequest struct {
	ID string `json:"id"`
}

// ContentResponse carries one content id, as returned by GET /queue/next.
type ContentResponse struct {
	ID string `json:"id"`
}

// PlaylistRequest is the body of POST /playlists.
type PlaylistRequest struct {
	Name string `json:"name"`
}

// PlaylistView is the JSON view of a saved playlist.
type PlaylistView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ContentIDs []string  `json:"content_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toPlaylistView(p *domain.Playlist) PlaylistView {
	ids := p.ContentIDs
	if ids == nil {
		ids = []string{}
	}
	return PlaylistView{
		ID:         p.ID,
		Name:       p.Name,
		ContentIDs: ids,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// QueueView is the JSON view of the playback queue.
type QueueView struct {
	Title        string   `json:"title"`
	IDs          []string `json:"ids"`
	CurrentIndex int      `json:"current_index"`
	CurrentID    string   `json:"current_id,omitempty"`
	Shuffled     bool     `json:"shuffled"`
}

func toQueueView(state domain.QueueState) QueueView {
	ids := state.IDs
	if ids == nil {
		ids = []string{}
	}
	return QueueView{
		Title:        state.Title,
		IDs:          ids,
		CurrentIndex: state.CurrentIndex,
		CurrentID:    state.CurrentID,
		Shuffled:     state.Shuffled,
	}
}

// EventView is the JSON view of a downloader event.
type EventView struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind,omitempty"`
	Args      []any     `json:"args,omitempty"`
	ContentID string    `json:"content_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	URI       string    `json:"uri,omitempty"`
	Grouping  string    `json:"grouping,omitempty"`
}

func toEventView(event domain.Event) EventView {
	view := EventView{Type: string(event.Type()), Timestamp: event.Timestamp()}
	switch e := event.(type) {
	case domain.MessageEvent:
		view.Kind = string(e.Kind)
		view.Args = e.Args
	case domain.ChooseDownloadsLocationEvent:
		view.ContentID = e.PendingContentID
	case domain.DownloadEnqueuedEvent:
		view.ContentID = e.ContentID
	case domain.EnqueueFailedEvent:
		view.ContentID = e.ContentID
		if e.Err != nil {
			view.Error = e.Err.Error()
		}
	case domain.DownloadsRootChangedEvent:
		view.URI = e.URI
	case domain.FolderGroupingChangedEvent:
		view.Grouping = string(e.Grouping)
	}
	return view
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
