// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the offtune download and playback core.
package domain

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// ContentKind tags what a download request carries.
type ContentKind string

const (
	// KindAudio is a single track.
	KindAudio ContentKind = "audio"

	// KindPlaylist is a playlist export.
	KindPlaylist ContentKind = "playlist"
)

// AudioContent is a downloadable track as known by the remote catalog.
// It is serialized as the payload of a DownloadRequest.
type AudioContent struct {
	// ID is the stable content identifier
	ID string `json:"id"`

	// Title is the track title
	Title string `json:"title"`

	// Artist is the performing artist name
	Artist string `json:"artist,omitempty"`

	// Album is the album name
	Album string `json:"album,omitempty"`

	// SourceURL is the network locator of the audio stream (may be empty)
	SourceURL string `json:"source_url,omitempty"`

	// DurationSeconds is the track length reported by the catalog
	DurationSeconds int `json:"duration_seconds,omitempty"`

	// ArtworkURL points to the cover image
	ArtworkURL string `json:"artwork_url,omitempty"`
}

// DisplayName returns "Artist - Title", or the title alone when the artist is unknown.
func (c AudioContent) DisplayName() string {
	artist := strings.TrimSpace(c.Artist)
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = c.ID
	}
	if artist == "" {
		return title
	}
	return artist + " - " + title
}

// EngineHandle is the opaque identifier the fetch engine assigns to a submitted transfer.
type EngineHandle int64

const (
	// InvalidEngineHandle marks a record whose submission never completed
	InvalidEngineHandle EngineHandle = 0
)

// IsValid reports whether the handle was assigned by an engine.
func (h EngineHandle) IsValid() bool {
	return h != InvalidEngineHandle
}

// DownloadRequest is a persisted download record, one per content id.
type DownloadRequest struct {
	// ID is the content id (primary key)
	ID string `db:"id"`

	// Kind tags the payload type
	Kind ContentKind `db:"kind"`

	// Payload is the JSON-serialized content
	Payload string `db:"payload"`

	// Handle is the engine handle, InvalidEngineHandle until enqueue succeeds
	Handle EngineHandle `db:"engine_handle"`

	// CreatedAt is when the request was first recorded
	CreatedAt time.Time `db:"created_at"`
}

// NewAudioRequest builds a DownloadRequest for the given content.
func NewAudioRequest(content AudioContent) (DownloadRequest, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return DownloadRequest{}, NewValidationError("payload", content.ID, "content is not serializable")
	}
	return DownloadRequest{
		ID:        content.ID,
		Kind:      KindAudio,
		Payload:   string(payload),
		Handle:    InvalidEngineHandle,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AudioContent decodes the payload of an audio request.
func (r DownloadRequest) AudioContent() (AudioContent, error) {
	var content AudioContent
	if err := json.Unmarshal([]byte(r.Payload), &content); err != nil {
		return AudioContent{}, NewRepositoryError("decode", "download_requests", "corrupt payload for "+r.ID, err)
	}
	return content, nil
}

// DownloadStatus is the closed set of engine states this core reasons about.
type DownloadStatus int

const (
	// DownloadStatusNone means the engine knows the entry but has not scheduled it
	DownloadStatusNone DownloadStatus = iota

	// DownloadStatusQueued means the entry waits for a transfer slot
	DownloadStatusQueued

	// DownloadStatusDownloading means bytes are being transferred
	DownloadStatusDownloading

	// DownloadStatusPaused means the transfer was paused and can be resumed
	DownloadStatusPaused

	// DownloadStatusCompleted means the file is fully written
	DownloadStatusCompleted

	// DownloadStatusCancelled means the user cancelled the transfer
	DownloadStatusCancelled

	// DownloadStatusFailed means the engine gave up after its retries
	DownloadStatusFailed

	// DownloadStatusUnknown is any engine state this core does not recognise
	DownloadStatusUnknown
)

// String returns a human-readable representation of the download status.
func (s DownloadStatus) String() string {
	switch s {
	case DownloadStatusNone:
		return "none"
	case DownloadStatusQueued:
		return "queued"
	case DownloadStatusDownloading:
		return "downloading"
	case DownloadStatusPaused:
		return "paused"
	case DownloadStatusCompleted:
		return "completed"
	case DownloadStatusCancelled:
		return "cancelled"
	case DownloadStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseDownloadStatus maps a status name back to its value.
// Unrecognised names map to DownloadStatusUnknown.
func ParseDownloadStatus(name string) DownloadStatus {
	for s := DownloadStatusNone; s < DownloadStatusUnknown; s++ {
		if s.String() == strings.ToLower(strings.TrimSpace(name)) {
			return s
		}
	}
	return DownloadStatusUnknown
}

// EngineDownload is a live status snapshot reported by the fetch engine.
type EngineDownload struct {
	Handle          EngineHandle
	Status          DownloadStatus
	RawStatus       string // engine-native status, kept for the unknown arm
	Progress        int    // 0..100, -1 when the total size is unknown
	DownloadedBytes int64
	TotalBytes      int64
	FilePath        string
	MimeType        string
	Error           string
}

// FileTags holds the tags read back from a downloaded file.
type FileTags struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int
	Track  int
	Format string
}

// AudioDownloadItem composes a record, its decoded content and the live engine snapshot.
// It is recomputed on demand and never persisted.
type AudioDownloadItem struct {
	Request  DownloadRequest
	Content  AudioContent
	Download EngineDownload
	Tags     *FileTags
}

// DefaultAllowedStatuses is the allow-set used when callers pass none.
var DefaultAllowedStatuses = []DownloadStatus{DownloadStatusCompleted}

// StatusAllowed reports whether status is a member of allowed, using the default set when empty.
func StatusAllowed(status DownloadStatus, allowed []DownloadStatus) bool {
	if len(allowed) == 0 {
		allowed = DefaultAllowedStatuses
	}
	return slices.Contains(allowed, status)
}

// FolderGrouping is the subfolder strategy used under the downloads root.
type FolderGrouping string

const (
	// GroupingFlat stores every file directly in the root
	GroupingFlat FolderGrouping = "flat"

	// GroupingArtist stores files in <root>/<artist>
	GroupingArtist FolderGrouping = "artist"

	// GroupingArtistAlbum stores files in <root>/<artist>/<album>
	GroupingArtistAlbum FolderGrouping = "artist_album"
)

// ParseFolderGrouping validates a grouping name.
func ParseFolderGrouping(name string) (FolderGrouping, error) {
	switch g := FolderGrouping(strings.ToLower(strings.TrimSpace(name))); g {
	case GroupingFlat, GroupingArtist, GroupingArtistAlbum:
		return g, nil
	default:
		return "", NewValidationError("grouping", name, "must be one of flat, artist, artist_album")
	}
}

// Playlist is a saved, named list of content ids.
type Playlist struct {
	// ID is a unique identifier for the playlist
	ID string

	// Name is the playlist name
	Name string

	// ContentIDs is the ordered list of tracks
	ContentIDs []string

	// CreatedAt is when the playlist was created
	CreatedAt time.Time

	// UpdatedAt is when the playlist was last modified
	UpdatedAt time.Time
}
