// Package domain defines events for the event-driven architecture.
// Events are how the download and queue services talk to UI collaborators.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Downloader events
	EventMessage                 EventType = "downloader.message"
	EventChooseDownloadsLocation EventType = "downloader.choose_location"
	EventDownloadEnqueued        EventType = "downloader.enqueued"
	EventEnqueueFailed           EventType = "downloader.enqueue_failed"

	// Preference events
	EventFolderGroupingChanged EventType = "preferences.grouping_changed"
	EventDownloadsRootChanged  EventType = "preferences.root_changed"

	// Queue events
	EventQueueChanged      EventType = "queue.changed"
	EventNowPlayingChanged EventType = "queue.now_playing"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// MessageEvent is a localizable user message: a symbolic kind plus format arguments.
type MessageEvent struct {
	baseEvent
	Kind MessageKind
	Args []any
}

// Type returns the event type.
func (e MessageEvent) Type() EventType {
	return EventMessage
}

// NewMessageEvent creates a new MessageEvent.
func NewMessageEvent(kind MessageKind, args ...any) MessageEvent {
	return MessageEvent{
		baseEvent: newBaseEvent(),
		Kind:      kind,
		Args:      args,
	}
}

// ChooseDownloadsLocationEvent asks the UI to prompt for a downloads root folder.
type ChooseDownloadsLocationEvent struct {
	baseEvent
	PendingContentID string
}

// Type returns the event type.
func (e ChooseDownloadsLocationEvent) Type() EventType {
	return EventChooseDownloadsLocation
}

// NewChooseDownloadsLocationEvent creates a new ChooseDownloadsLocationEvent.
func NewChooseDownloadsLocationEvent(pendingID string) ChooseDownloadsLocationEvent {
	return ChooseDownloadsLocationEvent{
		baseEvent:        newBaseEvent(),
		PendingContentID: pendingID,
	}
}

// DownloadEnqueuedEvent is published after a new record was persisted.
type DownloadEnqueuedEvent struct {
	baseEvent
	ContentID string
	Handle    EngineHandle
}

// Type returns the event type.
func (e DownloadEnqueuedEvent) Type() EventType {
	return EventDownloadEnqueued
}

// NewDownloadEnqueuedEvent creates a new DownloadEnqueuedEvent.
func NewDownloadEnqueuedEvent(contentID string, handle EngineHandle) DownloadEnqueuedEvent {
	return DownloadEnqueuedEvent{
		baseEvent: newBaseEvent(),
		ContentID: contentID,
		Handle:    handle,
	}
}

// EnqueueFailedEvent carries the engine's submission error verbatim.
type EnqueueFailedEvent struct {
	baseEvent
	ContentID string
	Err       error
}

// Type returns the event type.
func (e EnqueueFailedEvent) Type() EventType {
	return EventEnqueueFailed
}

// NewEnqueueFailedEvent creates a new EnqueueFailedEvent.
func NewEnqueueFailedEvent(contentID string, err error) EnqueueFailedEvent {
	return EnqueueFailedEvent{
		baseEvent: newBaseEvent(),
		ContentID: contentID,
		Err:       err,
	}
}

// FolderGroupingChangedEvent is published when the grouping preference changes.
type FolderGroupingChangedEvent struct {
	baseEvent
	Grouping FolderGrouping
}

// Type returns the event type.
func (e FolderGroupingChangedEvent) Type() EventType {
	return EventFolderGroupingChanged
}

// NewFolderGroupingChangedEvent creates a new FolderGroupingChangedEvent.
func NewFolderGroupingChangedEvent(grouping FolderGrouping) FolderGroupingChangedEvent {
	return FolderGroupingChangedEvent{
		baseEvent: newBaseEvent(),
		Grouping:  grouping,
	}
}

// DownloadsRootChangedEvent is published when the root folder is set or reset.
// An empty URI means the root was reset.
type DownloadsRootChangedEvent struct {
	baseEvent
	URI string
}

// Type returns the event type.
func (e DownloadsRootChangedEvent) Type() EventType {
	return EventDownloadsRootChanged
}

// NewDownloadsRootChangedEvent creates a new DownloadsRootChangedEvent.
func NewDownloadsRootChangedEvent(uri string) DownloadsRootChangedEvent {
	return DownloadsRootChangedEvent{
		baseEvent: newBaseEvent(),
		URI:       uri,
	}
}

// QueueChangedEvent is published after every queue mutation.
type QueueChangedEvent struct {
	baseEvent
	State QueueState
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(state QueueState) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent(),
		State:     state,
	}
}

// NowPlayingChangedEvent is published by whatever drives the media session
// when it moves to another item.
type NowPlayingChangedEvent struct {
	baseEvent
	ContentID string
}

// Type returns the event type.
func (e NowPlayingChangedEvent) Type() EventType {
	return EventNowPlayingChanged
}

// NewNowPlayingChangedEvent creates a new NowPlayingChangedEvent.
func NewNowPlayingChangedEvent(contentID string) NowPlayingChangedEvent {
	return NowPlayingChangedEvent{
		baseEvent: newBaseEvent(),
		ContentID: contentID,
	}
}
