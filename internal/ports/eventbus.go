// Package ports defines the interfaces the services depend on.
// Adapters under internal/adapter implement them.
package ports

import (
	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// Services publish downloader and queue events here; UI collaborators and the
// HTTP control surface subscribe. Subscribers don't know about publishers.
//
// Thread-safety: Implementations must be thread-safe as events may be published and
// subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventChooseDownloadsLocation, func(event domain.Event) {
//	    e := event.(domain.ChooseDownloadsLocationEvent)
//	    ui.ShowFolderPicker(e.PendingContentID)
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to all subscribers of its type, then to wildcard subscribers.
	// Handlers should return quickly.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Each subscription gets a unique SubscriptionID.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeFiltered registers a handler that is only called for events passing filter.
	SubscribeFiltered(eventType domain.EventType, filter EventFilter, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// Unknown IDs are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if anyone would receive an event of the given type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and drops all subscriptions.
	Close() error
}

// EventFilter decides whether an event should be delivered to a subscriber.
type EventFilter func(event domain.Event) bool

// ContentFilter returns a filter matching downloader events about contentID.
func ContentFilter(contentID string) EventFilter {
	return func(event domain.Event) bool {
		switch e := event.(type) {
		case domain.DownloadEnqueuedEvent:
			return e.ContentID == contentID
		case domain.EnqueueFailedEvent:
			return e.ContentID == contentID
		case domain.ChooseDownloadsLocationEvent:
			return e.PendingContentID == contentID
		default:
			return false
		}
	}
}

// Mailbox is a single-slot, latest-wins hand-off for one-shot UI events.
// Offer never blocks; unconsumed values are overwritten.
type Mailbox[T any] interface {
	// Offer stores v as the latest value.
	Offer(v T)

	// Take returns and clears the latest value.
	Take() (T, bool)

	// History returns the retained values, oldest first.
	History() []T
}
