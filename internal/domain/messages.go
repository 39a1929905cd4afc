package domain

// MessageKind is the symbolic key of a user-facing message. The UI localizes it.
type MessageKind string

// Message kinds emitted by the download service. MessageUnknownStatus carries the
// engine's raw status and MessageRootInvalid the rejected URI as their only argument.
const (
	MessageQueued           MessageKind = "downloader.queued"
	MessageResumedExisting  MessageKind = "downloader.resumed_existing"
	MessageAlreadyQueued    MessageKind = "downloader.already_queued"
	MessageAlreadyCompleted MessageKind = "downloader.already_completed"
	MessageUnknownStatus    MessageKind = "downloader.unknown_status"
	MessageFolderNotFound   MessageKind = "downloader.folder_not_found"
	MessageInvalidURL       MessageKind = "downloader.invalid_url"
	MessageRootInvalid      MessageKind = "downloader.root_invalid"
	MessageGenericError     MessageKind = "downloader.generic_error"
)

// EnqueueOutcome is what an enqueue attempt resulted in.
type EnqueueOutcome int

const (
	// OutcomeQueued means a new engine entry and record were created
	OutcomeQueued EnqueueOutcome = iota

	// OutcomeResumed means an existing paused entry was resumed instead
	OutcomeResumed

	// OutcomeAlreadyQueued means an existing entry is still pending or transferring
	OutcomeAlreadyQueued

	// OutcomeAlreadyCompleted means the file is already downloaded and present
	OutcomeAlreadyCompleted

	// OutcomeUnknownStatus means the engine reported a status this core does not know
	OutcomeUnknownStatus

	// OutcomePending means no usable root folder exists; the content waits in the pending slot
	OutcomePending

	// OutcomeInvalidURL means the content has no source locator
	OutcomeInvalidURL

	// OutcomeEngineFailed means the engine rejected the submission
	OutcomeEngineFailed
)

// String returns a human-readable representation of the outcome.
func (o EnqueueOutcome) String() string {
	switch o {
	case OutcomeQueued:
		return "queued"
	case OutcomeResumed:
		return "resumed"
	case OutcomeAlreadyQueued:
		return "already_queued"
	case OutcomeAlreadyCompleted:
		return "already_completed"
	case OutcomeUnknownStatus:
		return "unknown_status"
	case OutcomePending:
		return "pending"
	case OutcomeInvalidURL:
		return "invalid_url"
	case OutcomeEngineFailed:
		return "engine_failed"
	default:
		return "unknown"
	}
}

// Proceeded reports whether the attempt resulted in a new engine entry.
func (o EnqueueOutcome) Proceeded() bool {
	return o == OutcomeQueued
}
