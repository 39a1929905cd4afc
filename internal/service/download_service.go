// Package service provides the business logic of the offtune core.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// DownloadService owns the download record lifecycle: dedup against the fetch
// engine, destination resolution under the root folder, the pending slot and
// the pass-through engine operations.
//
// Enqueue calls for the same content id are serialized; different ids run concurrently.
type DownloadService struct {
	// Dependencies (injected)
	logger  *slog.Logger
	records ports.DownloadRepository
	engine  ports.FetchEngine
	folders ports.FolderRoot
	prefs   ports.PreferencesRepository
	grants  ports.PermissionStore
	tags    ports.TagReader
	bus     ports.EventBus

	// One-shot outputs for UI collaborators
	events ports.Mailbox[domain.Event]
	newIDs ports.Mailbox[string]

	// Single pending slot, overwritten by a later pending enqueue
	pendingMu sync.Mutex
	pending   *domain.AudioContent

	rootMu sync.Mutex
	locks  keyedMutex
}

// DownloadDeps groups the collaborators of a DownloadService.
// Tags may be nil, in which case items never carry file tags.
type DownloadDeps struct {
	Records ports.DownloadRepository
	Engine  ports.FetchEngine
	Folders ports.FolderRoot
	Prefs   ports.PreferencesRepository
	Grants  ports.PermissionStore
	Tags    ports.TagReader
	Bus     ports.EventBus
	Events  ports.Mailbox[domain.Event]
	NewIDs  ports.Mailbox[string]
}

// NewDownloadService creates a new download service.
func NewDownloadService(logger *slog.Logger, deps DownloadDeps) *DownloadService {
	s := &DownloadService{
		logger:  logger.With(slog.String("service", "download")),
		records: deps.Records,
		engine:  deps.Engine,
		folders: deps.Folders,
		prefs:   deps.Prefs,
		grants:  deps.Grants,
		tags:    deps.Tags,
		bus:     deps.Bus,
		events:  deps.Events,
		newIDs:  deps.NewIDs,
	}
	s.logger.Debug("download service initialized")
	return s
}

// verdict is the result of validating an enqueue against existing state.
type verdict struct {
	proceed bool
	outcome domain.EnqueueOutcome
}

func proceed() verdict { return verdict{proceed: true} }

func stop(outcome domain.EnqueueOutcome) verdict { return verdict{outcome: outcome} }

// Enqueue submits content to the fetch engine unless an existing download makes that unnecessary.
// Expected conditions are reported through the outcome and a message event; the error is only
// set for store or engine failures nobody can act on.
func (s *DownloadService) Enqueue(ctx context.Context, content domain.AudioContent) (domain.EnqueueOutcome, error) {
	if content.ID == "" {
		return domain.OutcomeInvalidURL, domain.NewValidationError("id", content.ID, "content id is required")
	}

	unlock := s.locks.Lock(content.ID)
	defer unlock()

	log := s.logger.With(slog.String("content_id", content.ID))

	request, err := domain.NewAudioRequest(content)
	if err != nil {
		return s.fail("enqueue", err)
	}

	v, err := s.validate(ctx, request)
	if err != nil {
		return s.fail("validate", err)
	}
	if !v.proceed {
		log.Debug("enqueue stopped by existing download", slog.String("outcome", v.outcome.String()))
		return v.outcome, nil
	}

	destination, err := s.destination(content)
	if errors.Is(err, domain.ErrRootNotSet) || errors.Is(err, domain.ErrRootInvalid) {
		log.Info("downloads root unavailable, holding content as pending", slog.String("error", err.Error()))
		s.setPending(content)
		s.emit(domain.NewChooseDownloadsLocationEvent(content.ID))
		s.message(domain.MessageFolderNotFound)
		return domain.OutcomePending, nil
	}
	if err != nil {
		return s.fail("resolve destination", err)
	}

	if content.SourceURL == "" {
		s.message(domain.MessageInvalidURL)
		return domain.OutcomeInvalidURL, nil
	}

	handle, err := s.engine.Enqueue(ctx, content.SourceURL, destination)
	if err != nil {
		log.Warn("engine rejected submission", slog.String("error", err.Error()))
		s.emit(domain.NewEnqueueFailedEvent(content.ID, err))
		return domain.OutcomeEngineFailed, nil
	}

	request.Handle = handle
	if err := s.records.Save(ctx, request); err != nil {
		if derr := s.engine.Delete(ctx, handle); derr != nil {
			log.Error("failed to roll back engine entry", slog.Int64("handle", int64(handle)), slog.String("error", derr.Error()))
		}
		return s.fail("save record", err)
	}

	log.Info("download queued", slog.Int64("handle", int64(handle)), slog.String("destination", destination))
	s.emit(domain.NewDownloadEnqueuedEvent(content.ID, handle))
	s.message(domain.MessageQueued)
	s.newIDs.Offer(content.ID)
	return domain.OutcomeQueued, nil
}

// validate decides whether a new submission is needed, healing stale state on the way.
func (s *DownloadService) validate(ctx context.Context, request domain.DownloadRequest) (verdict, error) {
	existing, err := s.records.Get(ctx, request.ID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return proceed(), nil
	}
	if err != nil {
		return verdict{}, err
	}

	if !existing.Handle.IsValid() {
		return proceed(), s.records.Delete(ctx, existing.ID)
	}

	dl, err := s.engine.Status(ctx, existing.Handle)
	if errors.Is(err, domain.ErrEngineEntryNotFound) {
		return proceed(), s.records.Delete(ctx, existing.ID)
	}
	if err != nil {
		return verdict{}, err
	}

	switch dl.Status {
	case domain.DownloadStatusFailed, domain.DownloadStatusCancelled:
		return proceed(), s.supersede(ctx, existing)

	case domain.DownloadStatusPaused:
		if err := s.engine.Resume(ctx, existing.Handle); err != nil {
			return verdict{}, err
		}
		s.message(domain.MessageResumedExisting)
		return stop(domain.OutcomeResumed), nil

	case domain.DownloadStatusNone, domain.DownloadStatusQueued, domain.DownloadStatusDownloading:
		s.message(domain.MessageAlreadyQueued)
		return stop(domain.OutcomeAlreadyQueued), nil

	case domain.DownloadStatusCompleted:
		if !s.folders.Exists(dl.FilePath) {
			return proceed(), s.supersede(ctx, existing)
		}
		s.message(domain.MessageAlreadyCompleted)
		return stop(domain.OutcomeAlreadyCompleted), nil

	default:
		s.message(domain.MessageUnknownStatus, dl.RawStatus)
		return stop(domain.OutcomeUnknownStatus), nil
	}
}

// supersede drops the engine entry and the record so a fresh submission can take their place.
func (s *DownloadService) supersede(ctx context.Context, existing domain.DownloadRequest) error {
	if err := s.engine.Delete(ctx, existing.Handle); err != nil {
		return err
	}
	return s.records.Delete(ctx, existing.ID)
}

func (s *DownloadService) destination(content domain.AudioContent) (string, error) {
	uri, err := s.prefs.LoadDownloadsRoot()
	if err != nil {
		return "", err
	}
	root, err := s.folders.Validate(uri)
	if err != nil {
		return "", err
	}

	grouping, err := s.prefs.LoadFolderGrouping()
	if err != nil {
		s.logger.Warn("folder grouping unreadable, using flat", slog.String("error", err.Error()))
		grouping = domain.GroupingFlat
	}
	return s.folders.Resolve(root, grouping, content)
}

func (s *DownloadService) fail(op string, err error) (domain.EnqueueOutcome, error) {
	s.logger.Error("enqueue failed", slog.String("op", op), slog.String("error", err.Error()))
	s.message(domain.MessageGenericError)
	return domain.OutcomeEngineFailed, domain.NewServiceError("DownloadService", op, "enqueue failed", err)
}

// Pause pauses the downloads of ids. Unknown ids are skipped.
func (s *DownloadService) Pause(ctx context.Context, ids ...string) error {
	return s.forward(ctx, ids, s.engine.Pause)
}

// Resume resumes the downloads of ids. Unknown ids are skipped.
func (s *DownloadService) Resume(ctx context.Context, ids ...string) error {
	return s.forward(ctx, ids, s.engine.Resume)
}

// Cancel cancels the downloads of ids. Records are kept.
func (s *DownloadService) Cancel(ctx context.Context, ids ...string) error {
	return s.forward(ctx, ids, s.engine.Cancel)
}

// Retry restarts failed or cancelled downloads of ids.
func (s *DownloadService) Retry(ctx context.Context, ids ...string) error {
	return s.forward(ctx, ids, s.engine.Retry)
}

// Remove forgets the downloads of ids but keeps their files on disk.
func (s *DownloadService) Remove(ctx context.Context, ids ...string) error {
	return s.forget(ctx, ids, s.engine.Remove)
}

// Delete forgets the downloads of ids and erases their files.
func (s *DownloadService) Delete(ctx context.Context, ids ...string) error {
	return s.forget(ctx, ids, s.engine.Delete)
}

type engineOp func(ctx context.Context, handles ...domain.EngineHandle) error

func (s *DownloadService) forward(ctx context.Context, ids []string, op engineOp) error {
	records, err := s.lookup(ctx, ids)
	if err != nil {
		return err
	}
	handles := make([]domain.EngineHandle, 0, len(records))
	for _, r := range records {
		if r.Handle.IsValid() {
			handles = append(handles, r.Handle)
		}
	}
	if len(handles) == 0 {
		return nil
	}
	return op(ctx, handles...)
}

func (s *DownloadService) forget(ctx context.Context, ids []string, op engineOp) error {
	if err := s.forward(ctx, ids, op); err != nil {
		return err
	}
	records, err := s.lookup(ctx, ids)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range records {
		if err := s.records.Delete(ctx, r.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lookup returns the records of ids, skipping ids without one.
func (s *DownloadService) lookup(ctx context.Context, ids []string) ([]domain.DownloadRequest, error) {
	records := make([]domain.DownloadRequest, 0, len(ids))
	for _, id := range ids {
		r, err := s.records.Get(ctx, id)
		if errors.Is(err, domain.ErrRecordNotFound) {
			s.logger.Debug("skipping unknown download", slog.String("content_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// GetAudioDownload returns the composed item for id when its live status is in allowed
// (completed only when allowed is empty). Every miss returns domain.ErrDownloadNotFound.
func (s *DownloadService) GetAudioDownload(ctx context.Context, id string, allowed ...domain.DownloadStatus) (domain.AudioDownloadItem, error) {
	request, err := s.records.Get(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.AudioDownloadItem{}, domain.ErrDownloadNotFound
	}
	if err != nil {
		return domain.AudioDownloadItem{}, err
	}

	item, err := s.compose(ctx, request)
	if errors.Is(err, domain.ErrEngineEntryNotFound) {
		return domain.AudioDownloadItem{}, domain.ErrDownloadNotFound
	}
	if err != nil {
		return domain.AudioDownloadItem{}, err
	}
	if !domain.StatusAllowed(item.Download.Status, allowed) {
		return domain.AudioDownloadItem{}, domain.ErrDownloadNotFound
	}
	return item, nil
}

// ListDownloads returns every record composed with its live status, oldest first.
// Records the engine no longer knows are skipped; Reconcile removes them.
func (s *DownloadService) ListDownloads(ctx context.Context) ([]domain.AudioDownloadItem, error) {
	requests, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.AudioDownloadItem, 0, len(requests))
	for _, request := range requests {
		item, err := s.compose(ctx, request)
		if errors.Is(err, domain.ErrEngineEntryNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("skipping download", slog.String("content_id", request.ID), slog.String("error", err.Error()))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *DownloadService) compose(ctx context.Context, request domain.DownloadRequest) (domain.AudioDownloadItem, error) {
	if !request.Handle.IsValid() {
		return domain.AudioDownloadItem{}, domain.ErrEngineEntryNotFound
	}
	dl, err := s.engine.Status(ctx, request.Handle)
	if err != nil {
		return domain.AudioDownloadItem{}, err
	}
	content, err := request.AudioContent()
	if err != nil {
		return domain.AudioDownloadItem{}, err
	}

	item := domain.AudioDownloadItem{Request: request, Content: content, Download: dl}
	if dl.Status == domain.DownloadStatusCompleted && s.tags != nil && s.folders.Exists(dl.FilePath) {
		tags, err := s.tags.ReadTags(dl.FilePath)
		if err != nil {
			s.logger.Debug("no readable tags", slog.String("path", dl.FilePath), slog.String("error", err.Error()))
		} else {
			item.Tags = tags
		}
	}
	return item, nil
}

// Reconcile deletes records whose handle is unset or unknown to the engine.
// Returns the number of records removed.
func (s *DownloadService) Reconcile(ctx context.Context) (int, error) {
	requests, err := s.records.List(ctx)
	if err != nil {
		return 0, err
	}

	healed := 0
	var errs []error
	for _, request := range requests {
		if request.Handle.IsValid() {
			_, err := s.engine.Status(ctx, request.Handle)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrEngineEntryNotFound) {
				errs = append(errs, fmt.Errorf("status of %s: %w", request.ID, err))
				continue
			}
		}
		if err := s.records.Delete(ctx, request.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		healed++
	}

	if healed > 0 {
		s.logger.Info("orphaned download records removed", slog.Int("count", healed))
	}
	return healed, errors.Join(errs...)
}

// SetDownloadsRoot validates and stores a new root folder, moving the access grant to it.
// A pending content is enqueued right away.
func (s *DownloadService) SetDownloadsRoot(ctx context.Context, uri string) error {
	s.rootMu.Lock()
	if _, err := s.folders.Validate(uri); err != nil {
		s.rootMu.Unlock()
		s.message(domain.MessageRootInvalid, uri)
		return err
	}

	previous, err := s.prefs.LoadDownloadsRoot()
	if err != nil {
		s.rootMu.Unlock()
		return err
	}
	if err := s.grants.Take(uri); err != nil {
		s.rootMu.Unlock()
		return err
	}
	if previous != "" && previous != uri {
		if err := s.grants.Release(previous); err != nil {
			s.logger.Warn("failed to release previous grant", slog.String("uri", previous), slog.String("error", err.Error()))
		}
	}
	if err := s.prefs.SaveDownloadsRoot(uri); err != nil {
		s.rootMu.Unlock()
		return err
	}
	s.rootMu.Unlock()

	s.logger.Info("downloads root set", slog.String("uri", uri))
	s.emit(domain.NewDownloadsRootChangedEvent(uri))

	content, ok := s.takePending()
	if !ok {
		return nil
	}
	outcome, err := s.Enqueue(ctx, content)
	s.logger.Debug("pending content retried", slog.String("content_id", content.ID), slog.String("outcome", outcome.String()))
	return err
}

// ResetDownloadsRoot releases the grant on the root folder and forgets it.
func (s *DownloadService) ResetDownloadsRoot() error {
	s.rootMu.Lock()
	defer s.rootMu.Unlock()

	uri, err := s.prefs.LoadDownloadsRoot()
	if err != nil {
		return err
	}
	if uri != "" {
		if err := s.grants.Release(uri); err != nil {
			return err
		}
	}
	if err := s.prefs.ClearDownloadsRoot(); err != nil {
		return err
	}

	s.logger.Info("downloads root reset")
	s.emit(domain.NewDownloadsRootChangedEvent(""))
	return nil
}

// DownloadsRoot returns the stored root URI, or "" when none is set.
func (s *DownloadService) DownloadsRoot() (string, error) {
	return s.prefs.LoadDownloadsRoot()
}

// Pending returns the content waiting for a root folder, if any.
func (s *DownloadService) Pending() (domain.AudioContent, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pending == nil {
		return domain.AudioContent{}, false
	}
	return *s.pending, true
}

func (s *DownloadService) setPending(content domain.AudioContent) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pending != nil && s.pending.ID != content.ID {
		s.logger.Debug("pending content replaced", slog.String("dropped", s.pending.ID), slog.String("content_id", content.ID))
	}
	s.pending = &content
}

func (s *DownloadService) takePending() (domain.AudioContent, bool) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.pending == nil {
		return domain.AudioContent{}, false
	}
	content := *s.pending
	s.pending = nil
	return content, true
}

func (s *DownloadService) message(kind domain.MessageKind, args ...any) {
	s.emit(domain.NewMessageEvent(kind, args...))
}

func (s *DownloadService) emit(event domain.Event) {
	s.bus.Publish(event)
	s.events.Offer(event)
}

// ContentIDForURL derives a stable content id for content known only by its URL.
func ContentIDForURL(sourceURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String()
}
