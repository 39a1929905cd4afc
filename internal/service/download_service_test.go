package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/offtune/internal/adapter/engine/mock"
	"github.com/tejashwikalptaru/offtune/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/offtune/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/offtune/internal/adapter/repository/sqlite"
	"github.com/tejashwikalptaru/offtune/internal/adapter/storage/folder"
	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/logger"
	"github.com/tejashwikalptaru/offtune/internal/testutil"
)

type downloadFixture struct {
	svc     *DownloadService
	deps    DownloadDeps
	engine  *mock.Engine
	records *sqlite.DownloadRepository
	prefs   *memory.PreferencesRepository
	grants  *memory.GrantStore
	events  *eventbus.Mailbox[domain.Event]
	newIDs  *eventbus.Mailbox[string]
	root    string
}

// newDownloadFixture wires a DownloadService over a temp-dir SQLite store, the mock
// engine and fyne test preferences. The downloads root is set unless withRoot is false.
func newDownloadFixture(t *testing.T, withRoot bool) *downloadFixture {
	t.Helper()

	log := logger.NewTestLogger()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "offtune.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	prefsStore := test.NewApp().Preferences()
	f := &downloadFixture{
		engine:  mock.NewEngine(log),
		records: sqlite.NewDownloadRepository(db, log),
		prefs:   memory.NewPreferencesRepository(prefsStore),
		grants:  memory.NewGrantStore(prefsStore, log),
		events:  eventbus.NewMailbox[domain.Event](0),
		newIDs:  eventbus.NewMailbox[string](0),
		root:    t.TempDir(),
	}
	bus := eventbus.NewSyncEventBus(log)
	t.Cleanup(func() { _ = bus.Close() })

	f.deps = DownloadDeps{
		Records: f.records,
		Engine:  f.engine,
		Folders: folder.NewRoot(log),
		Prefs:   f.prefs,
		Grants:  f.grants,
		Bus:     bus,
		Events:  f.events,
		NewIDs:  f.newIDs,
	}
	f.svc = NewDownloadService(log, f.deps)

	if withRoot {
		require.NoError(t, f.prefs.SaveDownloadsRoot(f.root))
	}
	return f
}

func (f *downloadFixture) messages(kind domain.MessageKind) []domain.MessageEvent {
	var out []domain.MessageEvent
	for _, e := range f.events.History() {
		if m, ok := e.(domain.MessageEvent); ok && m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func (f *downloadFixture) record(t *testing.T, id string) domain.DownloadRequest {
	t.Helper()
	r, err := f.records.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func audio(id string) domain.AudioContent {
	return domain.AudioContent{
		ID:        id,
		Title:     "Song " + id,
		Artist:    "Artist " + id,
		Album:     "Album " + id,
		SourceURL: "https://cdn.example/" + id + ".mp3",
	}
}

// enqueued runs a successful first enqueue and returns the handle it got.
func (f *downloadFixture) enqueued(t *testing.T, content domain.AudioContent) domain.EngineHandle {
	t.Helper()
	outcome, err := f.svc.Enqueue(context.Background(), content)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeQueued, outcome)
	return f.record(t, content.ID).Handle
}

func TestDownloadService_Enqueue_NewContent(t *testing.T) {
	f := newDownloadFixture(t, true)
	f.engine.SetNextHandle(42)

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)

	all, err := f.records.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, domain.EngineHandle(42), all[0].Handle)

	assert.Len(t, f.messages(domain.MessageQueued), 1, "queued is emitted exactly once")

	subs := f.engine.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "https://cdn.example/a.mp3", subs[0].SourceURL)
	assert.Equal(t, f.root, subs[0].Destination, "flat grouping submits into the root")

	id, ok := f.newIDs.Take()
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestDownloadService_Enqueue_AlwaysSubmitsWithoutRecord(t *testing.T) {
	f := newDownloadFixture(t, true)

	for i := range 5 {
		content := audio(fmt.Sprintf("track-%d", i))
		outcome, err := f.svc.Enqueue(context.Background(), content)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeQueued, outcome)
	}
	assert.Len(t, f.engine.Submissions(), 5)
}

// orderLog records store and engine calls in the order they happen.
type orderLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *orderLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

type loggingEngine struct {
	*mock.Engine
	log *orderLog
}

func (e loggingEngine) Enqueue(ctx context.Context, sourceURL, destination string) (domain.EngineHandle, error) {
	e.log.add("engine.enqueue")
	return e.Engine.Enqueue(ctx, sourceURL, destination)
}

func (e loggingEngine) Delete(ctx context.Context, handles ...domain.EngineHandle) error {
	for _, h := range handles {
		e.log.add(fmt.Sprintf("engine.delete:%d", h))
	}
	return e.Engine.Delete(ctx, handles...)
}

type loggingRecords struct {
	*sqlite.DownloadRepository
	log *orderLog
}

func (r loggingRecords) Delete(ctx context.Context, id string) error {
	r.log.add("store.delete:" + id)
	return r.DownloadRepository.Delete(ctx, id)
}

func TestDownloadService_Enqueue_FailedIsSupersededBeforeResubmit(t *testing.T) {
	f := newDownloadFixture(t, true)
	f.engine.SetNextHandle(7)
	handle := f.enqueued(t, audio("a"))
	require.Equal(t, domain.EngineHandle(7), handle)
	f.engine.SetStatus(handle, domain.DownloadStatusFailed)

	calls := &orderLog{}
	deps := f.deps
	deps.Engine = loggingEngine{Engine: f.engine, log: calls}
	deps.Records = loggingRecords{DownloadRepository: f.records, log: calls}
	svc := NewDownloadService(logger.NewTestLogger(), deps)

	outcome, err := svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)

	assert.Equal(t, []string{"engine.delete:7", "store.delete:a", "engine.enqueue"}, calls.calls)
	assert.NotEqual(t, domain.EngineHandle(7), f.record(t, "a").Handle)
}

func TestDownloadService_Enqueue_CancelledIsSuperseded(t *testing.T) {
	f := newDownloadFixture(t, true)
	handle := f.enqueued(t, audio("a"))
	f.engine.SetStatus(handle, domain.DownloadStatusCancelled)

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.Equal(t, []domain.EngineHandle{handle}, f.engine.Calls("delete"))
	assert.Len(t, f.engine.Submissions(), 2)
}

func TestDownloadService_Enqueue_PausedResumesExisting(t *testing.T) {
	f := newDownloadFixture(t, true)
	handle := f.enqueued(t, audio("a"))
	f.engine.SetStatus(handle, domain.DownloadStatusPaused)

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeResumed, outcome)

	assert.Equal(t, []domain.EngineHandle{handle}, f.engine.Calls("resume"))
	assert.Len(t, f.engine.Submissions(), 1, "no second engine entry")
	assert.Equal(t, 1, f.engine.EntryCount())
	assert.Len(t, f.messages(domain.MessageResumedExisting), 1)
	assert.Equal(t, handle, f.record(t, "a").Handle)
}

func TestDownloadService_Enqueue_InFlightIsAlreadyQueued(t *testing.T) {
	for _, status := range []domain.DownloadStatus{
		domain.DownloadStatusNone,
		domain.DownloadStatusQueued,
		domain.DownloadStatusDownloading,
	} {
		t.Run(status.String(), func(t *testing.T) {
			f := newDownloadFixture(t, true)
			handle := f.enqueued(t, audio("a"))
			f.engine.SetStatus(handle, status)

			outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
			require.NoError(t, err)
			assert.Equal(t, domain.OutcomeAlreadyQueued, outcome)
			assert.Len(t, f.messages(domain.MessageAlreadyQueued), 1)
			assert.Len(t, f.engine.Submissions(), 1)
		})
	}
}

func TestDownloadService_Enqueue_CompletedWithFile(t *testing.T) {
	f := newDownloadFixture(t, true)
	handle := f.enqueued(t, audio("a"))
	path := f.engine.Complete(handle, "a.mp3", 3)
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyCompleted, outcome)
	assert.Len(t, f.messages(domain.MessageAlreadyCompleted), 1)
	assert.Empty(t, f.engine.Calls("delete"))
}

func TestDownloadService_Enqueue_CompletedWithMissingFile(t *testing.T) {
	f := newDownloadFixture(t, true)
	handle := f.enqueued(t, audio("a"))
	f.engine.Complete(handle, "a.mp3", 3) // never written

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)

	assert.Equal(t, []domain.EngineHandle{handle}, f.engine.Calls("delete"))
	fresh := f.record(t, "a")
	assert.NotEqual(t, handle, fresh.Handle, "record is recreated with the new handle")
	assert.Len(t, f.engine.Submissions(), 2)
}

func TestDownloadService_Enqueue_UnknownStatus(t *testing.T) {
	f := newDownloadFixture(t, true)
	handle := f.enqueued(t, audio("a"))
	f.engine.SetRawStatus(handle, "STATUS_VERIFYING")

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnknownStatus, outcome)

	msgs := f.messages(domain.MessageUnknownStatus)
	require.Len(t, msgs, 1)
	assert.Equal(t, []any{"STATUS_VERIFYING"}, msgs[0].Args)
}

func TestDownloadService_Enqueue_UnsetHandleIsReplaced(t *testing.T) {
	f := newDownloadFixture(t, true)
	stale, err := domain.NewAudioRequest(audio("a"))
	require.NoError(t, err)
	require.NoError(t, f.records.Save(context.Background(), stale))

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.True(t, f.record(t, "a").Handle.IsValid())
}

func TestDownloadService_Enqueue_OrphanedRecordIsReplaced(t *testing.T) {
	f := newDownloadFixture(t, true)
	handle := f.enqueued(t, audio("a"))
	f.engine.Forget(handle)

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeQueued, outcome)
	assert.NotEqual(t, handle, f.record(t, "a").Handle)
	assert.Empty(t, f.engine.Calls("delete"), "the engine has nothing to delete")
}

func TestDownloadService_Enqueue_NoRootHoldsPending(t *testing.T) {
	f := newDownloadFixture(t, false)

	var chosen []string
	f.deps.Bus.Subscribe(domain.EventChooseDownloadsLocation, func(e domain.Event) {
		chosen = append(chosen, e.(domain.ChooseDownloadsLocationEvent).PendingContentID)
	})

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePending, outcome)
	assert.Equal(t, []string{"a"}, chosen)
	assert.Len(t, f.messages(domain.MessageFolderNotFound), 1)
	assert.Empty(t, f.engine.Submissions())

	pending, ok := f.svc.Pending()
	require.True(t, ok)
	assert.Equal(t, "a", pending.ID)
}

func TestDownloadService_Enqueue_InvalidRootHoldsPending(t *testing.T) {
	f := newDownloadFixture(t, false)
	require.NoError(t, f.prefs.SaveDownloadsRoot(filepath.Join(f.root, "gone")))

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePending, outcome)
	_, err = os.Stat(filepath.Join(f.root, "gone"))
	assert.True(t, os.IsNotExist(err), "a missing root is never created")
}

func TestDownloadService_PendingSlotIsOverwritten(t *testing.T) {
	f := newDownloadFixture(t, false)

	_, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	_, err = f.svc.Enqueue(context.Background(), audio("b"))
	require.NoError(t, err)

	pending, ok := f.svc.Pending()
	require.True(t, ok)
	assert.Equal(t, "b", pending.ID)
}

func TestDownloadService_SetDownloadsRoot_EnqueuesPending(t *testing.T) {
	f := newDownloadFixture(t, false)
	_, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)

	uri, err := folder.ToURI(f.root)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetDownloadsRoot(context.Background(), uri))

	_, ok := f.svc.Pending()
	assert.False(t, ok, "pending slot is cleared")
	assert.Len(t, f.engine.Submissions(), 1)
	assert.True(t, f.record(t, "a").Handle.IsValid())
	assert.Equal(t, []string{uri}, f.grants.Granted())

	stored, err := f.svc.DownloadsRoot()
	require.NoError(t, err)
	assert.Equal(t, uri, stored)

	// A second root change has nothing pending to retry.
	require.NoError(t, f.svc.SetDownloadsRoot(context.Background(), f.root))
	assert.Len(t, f.engine.Submissions(), 1)
}

func TestDownloadService_SetDownloadsRoot_MovesGrant(t *testing.T) {
	f := newDownloadFixture(t, false)
	other := t.TempDir()

	require.NoError(t, f.svc.SetDownloadsRoot(context.Background(), f.root))
	require.NoError(t, f.svc.SetDownloadsRoot(context.Background(), other))
	assert.Equal(t, []string{other}, f.grants.Granted())
}

func TestDownloadService_SetDownloadsRoot_Invalid(t *testing.T) {
	f := newDownloadFixture(t, false)
	missing := filepath.Join(f.root, "missing")

	err := f.svc.SetDownloadsRoot(context.Background(), missing)
	assert.ErrorIs(t, err, domain.ErrRootInvalid)

	msgs := f.messages(domain.MessageRootInvalid)
	require.Len(t, msgs, 1)
	assert.Equal(t, []any{missing}, msgs[0].Args)
	assert.Empty(t, f.grants.Granted())
}

func TestDownloadService_ResetDownloadsRoot(t *testing.T) {
	f := newDownloadFixture(t, false)
	require.NoError(t, f.svc.SetDownloadsRoot(context.Background(), f.root))

	require.NoError(t, f.svc.ResetDownloadsRoot())
	assert.Empty(t, f.grants.Granted())

	stored, err := f.svc.DownloadsRoot()
	require.NoError(t, err)
	assert.Empty(t, stored)

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePending, outcome)
}

func TestDownloadService_Enqueue_EmptySourceURL(t *testing.T) {
	f := newDownloadFixture(t, true)
	content := audio("a")
	content.SourceURL = ""

	outcome, err := f.svc.Enqueue(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalidURL, outcome)
	assert.Len(t, f.messages(domain.MessageInvalidURL), 1)
	assert.Empty(t, f.engine.Submissions())
}

func TestDownloadService_Enqueue_EngineFailure(t *testing.T) {
	f := newDownloadFixture(t, true)
	engineErr := errors.New("disk quota exceeded")
	f.engine.SetFailEnqueue(engineErr)

	outcome, err := f.svc.Enqueue(context.Background(), audio("a"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeEngineFailed, outcome)

	last, ok := f.events.Peek()
	require.True(t, ok)
	failed, ok := last.(domain.EnqueueFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "a", failed.ContentID)
	assert.Same(t, engineErr, failed.Err, "the engine error is carried verbatim")

	_, err = f.records.Get(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	_, ok = f.newIDs.Take()
	assert.False(t, ok)
}

type failingSaveRecords struct {
	*sqlite.DownloadRepository
}

func (failingSaveRecords) Save(context.Context, domain.DownloadRequest) error {
	return errors.New("database is locked")
}

func TestDownloadService_Enqueue_SaveFailureRollsBack(t *testing.T) {
	f := newDownloadFixture(t, true)
	deps := f.deps
	deps.Records = failingSaveRecords{f.records}
	svc := NewDownloadService(logger.NewTestLogger(), deps)

	_, err := svc.Enqueue(context.Background(), audio("a"))
	var serr *domain.ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "save record", serr.Op)

	assert.Equal(t, 0, f.engine.EntryCount(), "the orphaned engine entry is dropped")
	assert.Len(t, f.messages(domain.MessageGenericError), 1)
}

func TestDownloadService_Enqueue_GroupingFolders(t *testing.T) {
	f := newDownloadFixture(t, true)
	require.NoError(t, f.prefs.SaveFolderGrouping(domain.GroupingArtistAlbum))

	content := audio("a")
	content.Artist = "AC/DC"
	_, err := f.svc.Enqueue(context.Background(), content)
	require.NoError(t, err)

	want := filepath.Join(f.root, "AC_DC", "Album a")
	assert.Equal(t, want, f.engine.Submissions()[0].Destination)
	assert.DirExists(t, want)
}

func TestDownloadService_Enqueue_SameIDIsSerialized(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, append(testutil.IgnoreFyneGoroutines(), testutil.IgnoreDatabaseGoroutines()...)...)
	f := newDownloadFixture(t, true)

	const workers = 8
	outcomes := make([]domain.EnqueueOutcome, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], _ = f.svc.Enqueue(context.Background(), audio("a"))
		}()
	}
	wg.Wait()

	assert.Len(t, f.engine.Submissions(), 1, "only one engine entry per content id")
	queued := 0
	for _, o := range outcomes {
		if o == domain.OutcomeQueued {
			queued++
		} else {
			assert.Equal(t, domain.OutcomeAlreadyQueued, o)
		}
	}
	assert.Equal(t, 1, queued)
}

func TestDownloadService_PassThrough(t *testing.T) {
	f := newDownloadFixture(t, true)
	ctx := context.Background()
	ha := f.enqueued(t, audio("a"))
	hb := f.enqueued(t, audio("b"))

	require.NoError(t, f.svc.Pause(ctx, "a", "missing", "b"))
	require.NoError(t, f.svc.Resume(ctx, "b"))
	require.NoError(t, f.svc.Cancel(ctx, "a"))
	require.NoError(t, f.svc.Retry(ctx, "a"))

	assert.Equal(t, []domain.EngineHandle{ha, hb}, f.engine.Calls("pause"))
	assert.Equal(t, []domain.EngineHandle{hb}, f.engine.Calls("resume"))
	assert.Equal(t, []domain.EngineHandle{ha}, f.engine.Calls("cancel"))
	assert.Equal(t, []domain.EngineHandle{ha}, f.engine.Calls("retry"))

	all, err := f.records.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "pass-through leaves the store alone")

	require.NoError(t, f.svc.Pause(ctx, "missing"))
	assert.Len(t, f.engine.Calls("pause"), 2, "unknown ids never reach the engine")
}

func TestDownloadService_RemoveAndDelete(t *testing.T) {
	f := newDownloadFixture(t, true)
	ctx := context.Background()
	ha := f.enqueued(t, audio("a"))
	hb := f.enqueued(t, audio("b"))

	require.NoError(t, f.svc.Remove(ctx, "a"))
	require.NoError(t, f.svc.Delete(ctx, "b", "missing"))

	assert.Equal(t, []domain.EngineHandle{ha}, f.engine.Calls("remove"))
	assert.Equal(t, []domain.EngineHandle{hb}, f.engine.Calls("delete"))

	all, err := f.records.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDownloadService_GetAudioDownload(t *testing.T) {
	f := newDownloadFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.GetAudioDownload(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDownloadNotFound)

	handle := f.enqueued(t, audio("a"))

	_, err = f.svc.GetAudioDownload(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrDownloadNotFound, "queued is not in the default allow-set")

	item, err := f.svc.GetAudioDownload(ctx, "a", domain.DownloadStatusQueued, domain.DownloadStatusPaused)
	require.NoError(t, err)
	assert.Equal(t, "Song a", item.Content.Title)
	assert.Equal(t, domain.DownloadStatusQueued, item.Download.Status)

	path := f.engine.Complete(handle, "a.mp3", 3)
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	item, err = f.svc.GetAudioDownload(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, path, item.Download.FilePath)
	assert.Equal(t, 100, item.Download.Progress)
	assert.Nil(t, item.Tags, "no tag reader configured")

	f.engine.Forget(handle)
	_, err = f.svc.GetAudioDownload(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrDownloadNotFound)
}

func TestDownloadService_ListAndReconcile(t *testing.T) {
	f := newDownloadFixture(t, true)
	ctx := context.Background()
	f.enqueued(t, audio("a"))
	hb := f.enqueued(t, audio("b"))
	f.enqueued(t, audio("c"))

	unset, err := domain.NewAudioRequest(audio("d"))
	require.NoError(t, err)
	require.NoError(t, f.records.Save(ctx, unset))
	f.engine.Forget(hb)

	items, err := f.svc.ListDownloads(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Request.ID)
	assert.Equal(t, "c", items[1].Request.ID)

	healed, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, healed)

	all, err := f.records.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)

	healed, err = f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, healed)
}

func TestDownloadService_EventsReachBusAndMailbox(t *testing.T) {
	f := newDownloadFixture(t, true)

	var published []domain.EventType
	f.deps.Bus.SubscribeAll(func(e domain.Event) { published = append(published, e.Type()) })

	f.enqueued(t, audio("a"))

	assert.Equal(t, []domain.EventType{domain.EventDownloadEnqueued, domain.EventMessage}, published)
	history := f.events.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.EventDownloadEnqueued, history[0].Type())
}

func TestContentIDForURL(t *testing.T) {
	a := ContentIDForURL("https://cdn.example/a.mp3")
	assert.Equal(t, a, ContentIDForURL("https://cdn.example/a.mp3"), "stable across calls")
	assert.NotEqual(t, a, ContentIDForURL("https://cdn.example/b.mp3"))
	assert.Len(t, a, 36)
}
