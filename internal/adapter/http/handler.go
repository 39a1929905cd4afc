// Package httpapi exposes the download and queue services as a JSON control API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
	"github.com/tejashwikalptaru/offtune/internal/service"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Handler serves the control API.
type Handler struct {
	logger    *slog.Logger
	downloads *service.DownloadService
	prefs     *service.PreferenceService
	queue     *service.QueueService
	events    ports.Mailbox[domain.Event]
	newIDs    ports.Mailbox[string]
}

// NewHandler creates the control API handler.
func NewHandler(
	logger *slog.Logger,
	downloads *service.DownloadService,
	prefs *service.PreferenceService,
	queue *service.QueueService,
	events ports.Mailbox[domain.Event],
	newIDs ports.Mailbox[string],
) *Handler {
	return &Handler{
		logger:    logger.With(slog.String("component", "http")),
		downloads: downloads,
		prefs:     prefs,
		queue:     queue,
		events:    events,
		newIDs:    newIDs,
	}
}

// Routes returns the router of the control API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/downloads", func(r chi.Router) {
		r.Post("/", h.Enqueue)
		r.Get("/", h.ListDownloads)
		r.Get("/{id}", h.GetDownload)
		r.Post("/{id}/{action}", h.DownloadAction)
		r.Delete("/{id}", h.DeleteDownload)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.GetSettings)
		r.Delete("/", h.ResetSettings)
		r.Put("/root", h.SetRoot)
		r.Delete("/root", h.ResetRoot)
		r.Put("/grouping", h.SetGrouping)
	})

	r.Get("/events", h.EventHistory)
	r.Get("/events/latest", h.LatestEvent)
	r.Get("/events/new-downloads", h.NewDownload)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", h.GetQueue)
		r.Put("/shuffle", h.SetShuffle)
		r.Post("/downloads", h.PlayDownloads)
		r.Post("/playlists/{id}", h.PlayPlaylist)
		r.Delete("/items/{id}", h.RemoveFromQueue)
		r.Post("/swap", h.SwapQueue)
		r.Put("/current", h.SetCurrent)
		r.Post("/now-playing", h.NowPlaying)
		r.Get("/next", h.NextInQueue)
		r.Get("/previous", h.PreviousInQueue)
	})

	r.Route("/playlists", func(r chi.Router) {
		r.Get("/", h.ListPlaylists)
		r.Post("/", h.SavePlaylist)
		r.Delete("/{id}", h.DeletePlaylist)
	})

	return r
}

// Enqueue handles POST /downloads.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		if req.SourceURL == "" {
			h.writeError(w, http.StatusBadRequest, errors.New("id or source_url is required"))
			return
		}
		req.ID = service.ContentIDForURL(req.SourceURL)
	}

	outcome, err := h.downloads.Enqueue(r.Context(), req.content())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, outcomeStatus(outcome), EnqueueResponse{ID: req.ID, Outcome: outcome.String()})
}

func outcomeStatus(outcome domain.EnqueueOutcome) int {
	switch outcome {
	case domain.OutcomeQueued:
		return http.StatusCreated
	case domain.OutcomePending:
		return http.StatusAccepted
	case domain.OutcomeInvalidURL:
		return http.StatusUnprocessableEntity
	case domain.OutcomeEngineFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// ListDownloads handles GET /downloads.
func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	items, err := h.downloads.ListDownloads(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]DownloadItem, 0, len(items))
	for _, item := range items {
		out = append(out, toDownloadItem(item))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetDownload handles GET /downloads/{id}?status=completed,paused.
func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	var allowed []domain.DownloadStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			status := domain.ParseDownloadStatus(name)
			if status == domain.DownloadStatusUnknown {
				h.writeError(w, http.StatusBadRequest, errors.New("unknown status "+strconv.Quote(name)))
				return
			}
			allowed = append(allowed, status)
		}
	}

	item, err := h.downloads.GetAudioDownload(r.Context(), chi.URLParam(r, "id"), allowed...)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toDownloadItem(item))
}

// DownloadAction handles POST /downloads/{id}/{pause|resume|cancel|retry}.
func (h *Handler) DownloadAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "pause":
		err = h.downloads.Pause(r.Context(), id)
	case "resume":
		err = h.downloads.Resume(r.Context(), id)
	case "cancel":
		err = h.downloads.Cancel(r.Context(), id)
	case "retry":
		err = h.downloads.Retry(r.Context(), id)
	default:
		h.writeError(w, http.StatusNotFound, errors.New("unknown action "+action))
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDownload handles DELETE /downloads/{id}?erase=true.
// Without erase the file is kept on disk.
func (h *Handler) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	erase := false
	if raw := r.URL.Query().Get("erase"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, errors.New("erase must be a boolean"))
			return
		}
		erase = v
	}

	id := chi.URLParam(r, "id")
	var err error
	if erase {
		err = h.downloads.Delete(r.Context(), id)
	} else {
		err = h.downloads.Remove(r.Context(), id)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.prefs.GetAllPreferences())
}

// ResetSettings handles DELETE /settings. The downloads root is forgotten too.
func (h *Handler) ResetSettings(w http.ResponseWriter, _ *http.Request) {
	if err := h.prefs.ResetToDefaults(); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRoot handles PUT /settings/root.
func (h *Handler) SetRoot(w http.ResponseWriter, r *http.Request) {
	var req RootRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.downloads.SetDownloadsRoot(r.Context(), req.URI); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetRoot handles DELETE /settings/root.
func (h *Handler) ResetRoot(w http.ResponseWriter, _ *http.Request) {
	if err := h.downloads.ResetDownloadsRoot(); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetGrouping handles PUT /settings/grouping.
func (h *Handler) SetGrouping(w http.ResponseWriter, r *http.Request) {
	var req GroupingRequest
	if !h.decode(w, r, &req) {
		return
	}
	grouping, err := domain.ParseFolderGrouping(req.Grouping)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.prefs.SetFolderGrouping(grouping); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LatestEvent handles GET /events/latest. It takes the pending one-shot event,
// so a second call returns 204 until something new is emitted.
func (h *Handler) LatestEvent(w http.ResponseWriter, _ *http.Request) {
	event, ok := h.events.Take()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, toEventView(event))
}

// NewDownload handles GET /events/new-downloads. It takes the id of the latest
// newly queued download; 204 when none was queued since the last call.
func (h *Handler) NewDownload(w http.ResponseWriter, _ *http.Request) {
	id, ok := h.newIDs.Take()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, ContentResponse{ID: id})
}

// EventHistory handles GET /events.
func (h *Handler) EventHistory(w http.ResponseWriter, _ *http.Request) {
	history := h.events.History()
	out := make([]EventView, 0, len(history))
	for _, e := range history {
		out = append(out, toEventView(e))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetQueue handles GET /queue.
func (h *Handler) GetQueue(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// SetShuffle handles PUT /queue/shuffle.
func (h *Handler) SetShuffle(w http.ResponseWriter, r *http.Request) {
	var req ShuffleRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.queue.Shuffle(req.On)
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// PlayDownloads handles POST /queue/downloads?current=<id>.
func (h *Handler) PlayDownloads(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.PlayDownloads(r.Context(), r.URL.Query().Get("current")); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// PlayPlaylist handles POST /queue/playlists/{id}.
func (h *Handler) PlayPlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.PlayPlaylist(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// RemoveFromQueue handles DELETE /queue/items/{id}.
func (h *Handler) RemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.Remove(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// SwapQueue handles POST /queue/swap.
func (h *Handler) SwapQueue(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.queue.Swap(req.From, req.To); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// SetCurrent handles PUT /queue/current.
func (h *Handler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.queue.SetCurrent(req.ID); err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toQueueView(h.queue.State()))
}

// NowPlaying handles POST /queue/now-playing, sent by the media session when it
// moves to another item on its own.
func (h *Handler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	h.queue.ReportNowPlaying(req.ID)
	w.WriteHeader(http.StatusNoContent)
}

// NextInQueue handles GET /queue/next. 204 at the end of the queue.
func (h *Handler) NextInQueue(w http.ResponseWriter, _ *http.Request) {
	id, ok := h.queue.NextID()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, ContentResponse{ID: id})
}

// PreviousInQueue handles GET /queue/previous?elapsed=4s. elapsed is how far
// playback got into the current item.
func (h *Handler) PreviousInQueue(w http.ResponseWriter, r *http.Request) {
	var elapsed time.Duration
	if raw := r.URL.Query().Get("elapsed"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			h.writeError(w, http.StatusBadRequest, errors.New("elapsed must be a duration such as 4s"))
			return
		}
		elapsed = d
	}
	id, ok := h.queue.PreviousID(elapsed)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.writeJSON(w, http.StatusOK, ContentResponse{ID: id})
}

// ListPlaylists handles GET /playlists.
func (h *Handler) ListPlaylists(w http.ResponseWriter, _ *http.Request) {
	playlists, err := h.queue.Playlists()
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]PlaylistView, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, toPlaylistView(p))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// SavePlaylist handles POST /playlists, saving the current queue order.
func (h *Handler) SavePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	playlist, err := h.queue.SaveAsPlaylist(req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toPlaylistView(playlist))
}

// DeletePlaylist handles DELETE /playlists/{id}.
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.queue.DeletePlaylist(chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

// fail maps service errors to status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrDownloadNotFound),
		errors.Is(err, domain.ErrPlaylistNotFound),
		errors.Is(err, domain.ErrTrackNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrRootNotSet), errors.Is(err, domain.ErrRootInvalid):
		h.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrQueueEmpty):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidIndex):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", slog.Any("error", err))
	}
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
