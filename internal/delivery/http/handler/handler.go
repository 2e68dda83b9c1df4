package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/internal/usecase"
)

// Pinger reports whether a backing store is reachable, for the health
// endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the use cases behind the HTTP API.
type Handler struct {
	queue     usecase.QueueManager
	selection usecase.SelectionManager
	batch     usecase.BatchRunner
	stats     usecase.StatsReader
	products  usecase.ProductReader
	db        Pinger
	cache     Pinger
	logger    *zap.Logger
}

// New creates the API handler. db and cache may be nil in tests; the
// health endpoint then skips them.
func New(
	queue usecase.QueueManager,
	selection usecase.SelectionManager,
	batch usecase.BatchRunner,
	stats usecase.StatsReader,
	products usecase.ProductReader,
	db, cache Pinger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		queue:     queue,
		selection: selection,
		batch:     batch,
		stats:     stats,
		products:  products,
		db:        db,
		cache:     cache,
		logger:    logger,
	}
}

// BulkSubmit handles POST /api/queue/urls.
func (h *Handler) BulkSubmit(w http.ResponseWriter, r *http.Request) {
	var req bulkSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		h.writeError(w, http.StatusBadRequest, "urls list cannot be empty")
		return
	}
	priority := entity.Priority(req.Priority)
	if req.Priority != "" && !entity.ValidPriority(priority) {
		h.writeError(w, http.StatusBadRequest, "priority must be high, medium or low")
		return
	}

	report, err := h.queue.IngestBatch(r.Context(), req.URLs, req.Category, priority, req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, bulkSubmitResponse{
		Inserted:          toSavedURLResponses(report.Inserted),
		Submitted:         report.Submitted,
		Invalid:           report.Invalid,
		DuplicatesSkipped: report.DuplicatesSkipped,
	})
}

// ListURLs handles GET /api/queue/urls.
func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.queueFilterFromQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.queue.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSavedURLResponses(rows))
}

// GetURL handles GET /api/queue/urls/{id}.
func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	row, err := h.queue.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSavedURLResponse(row))
}

// DeleteURL handles DELETE /api/queue/urls/{id}. Unconditional: the row
// goes away whatever its state.
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.queue.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetSelection handles PATCH /api/queue/urls/{id}/selection.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Selected == nil {
		h.writeError(w, http.StatusBadRequest, "body must carry a selected boolean")
		return
	}
	row, err := h.selection.SetSelection(r.Context(), id, *req.Selected)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSavedURLResponse(row))
}

// SelectAll handles POST /api/queue/selection/select-all.
func (h *Handler) SelectAll(w http.ResponseWriter, r *http.Request) {
	updated, err := h.selection.SelectAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bulkSelectionResponse{Updated: updated})
}

// UnselectAll handles POST /api/queue/selection/unselect-all.
func (h *Handler) UnselectAll(w http.ResponseWriter, r *http.Request) {
	updated, err := h.selection.UnselectAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, bulkSelectionResponse{Updated: updated})
}

// ScrapeSelected handles POST /api/queue/scrape. Synchronous: the
// response carries the complete batch report.
func (h *Handler) ScrapeSelected(w http.ResponseWriter, r *http.Request) {
	report, err := h.batch.ScrapeSelected(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBatchReportResponse(report))
}

// Stats handles GET /api/queue/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.stats.Summary(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toStatsResponse(summary))
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Health handles GET /api/health: pings the backing stores.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"postgres": "healthy", "redis": "healthy"}
	healthy := true
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			status["postgres"] = "unhealthy"
			healthy = false
			h.logger.Error("health check failed for postgres", zap.Error(err))
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			status["redis"] = "unhealthy"
			healthy = false
			h.logger.Error("health check failed for redis", zap.Error(err))
		}
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

func (h *Handler) queueFilterFromQuery(w http.ResponseWriter, r *http.Request) (repository.QueueFilter, bool) {
	q := r.URL.Query()
	filter := repository.QueueFilter{Category: q.Get("category")}

	if raw := q.Get("priority"); raw != "" {
		p := entity.Priority(raw)
		if !entity.ValidPriority(p) {
			h.writeError(w, http.StatusBadRequest, "priority must be high, medium or low")
			return filter, false
		}
		filter.Priority = p
	}
	for name, dst := range map[string]**bool{"selected": &filter.Selected, "scraped": &filter.Scraped} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				h.writeError(w, http.StatusBadRequest, name+" must be a boolean")
				return filter, false
			}
			*dst = &v
		}
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				h.writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
				return filter, false
			}
			*dst = v
		}
	}
	return filter, true
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.writeError(w, http.StatusBadRequest, "id must be a uuid")
		return "", false
	}
	return id, true
}

// respondError maps classified errors onto status codes. Unclassified
// errors are logged and surface as a plain 500.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrRowScraped):
		h.writeError(w, http.StatusConflict, "url already scraped")
	case errors.Is(err, repository.ErrBatchInProgress):
		h.writeError(w, http.StatusConflict, "a batch scrape is already in progress")
	case errors.Is(err, repository.ErrStoreUnavailable):
		h.logger.Error("store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}
