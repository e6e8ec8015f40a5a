package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/minjaeoh/quality-metrics-service/internal/core/domain"
	"github.com/minjaeoh/quality-metrics-service/internal/core/services/aggregate"
	"github.com/minjaeoh/quality-metrics-service/internal/core/services/ingest"
	"github.com/minjaeoh/quality-metrics-service/internal/core/services/metrics"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/cache"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/database/repositories"
	"github.com/minjaeoh/quality-metrics-service/internal/infrastructure/queue"
	"github.com/minjaeoh/quality-metrics-service/internal/pkg/config"
	apperrors "github.com/minjaeoh/quality-metrics-service/internal/pkg/errors"
)

// Enqueuer submits upload tasks to the ingestion queue
type Enqueuer interface {
	EnqueueUpload(r *http.Request, req ingest.UploadRequest) error
}

// QueueEnqueuer enqueues through the Asynq client
type QueueEnqueuer struct {
	Client *queue.AsynqClient
}

// EnqueueUpload implements Enqueuer
func (q *QueueEnqueuer) EnqueueUpload(r *http.Request, req ingest.UploadRequest) error {
	task, err := queue.NewUploadTask(req)
	if err != nil {
		return err
	}
	_, err = q.Client.EnqueueContext(r.Context(), task)
	return err
}

// Handler serves the upload entry points and the aggregation views
type Handler struct {
	uploads Enqueuer
	defects *repositories.DefectRepository
	quality *repositories.QualityRepository
	prices  *repositories.PriceRepository
	batches *repositories.BatchRepository
	qr      *repositories.QuickResponseRepository
	metrics *metrics.Service
	cache   *cache.RedisCache
	cfg     config.UploadConfig
	logger  *slog.Logger
}

// NewHandler creates the API handler. cache may be nil; views then compute
// on every request.
func NewHandler(
	uploads Enqueuer,
	defects *repositories.DefectRepository,
	quality *repositories.QualityRepository,
	prices *repositories.PriceRepository,
	batches *repositories.BatchRepository,
	qr *repositories.QuickResponseRepository,
	metricSvc *metrics.Service,
	snapshotCache *cache.RedisCache,
	cfg config.UploadConfig,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		uploads: uploads,
		defects: defects,
		quality: quality,
		prices:  prices,
		batches: batches,
		qr:      qr,
		metrics: metricSvc,
		cache:   snapshotCache,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register attaches all routes to the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/uploads/{domain}", h.handleUpload)
	mux.HandleFunc("GET /api/uploads", h.handleUploadHistory)

	mux.HandleFunc("GET /api/defects/{domain}/shares", h.handleDefectShares)
	mux.HandleFunc("GET /api/defects/{domain}/processes", h.handleDefectsByProcess)

	mux.HandleFunc("GET /api/quality/summary", h.handleQualitySummary)
	mux.HandleFunc("GET /api/quality/timeseries", h.handleQualityTimeSeries)

	mux.HandleFunc("GET /api/prices", h.handlePriceList)

	mux.HandleFunc("GET /api/metrics/{kind}", h.handleMetricList)
	mux.HandleFunc("POST /api/metrics", h.handleMetricSave)
	mux.HandleFunc("POST /api/metrics/annual-target", h.handleAnnualTarget)

	mux.HandleFunc("GET /api/quick-response", h.handleQuickResponseList)
	mux.HandleFunc("POST /api/quick-response", h.handleQuickResponseSave)
	mux.HandleFunc("GET /api/quick-response/{id}", h.handleQuickResponseGet)
	mux.HandleFunc("DELETE /api/quick-response/{id}", h.handleQuickResponseDelete)
}

// handleUpload stages the uploaded spreadsheet to the temp dir and enqueues
// an ingestion task. Processing is asynchronous; clients poll upload history
// for the resulting batch.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	domainName := r.PathValue("domain")

	maxBytes := h.cfg.MaxFileSizeMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, apperrors.FileTooLarge(h.cfg.MaxFileSizeMB))
			return
		}
		h.writeError(w, apperrors.BadRequest("malformed multipart request body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, apperrors.BadRequest("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	if err := os.MkdirAll(h.cfg.TempDir, 0o755); err != nil {
		h.writeError(w, apperrors.InternalWrap(err, "failed to create temp dir"))
		return
	}

	stagedPath := filepath.Join(h.cfg.TempDir,
		fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(header.Filename)))
	staged, err := os.Create(stagedPath)
	if err != nil {
		h.writeError(w, apperrors.InternalWrap(err, "failed to stage upload"))
		return
	}
	if _, err := io.Copy(staged, file); err != nil {
		staged.Close()
		os.Remove(stagedPath)
		h.writeError(w, apperrors.InternalWrap(err, "failed to stage upload"))
		return
	}
	staged.Close()

	req := ingest.UploadRequest{
		Domain:      domainName,
		FilePath:    stagedPath,
		Filename:    header.Filename,
		TargetMonth: r.FormValue("target_month"),
	}

	if err := h.uploads.EnqueueUpload(r, req); err != nil {
		os.Remove(stagedPath)
		h.writeError(w, apperrors.Wrap(err, apperrors.ErrCodeQueueError,
			"failed to enqueue upload", http.StatusInternalServerError))
		return
	}

	h.logger.Info("upload accepted",
		slog.String("domain", domainName),
		slog.String("filename", header.Filename),
		slog.String("target_month", req.TargetMonth))

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"domain":       domainName,
		"filename":     header.Filename,
		"target_month": req.TargetMonth,
	})
}

func (h *Handler) handleUploadHistory(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batches.List(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) handleDefectShares(w http.ResponseWriter, r *http.Request) {
	dom, ok := domain.DefectDomainByName(r.PathValue("domain"))
	if !ok {
		h.writeError(w, apperrors.UnknownDomain(r.PathValue("domain")))
		return
	}

	topN := 0
	if raw := r.URL.Query().Get("top"); raw != "" {
		topN, _ = strconv.Atoi(raw)
	}

	view := fmt.Sprintf("shares:%d", topN)
	if topN > 0 {
		var cached []aggregate.ParetoPoint
		if h.fromCache(r, dom.Name, view, &cached) {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	} else {
		var cached []aggregate.TypeShare
		if h.fromCache(r, dom.Name, view, &cached) {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	records, err := h.defects.List(r.Context(), dom)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if n := aggregate.InconsistentSlotRecords(records); n > 0 {
		h.logger.Warn("positional slots diverge from detail maps",
			slog.String("domain", dom.Name),
			slog.Int("record_count", n))
	}

	shares := aggregate.DefectTypeShares(records)
	if topN > 0 {
		pareto := aggregate.ParetoSeries(shares, topN)
		h.toCache(r, dom.Name, view, pareto)
		h.writeJSON(w, http.StatusOK, pareto)
		return
	}

	h.toCache(r, dom.Name, view, shares)
	h.writeJSON(w, http.StatusOK, shares)
}

func (h *Handler) handleDefectsByProcess(w http.ResponseWriter, r *http.Request) {
	dom, ok := domain.DefectDomainByName(r.PathValue("domain"))
	if !ok {
		h.writeError(w, apperrors.UnknownDomain(r.PathValue("domain")))
		return
	}

	var cached []aggregate.ProcessBreakdown
	if h.fromCache(r, dom.Name, "processes", &cached) {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	records, err := h.defects.List(r.Context(), dom)
	if err != nil {
		h.writeError(w, err)
		return
	}

	breakdown := aggregate.ByProcess(records)
	h.toCache(r, dom.Name, "processes", breakdown)
	h.writeJSON(w, http.StatusOK, breakdown)
}

var qualityKeyFuncs = map[string]aggregate.KeyFunc{
	"partType":     aggregate.ByPartType,
	"customer":     aggregate.ByCustomer,
	"vehicleModel": aggregate.ByVehicleModel,
	"productName":  aggregate.ByProductName,
}

func (h *Handler) handleQualitySummary(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	keyFn, ok := qualityKeyFuncs[by]
	if !ok {
		h.writeError(w, apperrors.BadRequest("query parameter \"by\" must be one of partType, customer, vehicleModel, productName"))
		return
	}

	view := "summary:" + by
	var cached []aggregate.GroupSummary
	if h.fromCache(r, ingest.DomainProcessQuality, view, &cached) {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	records, err := h.quality.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	summary := aggregate.GroupBy(records, keyFn)
	h.toCache(r, ingest.DomainProcessQuality, view, summary)
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleQualityTimeSeries(w http.ResponseWriter, r *http.Request) {
	var cached []aggregate.TimePoint
	if h.fromCache(r, ingest.DomainProcessQuality, "timeseries", &cached) {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	records, err := h.quality.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	series := aggregate.TimeSeries(records)
	h.toCache(r, ingest.DomainProcessQuality, "timeseries", series)
	h.writeJSON(w, http.StatusOK, series)
}

func (h *Handler) handlePriceList(w http.ResponseWriter, r *http.Request) {
	records, err := h.prices.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleMetricList(w http.ResponseWriter, r *http.Request) {
	kind := domain.MetricKind(r.PathValue("kind"))
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))

	if !domain.IsValidMetricKind(kind) {
		h.writeError(w, apperrors.BadRequest("unknown metric kind: "+string(kind)))
		return
	}

	rows, err := h.metrics.List(r.Context(), kind, year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleMetricSave(w http.ResponseWriter, r *http.Request) {
	var entries []metrics.MetricEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		h.writeError(w, apperrors.BadRequest("request body must be a JSON array of metric entries"))
		return
	}

	if err := h.metrics.Save(r.Context(), entries); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"saved": len(entries)})
}

func (h *Handler) handleAnnualTarget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind      domain.MetricKind `json:"kind"`
		Dimension string            `json:"dimension"`
		Year      int               `json:"year"`
		Target    float64           `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.BadRequest("invalid annual target body"))
		return
	}

	if err := h.metrics.SaveAnnualTargets(r.Context(), body.Kind, body.Dimension, body.Year, body.Target); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"saved": 12})
}

func (h *Handler) handleQuickResponseList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.qr.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleQuickResponseSave(w http.ResponseWriter, r *http.Request) {
	var entry domain.QuickResponseEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		h.writeError(w, apperrors.BadRequest("invalid quick response body"))
		return
	}

	if err := h.qr.Save(r.Context(), &entry); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleQuickResponseGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.BadRequest("invalid quick response id"))
		return
	}

	entry, err := h.qr.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleQuickResponseDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, apperrors.BadRequest("invalid quick response id"))
		return
	}

	if err := h.qr.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fromCache loads a cached view into dest, false on miss or error
func (h *Handler) fromCache(r *http.Request, domainName, view string, dest interface{}) bool {
	if h.cache == nil {
		return false
	}
	err := h.cache.GetSnapshot(r.Context(), domainName, view, dest)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		h.logger.Warn("snapshot read failed",
			slog.String("domain", domainName),
			slog.String("view", view),
			slog.Any("error", err))
	}
	return err == nil
}

func (h *Handler) toCache(r *http.Request, domainName, view string, value interface{}) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetSnapshot(r.Context(), domainName, view, value); err != nil {
		h.logger.Warn("snapshot write failed",
			slog.String("domain", domainName),
			slog.String("view", view),
			slog.Any("error", err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		appErr = apperrors.InternalWrap(err, "unexpected error")
	}

	h.logger.Error("request failed",
		slog.String("code", string(appErr.Code)),
		slog.Any("error", err))

	h.writeJSON(w, appErr.StatusCode, appErr)
}
