package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
	"github.com/user/scraper-service/pkg/urlutil"
)

// BatchRunner defines the interface for running one batch scrape over the
// selected queue rows.
type BatchRunner interface {
	// ScrapeSelected snapshots the selected-and-unscraped rows and
	// scrapes them on a bounded worker pool. Synchronous: returns once
	// every dispatched task has completed. ErrBatchInProgress when
	// another run holds the guard; ErrStoreUnavailable when the snapshot
	// read fails before any task is dispatched.
	ScrapeSelected(ctx context.Context) (*entity.BatchReport, error)
}

type orchestrator struct {
	queueRepo   repository.QueueRepository
	productRepo repository.ProductRepository
	scraper     repository.ScraperRepository
	workers     int
	taskTimeout time.Duration
	logger      *zap.Logger

	// Process-wide batch guard. Checked and set atomically so two
	// concurrent ScrapeSelected calls can never both dispatch.
	running atomic.Bool
}

// NewOrchestrator creates the batch scrape use case. workers bounds the
// number of concurrent scrape tasks; taskTimeout bounds each one.
func NewOrchestrator(
	queueRepo repository.QueueRepository,
	productRepo repository.ProductRepository,
	scraper repository.ScraperRepository,
	workers int,
	taskTimeout time.Duration,
	logger *zap.Logger,
) BatchRunner {
	return &orchestrator{
		queueRepo:   queueRepo,
		productRepo: productRepo,
		scraper:     scraper,
		workers:     workers,
		taskTimeout: taskTimeout,
		logger:      logger,
	}
}

func (o *orchestrator) ScrapeSelected(ctx context.Context) (*entity.BatchReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, repository.ErrBatchInProgress
	}
	defer o.running.Store(false)

	metrics.BatchInProgress.Set(1)
	defer metrics.BatchInProgress.Set(0)

	snapshot, err := o.queueRepo.ListSelectedUnscraped(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading batch snapshot: %v", repository.ErrStoreUnavailable, err)
	}

	report := &entity.BatchReport{
		StartedAt: time.Now().UTC(),
		Outcomes:  make([]entity.URLOutcome, len(snapshot)),
	}
	if len(snapshot) == 0 {
		return report, nil
	}

	o.logger.Info("starting batch scrape",
		zap.Int("urls", len(snapshot)),
		zap.Int("workers", o.workers),
	)

	// Once dispatched, a batch runs to completion; the per-task timeout
	// is the only bound. Detaching from the caller's cancellation keeps a
	// dropped request from orphaning half-written rows.
	runCtx := context.WithoutCancel(ctx)

	g := &errgroup.Group{}
	g.SetLimit(o.workers)
	for i, row := range snapshot {
		g.Go(func() error {
			report.Outcomes[i] = o.scrapeOne(runCtx, row)
			return nil
		})
	}
	// Tasks never return errors; failures land in their outcome slot, so
	// siblings are never cancelled.
	_ = g.Wait()

	for _, oc := range report.Outcomes {
		if oc.Status == entity.OutcomeScraped {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Duration = time.Since(report.StartedAt)

	o.logger.Info("batch scrape finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// scrapeOne runs a single task: scrape the page, store the product, mark
// the row. All failures are soft: they land in the outcome, never abort
// the batch.
func (o *orchestrator) scrapeOne(ctx context.Context, row *entity.SavedURL) entity.URLOutcome {
	outcome := entity.URLOutcome{ID: row.ID, URL: row.RawURL}

	taskCtx, cancel := context.WithTimeout(ctx, o.taskTimeout)
	defer cancel()

	start := time.Now()
	data, err := o.scraper.Scrape(taskCtx, row.RawURL)
	metrics.ScrapeDuration.WithLabelValues(urlutil.Host(row.RawURL)).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome.Status = entity.OutcomeFailed
		outcome.Error = err.Error()
		metrics.ScrapesTotal.WithLabelValues("failure", classifyScrapeError(err)).Inc()
		o.logger.Warn("scrape failed, row stays retryable",
			zap.String("id", row.ID),
			zap.String("url", row.RawURL),
			zap.Error(err),
		)
		return outcome
	}

	product := &entity.Product{
		ID:            uuid.NewString(),
		SourceURL:     row.RawURL,
		Name:          data.Name,
		Price:         data.Price,
		OriginalPrice: data.OriginalPrice,
		Description:   data.Description,
		Category:      row.Category,
		Source:        urlutil.Host(row.RawURL),
		Rating:        data.Rating,
		Tags:          data.Tags,
		ImageURL:      data.ImageURL,
		AffiliateURL:  data.AffiliateURL,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.productRepo.Insert(ctx, product); err != nil {
		outcome.Status = entity.OutcomeFailed
		outcome.Error = fmt.Sprintf("storing product: %v", err)
		metrics.ScrapesTotal.WithLabelValues("failure", "store").Inc()
		o.logger.Error("failed to store product", zap.String("url", row.RawURL), zap.Error(err))
		return outcome
	}

	err = o.queueRepo.MarkScraped(ctx, row.ID, product.ID, &data.Price)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// The row was deleted while its scrape was in flight. The write
		// is a no-op and the product stands as an independent record.
		o.logger.Info("row deleted mid-scrape, completion write skipped",
			zap.String("id", row.ID),
			zap.String("url", row.RawURL),
		)
	case err != nil:
		outcome.Status = entity.OutcomeFailed
		outcome.Error = fmt.Sprintf("marking row scraped: %v", err)
		metrics.ScrapesTotal.WithLabelValues("failure", "store").Inc()
		o.logger.Error("failed to mark row scraped", zap.String("id", row.ID), zap.Error(err))
		return outcome
	}

	outcome.Status = entity.OutcomeScraped
	outcome.ProductID = product.ID
	metrics.ScrapesTotal.WithLabelValues("success", "").Inc()
	return outcome
}

// classifyScrapeError buckets a scrape failure for the metrics label.
func classifyScrapeError(err error) string {
	var statusErr *repository.HTTPStatusError
	switch {
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.Is(err, repository.ErrParse):
		return "parse"
	default:
		return "other"
	}
}
