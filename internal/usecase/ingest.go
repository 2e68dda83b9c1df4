package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
	"github.com/user/scraper-service/pkg/urlutil"
)

// RescrapePolicy decides what happens when a submitted URL's live row has
// already been scraped.
type RescrapePolicy string

const (
	// RescrapeSkip counts the URL as a duplicate.
	RescrapeSkip RescrapePolicy = "skip"
	// RescrapeRequeue resets the scraped row so it can be scraped again.
	RescrapeRequeue RescrapePolicy = "requeue"
)

// QueueManager defines the interface for submitting, reading and deleting
// queue entries.
type QueueManager interface {
	// IngestBatch normalizes and deduplicates the submitted URLs and
	// appends the surviving unique ones to the queue.
	IngestBatch(ctx context.Context, urls []string, category string, priority entity.Priority, notes string) (*entity.IngestReport, error)
	// List returns queue rows matching the filter.
	List(ctx context.Context, filter repository.QueueFilter) ([]*entity.SavedURL, error)
	// Get returns one queue row by id.
	Get(ctx context.Context, id string) (*entity.SavedURL, error)
	// Delete removes a row unconditionally, regardless of its state.
	Delete(ctx context.Context, id string) error
}

type queueManager struct {
	queueRepo repository.QueueRepository
	seenRepo  repository.SeenRepository
	policy    RescrapePolicy
	seenTTL   time.Duration
	logger    *zap.Logger
}

// NewQueueManager creates the queue manager use case.
func NewQueueManager(
	queueRepo repository.QueueRepository,
	seenRepo repository.SeenRepository,
	policy RescrapePolicy,
	seenTTL time.Duration,
	logger *zap.Logger,
) QueueManager {
	return &queueManager{
		queueRepo: queueRepo,
		seenRepo:  seenRepo,
		policy:    policy,
		seenTTL:   seenTTL,
		logger:    logger,
	}
}

// IngestBatch runs the submission pipeline: normalize, dedup within the
// batch, dedup against live rows, append survivors in one call. Malformed
// URLs are counted, never fatal. The store's unique constraint stays the
// authority; the seen-index only short-circuits the common case.
func (m *queueManager) IngestBatch(ctx context.Context, urls []string, category string, priority entity.Priority, notes string) (*entity.IngestReport, error) {
	report := &entity.IngestReport{Submitted: len(urls)}

	if category == "" {
		category = "general"
	}
	if priority == "" {
		priority = entity.PriorityMedium
	}

	// Normalize and dedup within the batch, first occurrence wins.
	type candidate struct {
		raw        string
		normalized string
		hash       string
	}
	inBatch := make(map[string]struct{})
	var candidates []candidate
	for _, raw := range urls {
		normalized, err := urlutil.Normalize(raw)
		if err != nil {
			report.Invalid++
			m.logger.Warn("discarding malformed url", zap.String("url", raw), zap.Error(err))
			continue
		}
		if _, dup := inBatch[normalized]; dup {
			continue
		}
		inBatch[normalized] = struct{}{}
		candidates = append(candidates, candidate{raw: raw, normalized: normalized, hash: urlutil.Hash(normalized)})
	}
	valid := report.Submitted - report.Invalid
	if len(candidates) == 0 {
		report.DuplicatesSkipped = valid
		return report, nil
	}

	// Split candidates on the seen-index. An index outage degrades to
	// checking everything against the store. Under the requeue policy
	// every candidate goes through the store check: a scraped row can
	// outlive its seen-index marker, and only the store knows whether a
	// URL must be reset rather than skipped.
	var seen map[string]bool
	if m.policy != RescrapeRequeue {
		hashes := make([]string, len(candidates))
		for i, c := range candidates {
			hashes[i] = c.hash
		}
		var err error
		seen, err = m.seenRepo.FilterSeen(ctx, hashes)
		if err != nil {
			m.logger.Warn("seen-index unavailable, falling back to store check", zap.Error(err))
			seen = nil
		}
	}

	var fresh, maybeExisting []candidate
	for _, c := range candidates {
		if seen != nil && !seen[c.hash] {
			fresh = append(fresh, c)
		} else {
			maybeExisting = append(maybeExisting, c)
		}
	}

	// Resolve index hits against the store: unscraped rows are plain
	// duplicates; scraped ones follow the re-scrape policy; index entries
	// without a live row are stale and the URL is treated as fresh.
	if len(maybeExisting) > 0 {
		normals := make([]string, len(maybeExisting))
		for i, c := range maybeExisting {
			normals[i] = c.normalized
		}
		existing, err := m.queueRepo.FindByNormalized(ctx, normals)
		if err != nil {
			return nil, fmt.Errorf("%w: checking existing urls: %v", repository.ErrStoreUnavailable, err)
		}
		byNormalized := make(map[string]*entity.SavedURL, len(existing))
		for _, row := range existing {
			byNormalized[row.NormalizedURL] = row
		}
		for _, c := range maybeExisting {
			row, ok := byNormalized[c.normalized]
			if !ok {
				fresh = append(fresh, c)
				continue
			}
			if row.Scraped && m.policy == RescrapeRequeue {
				requeued, err := m.queueRepo.Requeue(ctx, row.ID, category, priority, notes)
				if errors.Is(err, repository.ErrNotFound) {
					// Deleted or re-scraped between the read and the reset.
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("requeueing %s: %w", row.ID, err)
				}
				report.Inserted = append(report.Inserted, requeued)
				if err := m.seenRepo.MarkSeen(ctx, c.hash, m.seenTTL); err != nil {
					m.logger.Warn("failed to refresh seen marker", zap.String("url", c.normalized), zap.Error(err))
				}
			}
		}
	}

	if len(fresh) > 0 {
		now := time.Now().UTC()
		rows := make([]*entity.SavedURL, len(fresh))
		for i, c := range fresh {
			rows[i] = &entity.SavedURL{
				ID:            uuid.NewString(),
				RawURL:        c.raw,
				NormalizedURL: c.normalized,
				Category:      category,
				Priority:      priority,
				Notes:         notes,
				CreatedAt:     now,
			}
		}
		inserted, err := m.queueRepo.Append(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("%w: appending urls: %v", repository.ErrStoreUnavailable, err)
		}
		report.Inserted = append(report.Inserted, inserted...)

		for _, row := range inserted {
			if err := m.seenRepo.MarkSeen(ctx, urlutil.Hash(row.NormalizedURL), m.seenTTL); err != nil {
				m.logger.Warn("failed to mark url seen", zap.String("url", row.NormalizedURL), zap.Error(err))
			}
		}
	}

	report.DuplicatesSkipped = valid - len(report.Inserted)
	metrics.URLsIngestedTotal.Add(float64(len(report.Inserted)))

	m.logger.Info("batch ingested",
		zap.Int("submitted", report.Submitted),
		zap.Int("invalid", report.Invalid),
		zap.Int("inserted", len(report.Inserted)),
		zap.Int("duplicates_skipped", report.DuplicatesSkipped),
	)
	return report, nil
}

func (m *queueManager) List(ctx context.Context, filter repository.QueueFilter) ([]*entity.SavedURL, error) {
	return m.queueRepo.List(ctx, filter)
}

func (m *queueManager) Get(ctx context.Context, id string) (*entity.SavedURL, error) {
	return m.queueRepo.Get(ctx, id)
}

// Delete drops the row and its seen-index entry so the URL can be
// submitted again later.
func (m *queueManager) Delete(ctx context.Context, id string) error {
	row, err := m.queueRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.queueRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := m.seenRepo.RemoveSeen(ctx, urlutil.Hash(row.NormalizedURL)); err != nil {
		m.logger.Warn("failed to drop seen-index entry", zap.String("id", id), zap.Error(err))
	}
	return nil
}
