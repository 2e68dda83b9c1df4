package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

// fakeQueueRepo is an in-memory QueueRepository with the same semantics
// as the postgres adapter, including the unique normalized_url rule.
type fakeQueueRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.SavedURL

	// failAll makes every call fail, simulating a store outage.
	failAll bool
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{rows: make(map[string]*entity.SavedURL)}
}

var errStoreDown = errors.New("connection refused")

func (f *fakeQueueRepo) check() error {
	if f.failAll {
		return errStoreDown
	}
	return nil
}

func (f *fakeQueueRepo) Append(ctx context.Context, rows []*entity.SavedURL) ([]*entity.SavedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	live := make(map[string]struct{})
	for _, r := range f.rows {
		live[r.NormalizedURL] = struct{}{}
	}
	var inserted []*entity.SavedURL
	for _, row := range rows {
		if _, dup := live[row.NormalizedURL]; dup {
			continue
		}
		live[row.NormalizedURL] = struct{}{}
		cp := *row
		f.rows[row.ID] = &cp
		inserted = append(inserted, row)
	}
	return inserted, nil
}

func (f *fakeQueueRepo) Get(ctx context.Context, id string) (*entity.SavedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeQueueRepo) List(ctx context.Context, filter repository.QueueFilter) ([]*entity.SavedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	var out []*entity.SavedURL
	for _, row := range f.rows {
		if filter.Category != "" && row.Category != filter.Category {
			continue
		}
		if filter.Priority != "" && row.Priority != filter.Priority {
			continue
		}
		if filter.Selected != nil && row.Selected != *filter.Selected {
			continue
		}
		if filter.Scraped != nil && row.Scraped != *filter.Scraped {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeQueueRepo) FindByNormalized(ctx context.Context, normalized []string) ([]*entity.SavedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(normalized))
	for _, n := range normalized {
		want[n] = struct{}{}
	}
	var out []*entity.SavedURL
	for _, row := range f.rows {
		if _, ok := want[row.NormalizedURL]; ok {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) UpdateSelection(ctx context.Context, id string, selected bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	row, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if row.Scraped {
		return repository.ErrRowScraped
	}
	row.Selected = selected
	return nil
}

func (f *fakeQueueRepo) SelectAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return 0, err
	}
	var n int64
	for _, row := range f.rows {
		if !row.Scraped && !row.Selected {
			row.Selected = true
			n++
		}
	}
	return n, nil
}

func (f *fakeQueueRepo) UnselectAll(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return 0, err
	}
	var n int64
	for _, row := range f.rows {
		if row.Selected {
			row.Selected = false
			n++
		}
	}
	return n, nil
}

func (f *fakeQueueRepo) ListSelectedUnscraped(ctx context.Context) ([]*entity.SavedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	var out []*entity.SavedURL
	for _, row := range f.rows {
		if row.Selected && !row.Scraped {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeQueueRepo) MarkScraped(ctx context.Context, id, productID string, estimatedPrice *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	row, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	row.Scraped = true
	row.Selected = false
	row.LinkedProductID = &productID
	row.EstimatedPrice = estimatedPrice
	row.ScrapedAt = &now
	return nil
}

func (f *fakeQueueRepo) Requeue(ctx context.Context, id, category string, priority entity.Priority, notes string) (*entity.SavedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	row, ok := f.rows[id]
	if !ok || !row.Scraped {
		return nil, repository.ErrNotFound
	}
	row.Scraped = false
	row.Selected = false
	row.Category = category
	row.Priority = priority
	row.Notes = notes
	row.LinkedProductID = nil
	row.EstimatedPrice = nil
	row.ScrapedAt = nil
	cp := *row
	return &cp, nil
}

func (f *fakeQueueRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return err
	}
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeQueueRepo) GroupCounts(ctx context.Context) ([]entity.QueueGroupCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(); err != nil {
		return nil, err
	}
	type key struct {
		category string
		priority entity.Priority
		selected bool
		scraped  bool
	}
	counts := make(map[key]int64)
	for _, row := range f.rows {
		counts[key{row.Category, row.Priority, row.Selected, row.Scraped}]++
	}
	var out []entity.QueueGroupCount
	for k, n := range counts {
		out = append(out, entity.QueueGroupCount{
			Category: k.category,
			Priority: k.priority,
			Selected: k.selected,
			Scraped:  k.scraped,
			Count:    n,
		})
	}
	return out, nil
}

// fakeProductRepo is an in-memory ProductRepository.
type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[string]*entity.Product)}
}

func (f *fakeProductRepo) Insert(ctx context.Context, product *entity.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeProductRepo) Get(ctx context.Context, id string) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Product
	for _, p := range f.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeProductRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.products)), nil
}

// fakeSeenRepo is an in-memory SeenRepository. failing simulates a Redis
// outage: the ingest path must degrade to the store check.
type fakeSeenRepo struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	failing bool
}

func newFakeSeenRepo() *fakeSeenRepo {
	return &fakeSeenRepo{seen: make(map[string]struct{})}
}

func (f *fakeSeenRepo) MarkSeen(ctx context.Context, hash string, expiry time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	f.seen[hash] = struct{}{}
	return nil
}

func (f *fakeSeenRepo) FilterSeen(ctx context.Context, hashes []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errStoreDown
	}
	out := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		_, ok := f.seen[h]
		out[h] = ok
	}
	return out, nil
}

func (f *fakeSeenRepo) RemoveSeen(ctx context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errStoreDown
	}
	delete(f.seen, hash)
	return nil
}

// stubScraper returns canned outcomes per URL. URLs without an entry
// succeed with a generic product. blockCh, when set, holds every call
// until the channel is closed, so tests can observe an in-flight batch.
type stubScraper struct {
	mu       sync.Mutex
	failures map[string]error
	calls    int
	blockCh  chan struct{}
	started  chan struct{} // receives one send per call that begins
}

func newStubScraper() *stubScraper {
	return &stubScraper{failures: make(map[string]error)}
}

func (s *stubScraper) Scrape(ctx context.Context, rawURL string) (*entity.ProductData, error) {
	s.mu.Lock()
	s.calls++
	failure := s.failures[rawURL]
	blockCh := s.blockCh
	started := s.started
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if blockCh != nil {
		select {
		case <-blockCh:
		case <-ctx.Done():
			return nil, repository.ErrFetchTimeout
		}
	}
	if failure != nil {
		return nil, failure
	}
	return &entity.ProductData{
		Name:         "Product for " + rawURL,
		Price:        9.99,
		AffiliateURL: rawURL,
	}, nil
}
