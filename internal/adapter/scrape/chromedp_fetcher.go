package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/scraper-service/internal/repository"
)

// ChromedpFetcher renders pages in headless Chrome before handing the DOM
// to the extractor. Used for sites whose product data is filled in by
// JavaScript after load.
type ChromedpFetcher struct {
	allocatorPool *sync.Pool
	userAgent     string
}

// NewChromedpFetcher builds a fetcher backed by a pool of browser
// allocator contexts, pre-warmed to maxConcurrency.
func NewChromedpFetcher(maxConcurrency int, userAgent string) *ChromedpFetcher {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(userAgent),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	for i := 0; i < maxConcurrency; i++ {
		allocCtx := pool.Get().(context.Context)
		pool.Put(allocCtx)
	}

	return &ChromedpFetcher{allocatorPool: pool, userAgent: userAgent}
}

// Fetch navigates to the URL and returns the rendered outer HTML. The
// caller's context deadline bounds the whole navigation.
func (f *ChromedpFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	allocCtx := f.allocatorPool.Get().(context.Context)
	defer f.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Propagate the per-task deadline into the browser context.
	if deadline, ok := ctx.Deadline(); ok {
		taskCtx, cancel = context.WithDeadline(taskCtx, deadline)
		defer cancel()
	}

	var html string
	var finalURL string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", fmt.Errorf("%w: %s", repository.ErrFetchTimeout, url)
		}
		return nil, "", fmt.Errorf("rendering %s: %w", url, err)
	}
	if finalURL == "" {
		finalURL = url
	}
	return []byte(html), finalURL, nil
}
