// Package pagination provides parallel fetching of paginated property
// queries. The data endpoint returns one page per request with the total
// page count in its envelope; this package fans the remaining pages out
// over a bounded worker pool so full-dataset pulls (exports, bulk analysis)
// don't run serially.
package pagination

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/propwatch/propwatch-go/pkg/api"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns a configuration that stays friendly to a small
// backend.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// PageFetcher is the subset of the API client the batch fetcher needs.
type PageFetcher interface {
	QueryProperties(ctx context.Context, query api.PropertyQuery) (*api.PropertyPage, error)
}

// pageResult carries one fetched page from a worker.
type pageResult struct {
	page  int
	items []api.Property
	err   error
}

// BatchFetcher pulls every page of a property query in parallel.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a batch fetcher.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll returns every listing matching the query, in page order. On a
// worker error the listings fetched so far are returned alongside the
// error, so callers can keep partial data.
func (bf *BatchFetcher) FetchAll(ctx context.Context, query api.PropertyQuery) ([]api.Property, error) {
	start := time.Now()

	// First page establishes the total page count.
	query.Page = 1
	first, err := bf.fetchPage(ctx, query, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	log.Info().
		Int("total_pages", first.TotalPages).
		Int("total_items", first.TotalItems).
		Msg("Starting parallel page fetch")

	if first.TotalPages <= 1 {
		return first.Items, nil
	}

	pages := map[int][]api.Property{1: first.Items}
	var pagesMu sync.Mutex

	pageQueue := make(chan int, first.TotalPages)
	results := make(chan pageResult, first.TotalPages)

	for page := 2; page <= first.TotalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	workers := bf.config.MaxConcurrency
	if workers > first.TotalPages-1 {
		workers = first.TotalPages - 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, query, pageQueue, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	fetched := 1
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		pagesMu.Lock()
		pages[result.page] = result.items
		fetched++
		pagesMu.Unlock()
	}

	items := flatten(pages)

	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Int("fetched_pages", fetched).
			Int("total_pages", first.TotalPages).
			Msg("Page fetch incomplete, returning partial results")
		return items, fmt.Errorf("partial data (%d/%d pages): %w", fetched, first.TotalPages, firstErr)
	}

	log.Info().
		Int("pages", fetched).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Page fetch complete")

	return items, nil
}

// worker drains the page queue until it is empty or the context ends.
func (bf *BatchFetcher) worker(ctx context.Context, query api.PropertyQuery, pageQueue <-chan int, results chan<- pageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for page := range pageQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageQuery := query
		resp, err := bf.fetchPage(ctx, pageQuery, page)
		if err != nil {
			results <- pageResult{page: page, err: err}
			continue
		}
		results <- pageResult{page: page, items: resp.Items}
	}
}

func (bf *BatchFetcher) fetchPage(ctx context.Context, query api.PropertyQuery, page int) (*api.PropertyPage, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	query.Page = page
	resp, err := bf.fetcher.QueryProperties(pageCtx, query)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return resp, nil
}

// flatten concatenates pages in ascending page order.
func flatten(pages map[int][]api.Property) []api.Property {
	order := make([]int, 0, len(pages))
	for page := range pages {
		order = append(order, page)
	}
	sort.Ints(order)

	var items []api.Property
	for _, page := range order {
		items = append(items, pages[page]...)
	}
	return items
}
