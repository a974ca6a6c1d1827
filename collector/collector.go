package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/listwatch/record"
	"github.com/pevans/listwatch/scoring"
	"github.com/pevans/listwatch/scraper"
	"github.com/pevans/listwatch/store"
	"github.com/pevans/listwatch/transport"
)

// ErrNoProfileURL is reported for records that cannot be enriched because
// they carry no detail page link.
var ErrNoProfileURL = errors.New("record has no profile url")

// Config holds everything a cycle needs besides its collaborators.
type Config struct {
	Search    Search
	Listing   scraper.ListingConfig
	Detail    scraper.DetailConfig
	Weights   scoring.Weights
	Threshold float64
}

// DefaultConfig returns the site defaults with a threshold of 3.
func DefaultConfig() Config {
	return Config{
		Search:    DefaultSearch(),
		Listing:   scraper.NewListingConfig(),
		Detail:    scraper.NewDetailConfig(),
		Weights:   scoring.DefaultWeights(),
		Threshold: 3,
	}
}

// Collector runs collection cycles against one store. Cycles never overlap:
// RunCycle holds a lock for its whole duration.
type Collector struct {
	store   *store.Store
	fetcher transport.Fetcher
	config  Config
	logger  *log.Logger
	now     func() time.Time

	mu sync.Mutex

	lastMu sync.RWMutex
	last   *CycleResult
}

// New creates a collector. The store should already be loaded.
func New(s *store.Store, fetcher transport.Fetcher, config Config, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		store:   s,
		fetcher: fetcher,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Store returns the store the collector writes to.
func (c *Collector) Store() *store.Store {
	return c.store
}

// Threshold returns the qualifying score.
func (c *Collector) Threshold() float64 {
	return c.config.Threshold
}

// LastResult returns the result of the most recent cycle, or nil before the
// first one.
func (c *Collector) LastResult() *CycleResult {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	return c.last
}

// RunCycle runs one collection cycle: it rechecks sub-threshold records,
// scans the listing pages for unseen records and persists the store. The
// returned result is non-nil even when an error is returned.
//
// Only a failed save or a cancelled context abort a cycle. Fetch and parse
// failures are logged, recorded in the result and skipped.
func (c *Collector) RunCycle(ctx context.Context) (*CycleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &CycleResult{
		ID:        uuid.New(),
		StartedAt: c.now(),
	}
	delta := newDeltaSet()

	c.logf(result, "INFO", "Cycle started (%d stored records)", c.store.Len())

	err := c.recheck(ctx, result, delta)
	if err == nil {
		err = c.scan(ctx, result, delta)
	}
	if err == nil {
		err = c.persist(ctx, result)
	}

	result.Delta = delta.list()
	result.FinishedAt = c.now()
	result.Err = err

	c.lastMu.Lock()
	c.last = result
	c.lastMu.Unlock()

	if err != nil {
		c.logf(result, "ERROR", "Cycle aborted: %v", err)
		return result, err
	}

	c.logf(result, "INFO", "Cycle finished in %v: %d added, %d updated, %d deleted, %d known, %d failed, %d qualified",
		result.Duration().Round(time.Millisecond), result.Added, result.Updated,
		result.Deleted, result.Known, result.Failed, len(result.Delta))
	return result, nil
}

// recheck re-fetches every stored record below the threshold. Records that
// cross the threshold join the delta set; records whose page is gone are
// deleted and the deletion is saved at once.
func (c *Collector) recheck(ctx context.Context, result *CycleResult, delta *deltaSet) error {
	for _, existing := range c.store.List() {
		if scoring.Qualifies(existing.Score, c.config.Threshold) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result.Rechecked++
		item := ItemResult{ID: existing.ID, Stage: StageRecheck}

		detail, err := c.fetchDetail(ctx, existing.ProfileURL)
		switch {
		case transport.IsGone(err):
			c.store.Delete(existing.ID)
			if err := c.store.Save(ctx); err != nil {
				return fmt.Errorf("failed to persist deletion of %s: %w", existing.ID, err)
			}
			c.logf(result, "INFO", "Record %s is gone, deleted", existing.ID)
			item.Outcome = OutcomeDeleted
			result.addItem(item)
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.logf(result, "WARN", "Failed to recheck record %s: %v", existing.ID, err)
			item.Outcome = OutcomeFailed
			item.Err = err
			result.addItem(item)
			continue
		}

		updated := record.Merge(existing, detail)
		updated.Score = scoring.Score(updated, priorFirstSeen(existing), c.now(), c.config.Weights)
		c.store.Upsert(updated)

		item.Outcome = OutcomeUpdated
		item.Score = updated.Score
		if scoring.Qualifies(updated.Score, c.config.Threshold) {
			item.Qualified = delta.add(updated)
			c.logf(result, "INFO", "Record %s crossed the threshold (%.2f -> %.2f)",
				existing.ID, existing.Score, updated.Score)
		}
		result.addItem(item)
	}
	return nil
}

// scan walks the listing pages and stores every unseen candidate. Known
// candidates are skipped without any request.
func (c *Collector) scan(ctx context.Context, result *CycleResult, delta *deltaSet) error {
	for page := 1; page <= c.config.Search.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		pageResult := PageResult{Page: page, URL: c.config.Search.PageURL(page)}

		candidates, err := c.fetchListing(ctx, pageResult.URL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.logf(result, "WARN", "Failed to load page %d: %v", page, err)
			pageResult.Err = err
			result.Pages = append(result.Pages, pageResult)
			continue
		}

		pageResult.Candidates = len(candidates)
		result.Pages = append(result.Pages, pageResult)
		c.logf(result, "INFO", "Page %d has %d candidates", page, len(candidates))

		for _, candidate := range candidates {
			if err := c.add(ctx, result, delta, candidate); err != nil {
				return err
			}
		}
	}
	return nil
}

// add handles one listing candidate. Only context cancellation is returned
// as an error.
func (c *Collector) add(ctx context.Context, result *CycleResult, delta *deltaSet, candidate record.Summary) error {
	item := ItemResult{ID: candidate.ID, Stage: StageScan}

	if c.store.Contains(candidate.ID) {
		item.Outcome = OutcomeKnown
		result.addItem(item)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	detail, err := c.fetchDetail(ctx, candidate.ProfileURL)
	switch {
	case transport.IsGone(err):
		c.logf(result, "INFO", "Candidate %s is gone, skipped", candidate.ID)
		item.Outcome = OutcomeGone
		item.Err = err
		result.addItem(item)
		return nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logf(result, "WARN", "Failed to enrich candidate %s: %v", candidate.ID, err)
		item.Outcome = OutcomeFailed
		item.Err = err
		result.addItem(item)
		return nil
	}

	// Millisecond precision is what every backend can store
	now := c.now().Truncate(time.Millisecond)
	r := record.Merge(record.New(candidate, now), detail)
	r.Score = scoring.Score(r, nil, now, c.config.Weights)
	c.store.Upsert(r)

	item.Outcome = OutcomeAdded
	item.Score = r.Score
	if scoring.Qualifies(r.Score, c.config.Threshold) {
		item.Qualified = delta.add(r)
	}
	c.logf(result, "INFO", "Added record %s (score %.2f)", r.ID, r.Score)
	result.addItem(item)
	return nil
}

// persist saves the store when the cycle changed it.
func (c *Collector) persist(ctx context.Context, result *CycleResult) error {
	if !c.store.Dirty() {
		return nil
	}
	if err := c.store.Save(ctx); err != nil {
		return fmt.Errorf("failed to persist records: %w", err)
	}
	result.Saved = true
	return nil
}

func (c *Collector) fetchListing(ctx context.Context, url string) ([]record.Summary, error) {
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return scraper.ParseListing(body, url, c.config.Listing)
}

func (c *Collector) fetchDetail(ctx context.Context, url string) (record.Detail, error) {
	if url == "" {
		return record.Detail{}, ErrNoProfileURL
	}
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return record.Detail{}, err
	}
	return scraper.ParseDetail(body, c.config.Detail)
}

// logf writes a log line tagged with the level and the short cycle id.
func (c *Collector) logf(result *CycleResult, level, format string, args ...any) {
	c.logger.Printf("%s: [%s] %s", level, result.ID.String()[:8], fmt.Sprintf(format, args...))
}

// priorFirstSeen returns a pointer to r's first-seen time, or nil when it
// was never set.
func priorFirstSeen(r record.Record) *time.Time {
	if r.FirstSeen.IsZero() {
		return nil
	}
	firstSeen := r.FirstSeen
	return &firstSeen
}
