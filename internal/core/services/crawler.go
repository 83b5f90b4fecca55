package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driving"
	"github.com/custodia-labs/codeharvest/internal/logger"
)

// Ensure Crawler implements the interface.
var _ driving.Crawler = (*Crawler)(nil)

// CrawlerConfig bounds a crawl run.
type CrawlerConfig struct {
	// Rules are applied to blobs before they are fetched.
	Rules domain.FileRules

	// MaxFilesPerRepo caps fetched files per repository. Zero means no cap.
	MaxFilesPerRepo int

	// Concurrency is both the number of repositories crawled at once and
	// the number of blob fetches in flight.
	Concurrency int
}

// CrawlerConfigFromSettings derives the crawl bounds from settings.
func CrawlerConfigFromSettings(s domain.Settings) CrawlerConfig {
	return CrawlerConfig{
		Rules:           s.FileRules(),
		MaxFilesPerRepo: s.MaxFilesPerRepo,
		Concurrency:     s.Concurrency,
	}
}

// Crawler walks search results, lists each accepted repository and fetches
// the blobs that pass the file rules into the intermediate store.
//
// Repositories and blobs are handled by a bounded pool; the fetch client's
// rate limiter is the only global throttle. A single goroutine owns the
// store, so records are appended whole and one at a time.
type Crawler struct {
	client driven.FetchClient
	store  driven.RawRecordWriter
	cfg    CrawlerConfig
	now    func() time.Time
	log    *zerolog.Logger
}

// NewCrawler creates a crawler that writes into store.
func NewCrawler(client driven.FetchClient, store driven.RawRecordWriter, cfg CrawlerConfig) *Crawler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Crawler{
		client: client,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		log:    logger.Named("crawler"),
	}
}

// crawlStats holds counters shared between pool workers.
type crawlStats struct {
	searchPages     atomic.Int64
	reposSeen       atomic.Int64
	reposAccepted   atomic.Int64
	reposSkipped    atomic.Int64
	blobsListed     atomic.Int64
	blobsSkipped    atomic.Int64
	blobsFetched    atomic.Int64
	recordsWritten  atomic.Int64
	duplicatePaths  atomic.Int64
	fatalErrors     atomic.Int64
	transientErrors atomic.Int64
	rateLimitErrors atomic.Int64
	truncatedTrees  atomic.Int64
}

func (s *crawlStats) summary() *domain.CrawlSummary {
	return &domain.CrawlSummary{
		SearchPages:     s.searchPages.Load(),
		ReposSeen:       s.reposSeen.Load(),
		ReposAccepted:   s.reposAccepted.Load(),
		ReposSkipped:    s.reposSkipped.Load(),
		BlobsListed:     s.blobsListed.Load(),
		BlobsSkipped:    s.blobsSkipped.Load(),
		BlobsFetched:    s.blobsFetched.Load(),
		RecordsWritten:  s.recordsWritten.Load(),
		DuplicatePaths:  s.duplicatePaths.Load(),
		FatalErrors:     s.fatalErrors.Load(),
		TransientErrors: s.transientErrors.Load(),
		RateLimitErrors: s.rateLimitErrors.Load(),
		TruncatedTrees:  s.truncatedTrees.Load(),
	}
}

// pathSet is the run-wide set of (repo_url, path) pairs already scheduled.
type pathSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (s *pathSet) add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// crawlRun is the state of one Crawl call.
type crawlRun struct {
	*Crawler
	stats   crawlStats
	paths   pathSet
	slots   *semaphore.Weighted
	records chan domain.RawRecord
}

// Crawl runs one acquisition pass. It stops when search results are
// exhausted, MaxRepos repositories have been accepted, or ctx ends. Records
// already written stay valid when the run is interrupted. Only a failure of
// the intermediate store is returned as an error.
func (c *Crawler) Crawl(ctx context.Context, criteria domain.SearchCriteria) (*domain.CrawlSummary, error) {
	started := c.now()
	run := &crawlRun{
		Crawler: c,
		paths:   pathSet{seen: make(map[string]struct{})},
		slots:   semaphore.NewWeighted(int64(c.cfg.Concurrency)),
		records: make(chan domain.RawRecord, c.cfg.Concurrency),
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c.log.Info().
		Str("language", criteria.Language).
		Int("min_stars", criteria.MinStars).
		Strs("licenses", criteria.RequiredLicenses).
		Int("max_repos", criteria.MaxRepos).
		Int("concurrency", c.cfg.Concurrency).
		Msg("crawl started")

	var writeErr error
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeErr = run.drain(runCtx, cancel)
	}()

	run.paginate(runCtx, criteria)
	close(run.records)
	<-writerDone

	summary := run.stats.summary()
	summary.StartedAt = started
	summary.FinishedAt = c.now()

	if writeErr != nil {
		c.log.Error().Err(writeErr).Msg("crawl aborted: intermediate store failed")
		return summary, fmt.Errorf("write raw record: %w", writeErr)
	}
	if ctx.Err() != nil {
		summary.Interrupted = true
		c.log.Warn().Err(context.Cause(ctx)).Msg("crawl interrupted; partial results kept")
	}

	c.log.Info().
		Int64("repos_accepted", summary.ReposAccepted).
		Int64("records_written", summary.RecordsWritten).
		Int64("errors", summary.Errors()).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("crawl finished")
	return summary, nil
}

// drain appends every record it receives. Records already handed over are
// written even after cancellation. The first store error cancels the run;
// later records are discarded.
func (r *crawlRun) drain(ctx context.Context, cancel context.CancelCauseFunc) error {
	writeCtx := context.WithoutCancel(ctx)
	var failed error
	for rec := range r.records {
		if failed != nil {
			continue
		}
		if err := r.store.Append(writeCtx, rec); err != nil {
			failed = err
			cancel(err)
			continue
		}
		r.stats.recordsWritten.Add(1)
	}
	return failed
}

// paginate walks search pages and dispatches accepted repositories to the
// pool. It returns after every dispatched repository has finished.
func (r *crawlRun) paginate(ctx context.Context, criteria domain.SearchCriteria) {
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	seenRepos := make(map[string]struct{})
	accepted := 0
	limitReached := func() bool {
		return criteria.MaxRepos > 0 && accepted >= criteria.MaxRepos
	}

	for page := 1; !limitReached() && ctx.Err() == nil; page++ {
		repos, hasMore, err := r.client.Search(ctx, criteria, page)
		if err != nil {
			r.recordFailure(ctx, err, "", "")
			break
		}
		r.stats.searchPages.Add(1)

		now := r.now()
		for _, repo := range repos {
			if limitReached() || ctx.Err() != nil {
				break
			}
			if _, dup := seenRepos[repo.URL]; dup {
				continue
			}
			seenRepos[repo.URL] = struct{}{}
			r.stats.reposSeen.Add(1)

			if ok, reason := criteria.Accepts(repo, now); !ok {
				r.stats.reposSkipped.Add(1)
				r.log.Debug().Str("repo", repo.FullName()).Str("reason", reason).Msg("repository skipped")
				continue
			}
			accepted++
			r.stats.reposAccepted.Add(1)

			g.Go(func() error {
				r.crawlRepo(ctx, repo)
				return nil
			})
		}

		if !hasMore || len(repos) == 0 {
			break
		}
	}

	_ = g.Wait()
}

// crawlRepo lists one repository and fetches its selected blobs.
func (r *crawlRun) crawlRepo(ctx context.Context, repo domain.RepositoryRef) {
	tree, err := r.client.ListTree(ctx, repo)
	if err != nil {
		r.recordFailure(ctx, err, repo.FullName(), "")
		return
	}
	if tree.Truncated {
		r.stats.truncatedTrees.Add(1)
	}
	r.stats.blobsListed.Add(int64(len(tree.Blobs)))

	selected := r.selectBlobs(tree.Blobs)
	r.log.Debug().
		Str("repo", repo.FullName()).
		Int("listed", len(tree.Blobs)).
		Int("selected", len(selected)).
		Msg("repository listed")

	var wg sync.WaitGroup
	for _, blob := range selected {
		if !r.paths.add(repo.URL + "\x00" + blob.Path) {
			r.stats.duplicatePaths.Add(1)
			continue
		}
		if err := r.slots.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(blob domain.FileBlobRef) {
			defer wg.Done()
			defer r.slots.Release(1)
			r.fetchBlob(ctx, blob)
		}(blob)
	}
	wg.Wait()
}

// selectBlobs applies the file rules in listing order and then the
// per-repository cap.
func (r *crawlRun) selectBlobs(blobs []domain.FileBlobRef) []domain.FileBlobRef {
	var selected []domain.FileBlobRef
	for i, blob := range blobs {
		if r.cfg.MaxFilesPerRepo > 0 && len(selected) >= r.cfg.MaxFilesPerRepo {
			r.stats.blobsSkipped.Add(int64(len(blobs) - i))
			break
		}
		if rule := r.cfg.Rules.CheckBlob(blob.Path, blob.Size); rule != "" {
			r.stats.blobsSkipped.Add(1)
			continue
		}
		selected = append(selected, blob)
	}
	return selected
}

// fetchBlob downloads one blob and hands the record to the writer.
func (r *crawlRun) fetchBlob(ctx context.Context, blob domain.FileBlobRef) {
	data, err := r.client.GetBlob(ctx, blob)
	if err != nil {
		r.recordFailure(ctx, err, blob.Repo.FullName(), blob.Path)
		return
	}
	r.stats.blobsFetched.Add(1)

	rec := domain.RawRecord{
		RepoURL:   blob.Repo.URL,
		Path:      blob.Path,
		Size:      int64(len(data)),
		License:   blob.Repo.License,
		Content:   strings.ToValidUTF8(string(data), "\uFFFD"),
		FetchedAt: r.now().UTC(),
	}
	select {
	case r.records <- rec:
	case <-ctx.Done():
	}
}

// recordFailure counts and logs a per-item failure. Cancellation is not a
// failure.
func (r *crawlRun) recordFailure(ctx context.Context, err error, repo, path string) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return
	}

	kind := domain.FetchErrorKind(err)
	switch kind {
	case domain.ErrRateLimitExceeded:
		r.stats.rateLimitErrors.Add(1)
	case domain.ErrTransientFetch:
		r.stats.transientErrors.Add(1)
	default:
		kind = domain.ErrFatalFetch
		r.stats.fatalErrors.Add(1)
	}

	event := r.log.Warn().Err(err).Str("kind", kind.Error())
	if repo != "" {
		event = event.Str("repo", repo)
	}
	if path != "" {
		event = event.Str("path", path)
	}
	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		event = event.Int("status", fe.StatusCode)
	}
	event.Msg("skipped after fetch failure")
}
