package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/logger"
)

// Verify interface compliance.
var _ driven.FetchClient = (*Client)(nil)

// Client wraps the go-github client. Every request is gated by the shared
// RateLimiter and retried according to the classification in classify.
type Client struct {
	mu            sync.Mutex
	gh            *gh.Client
	httpClient    *http.Client
	tokenProvider driven.TokenProvider
	rateLimiter   *RateLimiter
	cfg           Config
	now           func() time.Time
	log           *zerolog.Logger
}

// NewClient creates a GitHub API client. The underlying HTTP client is
// built lazily on first use so the token is only read when needed.
func NewClient(tokenProvider driven.TokenProvider, limiter *RateLimiter, cfg Config) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(ProactiveRate)
	}
	return &Client{
		tokenProvider: tokenProvider,
		rateLimiter:   limiter,
		cfg:           cfg.withDefaults(),
		now:           time.Now,
		log:           logger.Named("github"),
	}
}

// NewClientWithHTTPClient creates a client on top of a caller-supplied
// http.Client. Authentication, if any, is the caller's responsibility.
func NewClientWithHTTPClient(httpClient *http.Client, limiter *RateLimiter, cfg Config) *Client {
	c := NewClient(nil, limiter, cfg)
	c.httpClient = httpClient
	return c
}

// ensureClient initializes the go-github client if not already done.
func (c *Client) ensureClient(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gh != nil {
		return nil
	}

	hc := c.httpClient
	if hc == nil {
		token := ""
		if c.tokenProvider != nil {
			t, err := c.tokenProvider.GetToken(ctx)
			if err != nil {
				return fmt.Errorf("get token: %w", err)
			}
			token = t
		}
		if token != "" {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
			hc = oauth2.NewClient(context.Background(), ts)
		} else {
			c.log.Warn().Msg("no GitHub token configured; using the anonymous rate limit")
			hc = &http.Client{}
		}
		hc.Timeout = c.cfg.Timeout
	}

	client := gh.NewClient(hc)
	if c.cfg.BaseURL != "" {
		base := c.cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parse base url: %w", err)
		}
		client.BaseURL = u
	}
	c.gh = client
	return nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// Search returns one page of repositories matching criteria.
func (c *Client) Search(ctx context.Context, criteria domain.SearchCriteria, page int) ([]domain.RepositoryRef, bool, error) {
	if page < 1 {
		page = 1
	}
	query := BuildQuery(criteria, c.now())
	opts := &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{PerPage: c.cfg.PerPage, Page: page},
	}

	var result *gh.RepositoriesSearchResult
	resp, err := c.do(ctx, "search repositories", func(ctx context.Context) (*gh.Response, error) {
		r, resp, err := c.gh.Search.Repositories(ctx, query, opts)
		result = r
		return resp, err
	})
	if err != nil {
		return nil, false, err
	}

	repos := make([]domain.RepositoryRef, 0, len(result.Repositories))
	for _, r := range result.Repositories {
		if r == nil {
			continue
		}
		repos = append(repos, toRepositoryRef(r))
	}

	hasMore := resp.NextPage != 0 && page*c.cfg.PerPage < SearchResultCeiling
	c.log.Debug().
		Str("query", query).
		Int("page", page).
		Int("results", len(repos)).
		Int("total", result.GetTotal()).
		Bool("has_more", hasMore).
		Msg("search page")
	return repos, hasMore, nil
}

// ListTree fetches the repository tree recursively in one call and returns
// its blobs.
func (c *Client) ListTree(ctx context.Context, repo domain.RepositoryRef) (domain.Tree, error) {
	if repo.DefaultBranch == "" {
		return domain.Tree{}, &domain.FetchError{
			Kind: domain.ErrFatalFetch,
			Op:   "get tree",
			Err:  fmt.Errorf("%s has no default branch", repo.FullName()),
		}
	}

	var tree *gh.Tree
	_, err := c.do(ctx, "get tree", func(ctx context.Context) (*gh.Response, error) {
		t, resp, err := c.gh.Git.GetTree(ctx, repo.Owner, repo.Name, repo.DefaultBranch, true) // recursive=true
		tree = t
		return resp, err
	})
	if err != nil {
		return domain.Tree{}, err
	}

	if tree.GetTruncated() {
		c.log.Warn().Str("repo", repo.FullName()).Msg("tree listing truncated by the API; some files are missing")
	}
	return domain.Tree{Blobs: blobsFromTree(repo, tree), Truncated: tree.GetTruncated()}, nil
}

// GetBlob fetches a blob (file content) by its SHA and decodes it.
func (c *Client) GetBlob(ctx context.Context, blob domain.FileBlobRef) ([]byte, error) {
	var b *gh.Blob
	_, err := c.do(ctx, "get blob", func(ctx context.Context) (*gh.Response, error) {
		r, resp, err := c.gh.Git.GetBlob(ctx, blob.Repo.Owner, blob.Repo.Name, blob.SHA)
		b = r
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	content, err := decodeBlob(b)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.ErrFatalFetch, Op: "decode blob", Err: err}
	}
	return content, nil
}

// do runs call under the rate limiter until it succeeds, fails fatally, or
// exhausts its retry budget.
func (c *Client) do(ctx context.Context, op string, call func(context.Context) (*gh.Response, error)) (*gh.Response, error) {
	if err := c.ensureClient(ctx); err != nil {
		return nil, &domain.FetchError{Kind: domain.ErrFatalFetch, Op: op, Err: err}
	}

	bo := c.newBackOff()
	rateLimited, retries := 0, 0
	for {
		if err := c.rateLimiter.Acquire(ctx); err != nil {
			return nil, err
		}

		resp, err := call(ctx)
		if resp != nil && resp.Response != nil {
			c.rateLimiter.Report(resp.Header)
		}
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		switch classify(resp, err) {
		case outcomeRateLimited:
			rateLimited++
			if rateLimited >= c.cfg.RateLimitRetries {
				return nil, fetchError(domain.ErrRateLimitExceeded, op, resp, err)
			}
			resetAt := rateLimitReset(resp, err, c.now())
			if resetAt.IsZero() {
				resetAt = c.now().Add(bo.NextBackOff())
			}
			resetAt = resetAt.Add(c.cfg.ResetBuffer)
			c.rateLimiter.ReportExhausted(resetAt)
			c.log.Warn().
				Str("op", op).
				Int("status", statusCode(resp)).
				Int("attempt", rateLimited).
				Time("reset_at", resetAt).
				Msg("rate limited, waiting for reset")

		case outcomeRetryable:
			retries++
			if retries > c.cfg.MaxRetries {
				return nil, fetchError(domain.ErrTransientFetch, op, resp, err)
			}
			wait := bo.NextBackOff()
			c.log.Warn().
				Err(err).
				Str("op", op).
				Int("status", statusCode(resp)).
				Int("attempt", retries).
				Dur("backoff", wait).
				Msg("transient failure, retrying")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}

		default:
			return nil, fetchError(domain.ErrFatalFetch, op, resp, err)
		}
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.RetryDelay
	bo.MaxInterval = MaxRetryDelay
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
