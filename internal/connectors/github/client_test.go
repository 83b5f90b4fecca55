package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// mockTokenProvider implements driven.TokenProvider for testing.
type mockTokenProvider struct {
	token string
	err   error
}

func (p *mockTokenProvider) GetToken(_ context.Context) (string, error) {
	return p.token, p.err
}

func (p *mockTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL + "/"
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	for _, m := range mutate {
		m(&cfg)
	}
	return NewClientWithHTTPClient(srv.Client(), NewRateLimiter(0), cfg)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func testRepo() domain.RepositoryRef {
	return domain.RepositoryRef{
		URL:           "https://github.com/octo/hello",
		Owner:         "octo",
		Name:          "hello",
		DefaultBranch: "main",
		License:       "MIT",
	}
}

func TestClient_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Contains(t, q.Get("q"), "language:python")
		assert.Contains(t, q.Get("q"), "stars:>=50")
		assert.Equal(t, "stars", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "100", q.Get("per_page"))
		assert.Equal(t, "1", q.Get("page"))

		w.Header().Set("Link", `<https://api.github.com/search/repositories?page=2>; rel="next"`)
		writeJSON(t, w, map[string]any{
			"total_count": 2,
			"items": []map[string]any{
				{
					"name":             "hello",
					"html_url":         "https://github.com/octo/hello",
					"owner":            map[string]any{"login": "octo"},
					"default_branch":   "main",
					"stargazers_count": 120,
					"pushed_at":        "2024-05-01T00:00:00Z",
					"license":          map[string]any{"spdx_id": "MIT"},
				},
				{
					"name":             "nolicense",
					"html_url":         "https://github.com/octo/nolicense",
					"owner":            map[string]any{"login": "octo"},
					"default_branch":   "trunk",
					"stargazers_count": 60,
				},
			},
		})
	})
	c := newTestClient(t, mux)

	repos, hasMore, err := c.Search(context.Background(), domain.SearchCriteria{Language: "python", MinStars: 50}, 1)

	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, repos, 2)
	assert.Equal(t, "https://github.com/octo/hello", repos[0].URL)
	assert.Equal(t, "octo", repos[0].Owner)
	assert.Equal(t, "hello", repos[0].Name)
	assert.Equal(t, "main", repos[0].DefaultBranch)
	assert.Equal(t, "MIT", repos[0].License)
	assert.Equal(t, 120, repos[0].Stars)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), repos[0].PushedAt.UTC())
	assert.Equal(t, domain.NoAssertionLicense, repos[1].License)
}

func TestClient_SearchStopsAtResultCeiling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://api.github.com/search/repositories?page=11>; rel="next"`)
		writeJSON(t, w, map[string]any{"total_count": 5000, "items": []any{}})
	})
	c := newTestClient(t, mux)

	_, hasMore, err := c.Search(context.Background(), domain.SearchCriteria{}, 10)

	require.NoError(t, err)
	assert.False(t, hasMore)
}

func TestClient_SearchLastPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"total_count": 1, "items": []any{}})
	})
	c := newTestClient(t, mux)

	_, hasMore, err := c.Search(context.Background(), domain.SearchCriteria{}, 1)

	require.NoError(t, err)
	assert.False(t, hasMore)
}

func TestClient_ListTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(t, w, map[string]any{
			"sha":       "root",
			"truncated": true,
			"tree": []map[string]any{
				{"path": "src", "type": "tree", "mode": "040000", "sha": "t1"},
				{"path": "src/app.py", "type": "blob", "mode": "100644", "sha": "b1", "size": 120},
				{"path": "link.py", "type": "blob", "mode": "120000", "sha": "b2", "size": 10},
				{"path": "vendored", "type": "commit", "mode": "160000", "sha": "c1"},
			},
		})
	})
	c := newTestClient(t, mux)
	repo := testRepo()

	tree, err := c.ListTree(context.Background(), repo)

	require.NoError(t, err)
	assert.True(t, tree.Truncated)
	blobs := tree.Blobs
	require.Len(t, blobs, 1)
	assert.Equal(t, "src/app.py", blobs[0].Path)
	assert.Equal(t, "b1", blobs[0].SHA)
	assert.Equal(t, int64(120), blobs[0].Size)
	assert.Equal(t, "blob", blobs[0].Type)
	assert.Equal(t, repo, blobs[0].Repo)
}

func TestClient_ListTreeWithoutDefaultBranch(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	repo := testRepo()
	repo.DefaultBranch = ""

	_, err := c.ListTree(context.Background(), repo)

	assert.ErrorIs(t, err, domain.ErrFatalFetch)
	assert.Zero(t, calls.Load())
}

func TestClient_GetBlob(t *testing.T) {
	content := "def hello():\n    return 'hi'\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/git/blobs/b64", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"sha":      "b64",
			"encoding": "base64",
			"content":  encoded[:10] + "\n" + encoded[10:],
		})
	})
	mux.HandleFunc("/repos/octo/hello/git/blobs/plain", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"sha": "plain", "encoding": "utf-8", "content": "raw text"})
	})
	mux.HandleFunc("/repos/octo/hello/git/blobs/broken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"sha": "broken", "encoding": "base64", "content": "!!!"})
	})
	c := newTestClient(t, mux)
	repo := testRepo()

	got, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: repo, SHA: "b64"})
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	got, err = c.GetBlob(context.Background(), domain.FileBlobRef{Repo: repo, SHA: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "raw text", string(got))

	_, err = c.GetBlob(context.Background(), domain.FileBlobRef{Repo: repo, SHA: "broken"})
	assert.ErrorIs(t, err, domain.ErrFatalFetch)
}

func TestClient_FatalErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))

	_, err := c.ListTree(context.Background(), testRepo())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFatalFetch)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ForbiddenWithoutRateLimitIsFatal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"Repository access blocked"}`)
	}))

	_, err := c.ListTree(context.Background(), testRepo())

	assert.ErrorIs(t, err, domain.ErrFatalFetch)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransientErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/git/blobs/b1", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, map[string]any{"sha": "b1", "encoding": "utf-8", "content": "ok"})
	})
	c := newTestClient(t, mux)

	got, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_TransientRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), func(cfg *Config) { cfg.MaxRetries = 2 })

	_, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	assert.ErrorIs(t, err, domain.ErrTransientFetch)
	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RateLimitedThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/git/blobs/b1", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(HeaderRetryAfter, "0")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message":"slow down"}`)
			return
		}
		writeJSON(t, w, map[string]any{"sha": "b1", "encoding": "utf-8", "content": "ok"})
	})
	c := newTestClient(t, mux)

	got, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_PrimaryRateLimitWaitsForReset(t *testing.T) {
	var calls atomic.Int32
	reset := time.Now().Add(time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/git/blobs/b1", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(HeaderRateLimit, "5000")
			w.Header().Set(HeaderRateRemaining, "0")
			w.Header().Set(HeaderRateReset, strconv.FormatInt(reset.Unix(), 10))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
			return
		}
		writeJSON(t, w, map[string]any{"sha": "b1", "encoding": "utf-8", "content": "ok"})
	})
	c := newTestClient(t, mux)

	got, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, time.Now().Before(time.Unix(reset.Unix(), 0)), "retry waits for the reported reset")
}

func TestClient_RateLimitRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set(HeaderRetryAfter, "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}), func(cfg *Config) { cfg.RateLimitRetries = 3 })

	_, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	assert.ErrorIs(t, err, domain.ErrRateLimitExceeded)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_CancelDuringBackoff(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}), func(cfg *Config) { cfg.RetryDelay = time.Hour })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetBlob(ctx, domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrTransientFetch)
}

func TestClient_SendsToken(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		writeJSON(t, w, map[string]any{"sha": "b1", "encoding": "utf-8", "content": "ok"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(&mockTokenProvider{token: "secret-token"}, NewRateLimiter(0), testConfig(srv.URL))

	_, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", auth.Load())
}

func TestClient_TokenErrorIsFatal(t *testing.T) {
	c := NewClient(&mockTokenProvider{err: fmt.Errorf("keyring locked")}, NewRateLimiter(0), DefaultConfig())

	_, err := c.GetBlob(context.Background(), domain.FileBlobRef{Repo: testRepo(), SHA: "b1"})

	assert.ErrorIs(t, err, domain.ErrFatalFetch)
	assert.Contains(t, err.Error(), "keyring locked")
}
