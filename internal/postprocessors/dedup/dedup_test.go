package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

func record(repo, path, content string) *domain.ProcessedRecord {
	rec := domain.NewProcessedRecord(domain.RawRecord{RepoURL: repo, Path: path, Content: content})
	return &rec
}

func TestNew_InvalidScope(t *testing.T) {
	_, err := New("global", nil)
	assert.Error(t, err)
}

func TestDeduplicator_FileScope(t *testing.T) {
	d, err := New(domain.DedupScopeFile, NewSeenSet())
	require.NoError(t, err)
	ctx := context.Background()

	v, err := d.Process(ctx, record("https://github.com/a/x", "one.py", "print(1)\n"))
	require.NoError(t, err)
	assert.True(t, v.Keep)

	v, err = d.Process(ctx, record("https://github.com/b/y", "two.py", "print(1)\n"))
	require.NoError(t, err)
	assert.False(t, v.Keep, "identical content in another repo is a duplicate")
	assert.Equal(t, domain.DropDuplicate, v.Reason)

	v, err = d.Process(ctx, record("https://github.com/a/x", "three.py", "print(2)\n"))
	require.NoError(t, err)
	assert.True(t, v.Keep)
}

func TestDeduplicator_RepoScope(t *testing.T) {
	d, err := New(domain.DedupScopeRepo, NewSeenSet())
	require.NoError(t, err)
	ctx := context.Background()

	v, _ := d.Process(ctx, record("https://github.com/a/x", "one.py", "same\n"))
	assert.True(t, v.Keep)

	v, _ = d.Process(ctx, record("https://github.com/b/y", "one.py", "same\n"))
	assert.True(t, v.Keep, "identical content in another repo is kept")

	v, _ = d.Process(ctx, record("https://github.com/a/x", "copy.py", "same\n"))
	assert.False(t, v.Keep, "identical content in the same repo is a duplicate")
}

func TestDeduplicator_FingerprintMatchesContentHash(t *testing.T) {
	d, _ := New(domain.DedupScopeFile, nil)
	withHash := record("r", "a.py", "body")
	withoutHash := record("r", "a.py", "body")
	withoutHash.ContentHash = ""

	assert.Equal(t, d.Fingerprint(withHash), d.Fingerprint(withoutHash))
	assert.Equal(t, withHash.ContentHash, d.Fingerprint(withHash).String())
}

func TestDeduplicator_IsDuplicateAndMarkSeen(t *testing.T) {
	d, _ := New(domain.DedupScopeFile, nil)
	rec := record("r", "a.py", "body")

	assert.False(t, d.IsDuplicate(rec))
	d.MarkSeen(rec)
	assert.True(t, d.IsDuplicate(rec))
	assert.True(t, d.OrderSensitive())
}

func TestSeenSet_ConcurrentCheckAndMark(t *testing.T) {
	s := NewSeenSet()
	d, _ := New(domain.DedupScopeFile, s)
	fp := d.Fingerprint(record("r", "a.py", "contended"))

	var (
		wg    sync.WaitGroup
		fresh atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !s.CheckAndMark(fp) {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load(), "exactly one caller observes the fingerprint as new")
	assert.Equal(t, 1, s.Len())
}
