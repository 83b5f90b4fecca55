// Package dedup provides exact-duplicate detection by content fingerprint.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

// Name is the stage name.
const Name = "dedup"

// Fingerprint is a SHA-256 digest identifying content within a scope.
type Fingerprint [sha256.Size]byte

// String returns the hex form.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// SeenSet is the set of fingerprints observed during one processing run.
// It is safe for concurrent use.
type SeenSet struct {
	mu   sync.Mutex
	seen map[Fingerprint]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[Fingerprint]struct{})}
}

// CheckAndMark adds fp and reports whether it was already present.
// The check and the insert are a single atomic step.
func (s *SeenSet) CheckAndMark(fp Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[fp]; ok {
		return true
	}
	s.seen[fp] = struct{}{}
	return false
}

// Contains reports whether fp has been marked.
func (s *SeenSet) Contains(fp Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[fp]
	return ok
}

// Len returns the number of distinct fingerprints.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Deduplicator drops records whose fingerprint was already seen. The first
// record in read order wins.
// It implements the RecordStage and OrderSensitive interfaces.
type Deduplicator struct {
	scope domain.DedupScope
	seen  *SeenSet
}

// New creates a deduplicator over seen. The seen set is owned by the caller,
// so two pipelines never share state unless handed the same set.
func New(scope domain.DedupScope, seen *SeenSet) (*Deduplicator, error) {
	if !scope.IsValid() {
		return nil, fmt.Errorf("invalid dedup scope %q", scope)
	}
	if seen == nil {
		seen = NewSeenSet()
	}
	return &Deduplicator{scope: scope, seen: seen}, nil
}

// Name returns the stage name.
func (d *Deduplicator) Name() string {
	return Name
}

// OrderSensitive is true: which record survives depends on arrival order.
func (d *Deduplicator) OrderSensitive() bool {
	return true
}

// Fingerprint computes the dedup key of rec for the configured scope.
// File scope keys on content alone; repo scope also keys on the repository.
func (d *Deduplicator) Fingerprint(rec *domain.ProcessedRecord) Fingerprint {
	if d.scope == domain.DedupScopeRepo {
		h := sha256.New()
		h.Write([]byte(rec.RepoURL))
		h.Write([]byte{0})
		h.Write([]byte(rec.Content))
		var fp Fingerprint
		copy(fp[:], h.Sum(nil))
		return fp
	}

	var fp Fingerprint
	if len(rec.ContentHash) == hex.EncodedLen(sha256.Size) {
		if _, err := hex.Decode(fp[:], []byte(rec.ContentHash)); err == nil {
			return fp
		}
	}
	return sha256.Sum256([]byte(rec.Content))
}

// IsDuplicate reports whether rec's fingerprint has been seen, without marking it.
func (d *Deduplicator) IsDuplicate(rec *domain.ProcessedRecord) bool {
	return d.seen.Contains(d.Fingerprint(rec))
}

// MarkSeen records rec's fingerprint.
func (d *Deduplicator) MarkSeen(rec *domain.ProcessedRecord) {
	d.seen.CheckAndMark(d.Fingerprint(rec))
}

// Process drops rec if its fingerprint was already seen, marking it otherwise.
func (d *Deduplicator) Process(_ context.Context, rec *domain.ProcessedRecord) (domain.Verdict, error) {
	if rec.ContentHash == "" {
		rec.ContentHash = domain.ContentHash(rec.Content)
	}
	fp := d.Fingerprint(rec)
	if d.seen.CheckAndMark(fp) {
		return domain.Drop(domain.DropDuplicate, fp.String()[:12]), nil
	}
	return domain.Keep(), nil
}
