package issue

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for invariant violations and bad input.
var (
	// ErrDuplicateDecision is returned when a terminal decision already
	// exists for an issue. This is a programming-invariant violation on the
	// orchestrator side, not a recoverable condition.
	ErrDuplicateDecision = errors.New("issue: decision already recorded")

	// ErrMalformedIssue is returned when ingestion receives an issue that
	// fails validation. Fatal before any scheduling happens.
	ErrMalformedIssue = errors.New("issue: malformed issue")

	// ErrUnknownIssue is returned for operations on keys that were never
	// ingested.
	ErrUnknownIssue = errors.New("issue: unknown issue key")

	// ErrRunIncomplete is returned by Finalize when issues are still
	// pending at the end of a run.
	ErrRunIncomplete = errors.New("issue: run finished with pending issues")
)

// Store holds the immutable issue set for one orchestrator run together
// with the mutable per-issue decision map. It is scoped to a single run and
// passed explicitly to every component; there is no cross-run persistence.
// Thread-safe via sync.RWMutex.
type Store struct {
	mu        sync.RWMutex
	issues    map[string]Issue
	decisions map[string]Decision
	orderKeys []string // insertion-order issue keys
}

// NewStore returns an empty Store ready for ingestion.
func NewStore() *Store {
	return &Store{
		issues:    make(map[string]Issue),
		decisions: make(map[string]Decision),
	}
}

// Ingest validates and loads the full issue set for the run. Each issue
// starts with a pending decision. Duplicate keys collapse to the first
// occurrence. Ingestion happens exactly once per run; a malformed issue
// aborts the whole ingest.
func (s *Store) Ingest(issues []Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, iss := range issues {
		if err := iss.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedIssue, err)
		}
		key := iss.Key()
		if _, exists := s.issues[key]; exists {
			continue
		}
		s.issues[key] = iss
		s.decisions[key] = Decision{State: StatePending}
		s.orderKeys = append(s.orderKeys, key)
	}
	return nil
}

// Get returns the issue for key, or false if it was never ingested.
func (s *Store) Get(key string) (Issue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iss, ok := s.issues[key]
	return iss, ok
}

// All returns every ingested issue in insertion order.
func (s *Store) All() []Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Issue, 0, len(s.orderKeys))
	for _, key := range s.orderKeys {
		out = append(out, s.issues[key])
	}
	return out
}

// Len returns the number of ingested issues.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orderKeys)
}

// Decision returns the current decision for key.
func (s *Store) Decision(key string) (Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[key]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownIssue, key)
	}
	return d, nil
}

// SetDecision records the terminal decision for key. It fails with
// ErrDuplicateDecision if a terminal decision already exists: every issue
// gets exactly one decision per run.
func (s *Store) SetDecision(key string, d Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.decisions[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIssue, key)
	}
	if cur.State.IsTerminal() {
		return fmt.Errorf("%w: %s already %s", ErrDuplicateDecision, key, cur.State)
	}
	s.decisions[key] = d
	return nil
}

// AmendArtifact replaces the artifact reference of an existing fixed
// decision. Used when conflict negotiation re-applies a patch: the decision
// itself is unchanged, only the change artifact it points to.
func (s *Store) AmendArtifact(key, artifactRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.decisions[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIssue, key)
	}
	if cur.State != StateFixed {
		return fmt.Errorf("issue: cannot amend artifact of %s decision for %s", cur.State, key)
	}
	cur.ArtifactRef = artifactRef
	s.decisions[key] = cur
	return nil
}

// Downgrade forces an existing fixed decision to blocked. Only the conflict
// coordinator uses this, after negotiation fails: a potentially broken fix
// is never silently kept.
func (s *Store) Downgrade(key, reasoning string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.decisions[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIssue, key)
	}
	if cur.State != StateFixed {
		return fmt.Errorf("issue: cannot downgrade %s decision for %s", cur.State, key)
	}
	cur.State = StateBlocked
	cur.Reasoning = reasoning
	cur.ArtifactRef = ""
	s.decisions[key] = cur
	return nil
}

// Pending returns the number of issues without a terminal decision.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.decisions {
		if !d.State.IsTerminal() {
			n++
		}
	}
	return n
}

// Finalize verifies the run invariant that every ingested issue reached a
// terminal decision. A non-zero pending count is an incomplete-run error,
// never silently dropped.
func (s *Store) Finalize() error {
	if n := s.Pending(); n > 0 {
		return fmt.Errorf("%w: %d pending", ErrRunIncomplete, n)
	}
	return nil
}
