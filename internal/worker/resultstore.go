package worker

import "sync"

// ResultStore keeps completed batch results keyed by batch id. All access
// is copy-on-read so callers can never mutate stored state.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*Result
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*Result)}
}

// Put stores a copy of the result, replacing any earlier result for the
// same batch.
func (s *ResultStore) Put(r *Result) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.BatchID] = cloneResult(r)
}

// Get returns a copy of the result for batchID, or false if absent.
func (s *ResultStore) Get(batchID string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[batchID]
	if !ok {
		return nil, false
	}
	return cloneResult(r), true
}

// All returns copies of every stored result.
func (s *ResultStore) All() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, cloneResult(r))
	}
	return out
}

// Len returns the number of stored results.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func cloneResult(r *Result) *Result {
	out := *r
	out.Decisions = make([]IssueDecision, len(r.Decisions))
	copy(out.Decisions, r.Decisions)
	if r.Touched != nil {
		out.Touched = make([]string, len(r.Touched))
		copy(out.Touched, r.Touched)
	}
	return &out
}
