package orchestrator

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/mend/internal/issue"
)

// LedgerEntry pairs one issue with its final decision.
type LedgerEntry struct {
	Key      string         `json:"key"`
	Issue    issue.Issue    `json:"issue"`
	Decision issue.Decision `json:"decision"`
}

// LedgerCounts summarizes the run by final state.
type LedgerCounts struct {
	Fixed         int `json:"fixed"`
	FalsePositive int `json:"falsePositive"`
	Deferred      int `json:"deferred"`
	Blocked       int `json:"blocked"`
	Total         int `json:"total"`
}

// Ledger is the final account of a run: every issue in a terminal state,
// the conflicts that were reconciled along the way, and the artifacts the
// fixes produced.
type Ledger struct {
	Fixed         []LedgerEntry    `json:"fixed"`
	FalsePositive []LedgerEntry    `json:"falsePositive"`
	Deferred      []LedgerEntry    `json:"deferred"`
	Blocked       []LedgerEntry    `json:"blocked"`
	Conflicts     []ConflictReport `json:"conflicts,omitempty"`
	Artifacts     []string         `json:"artifacts,omitempty"`
	Counts        LedgerCounts     `json:"counts"`
}

// Aggregate folds the finalized store into a ledger. It never mutates
// anything: the same store and conflict reports always produce the same
// ledger, entries sorted by issue key within each state.
func Aggregate(store *issue.Store, conflicts []ConflictReport) (*Ledger, error) {
	led := &Ledger{Conflicts: conflicts}

	artifacts := make(map[string]bool)
	for _, iss := range store.All() {
		key := iss.Key()
		d, err := store.Decision(key)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: aggregate: %w", err)
		}

		entry := LedgerEntry{Key: key, Issue: iss, Decision: d}
		switch d.State {
		case issue.StateFixed:
			led.Fixed = append(led.Fixed, entry)
			if d.ArtifactRef != "" {
				artifacts[d.ArtifactRef] = true
			}
		case issue.StateFalsePositive:
			led.FalsePositive = append(led.FalsePositive, entry)
		case issue.StateDeferred:
			led.Deferred = append(led.Deferred, entry)
		case issue.StateBlocked:
			led.Blocked = append(led.Blocked, entry)
		default:
			return nil, fmt.Errorf("orchestrator: aggregate: issue %s in non-terminal state %q", key, d.State)
		}
	}

	for _, bucket := range [][]LedgerEntry{led.Fixed, led.FalsePositive, led.Deferred, led.Blocked} {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Key < bucket[j].Key })
	}

	for ref := range artifacts {
		led.Artifacts = append(led.Artifacts, ref)
	}
	sort.Strings(led.Artifacts)

	led.Counts = LedgerCounts{
		Fixed:         len(led.Fixed),
		FalsePositive: len(led.FalsePositive),
		Deferred:      len(led.Deferred),
		Blocked:       len(led.Blocked),
	}
	led.Counts.Total = led.Counts.Fixed + led.Counts.FalsePositive + led.Counts.Deferred + led.Counts.Blocked

	return led, nil
}
