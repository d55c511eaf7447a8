package issue

import (
	"fmt"
	"strings"
)

// --- Enums ---

// Severity ranks how urgent an issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// knownSeverities is the set of severities accepted at ingestion.
var knownSeverities = map[Severity]bool{
	SeverityCritical: true,
	SeverityHigh:     true,
	SeverityMedium:   true,
}

// State is the lifecycle state of a decision.
type State string

const (
	StatePending       State = "pending"
	StateFalsePositive State = "false-positive"
	StateFixed         State = "fixed"
	StateDeferred      State = "deferred"
	StateBlocked       State = "blocked"
)

// IsTerminal returns true if the state is a final state.
func (s State) IsTerminal() bool {
	switch s {
	case StateFalsePositive, StateFixed, StateDeferred, StateBlocked:
		return true
	}
	return false
}

// --- Models ---

// Issue is a single discovered code issue. Issues are immutable after
// ingestion; all mutable state lives in the associated Decision.
type Issue struct {
	File        string   `json:"file"`
	Line        int      `json:"line"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	// Remediation is the suggested fix. It is an opaque string from the
	// discovery side; the orchestrator never interprets it beyond risk
	// classification.
	Remediation string `json:"remediation,omitempty"`
}

// Key returns the stable identity of the issue: file:line:category.
func (i Issue) Key() string {
	return fmt.Sprintf("%s:%d:%s", i.File, i.Line, i.Category)
}

// Validate checks the fields required for a well-formed issue.
func (i Issue) Validate() error {
	if strings.TrimSpace(i.File) == "" {
		return fmt.Errorf("issue: empty file path")
	}
	if i.Line <= 0 {
		return fmt.Errorf("issue %s: line must be positive, got %d", i.File, i.Line)
	}
	if !knownSeverities[i.Severity] {
		return fmt.Errorf("issue %s:%d: unknown severity %q", i.File, i.Line, i.Severity)
	}
	if strings.TrimSpace(i.Category) == "" {
		return fmt.Errorf("issue %s:%d: empty category", i.File, i.Line)
	}
	return nil
}

// Decision is the recorded outcome for one issue.
type Decision struct {
	State     State  `json:"state"`
	Reasoning string `json:"reasoning,omitempty"`
	// BatchID identifies the batch whose worker produced this decision.
	BatchID string `json:"batchId,omitempty"`
	// ArtifactRef points at the change produced by the worker. Only set
	// for fixed decisions.
	ArtifactRef string `json:"artifactRef,omitempty"`
}
