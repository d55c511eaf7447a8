package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/mend/internal/orchestrator"
)

// LedgerExport is the top-level JSON export structure.
type LedgerExport struct {
	Project    string                    `json:"project"`
	ExportedAt string                    `json:"exportedAt"`
	Counts     orchestrator.LedgerCounts `json:"counts"`
	Entries    []EntryExport             `json:"entries"`
	Conflicts  []ConflictExport          `json:"conflicts,omitempty"`
	Artifacts  []string                  `json:"artifacts,omitempty"`
}

// EntryExport describes one resolved issue.
type EntryExport struct {
	Key       string `json:"key"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Severity  string `json:"severity"`
	Category  string `json:"category"`
	State     string `json:"state"`
	Reasoning string `json:"reasoning,omitempty"`
	BatchID   string `json:"batchId,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
}

// ConflictExport describes one reconciled artifact conflict.
type ConflictExport struct {
	Artifact string `json:"artifact"`
	BatchA   string `json:"batchA"`
	BatchB   string `json:"batchB"`
	Outcome  string `json:"outcome"`
	Rounds   int    `json:"rounds"`
}

// BuildLedgerExport flattens a ledger into its export form. Entries keep
// the ledger's per-state key ordering: fixed, false positive, deferred,
// blocked.
func BuildLedgerExport(project string, led *orchestrator.Ledger) *LedgerExport {
	out := &LedgerExport{
		Project:    project,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Counts:     led.Counts,
		Artifacts:  led.Artifacts,
	}

	for _, bucket := range [][]orchestrator.LedgerEntry{led.Fixed, led.FalsePositive, led.Deferred, led.Blocked} {
		for _, e := range bucket {
			out.Entries = append(out.Entries, EntryExport{
				Key:       e.Key,
				File:      e.Issue.File,
				Line:      e.Issue.Line,
				Severity:  string(e.Issue.Severity),
				Category:  e.Issue.Category,
				State:     string(e.Decision.State),
				Reasoning: e.Decision.Reasoning,
				BatchID:   e.Decision.BatchID,
				Artifact:  e.Decision.ArtifactRef,
			})
		}
	}

	for _, c := range led.Conflicts {
		out.Conflicts = append(out.Conflicts, ConflictExport{
			Artifact: c.Artifact,
			BatchA:   c.BatchA,
			BatchB:   c.BatchB,
			Outcome:  string(c.Outcome),
			Rounds:   c.Rounds,
		})
	}

	return out
}

// WriteLedgerJSON writes the ledger export as indented JSON.
func WriteLedgerJSON(w io.Writer, project string, led *orchestrator.Ledger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildLedgerExport(project, led)); err != nil {
		return fmt.Errorf("export: encode ledger: %w", err)
	}
	return nil
}
