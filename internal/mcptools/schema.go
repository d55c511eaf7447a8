package mcptools

import "github.com/dusk-indust/mend/internal/issue"

// IssueInput is the wire form of one reported issue.
type IssueInput struct {
	File        string `json:"file" jsonschema:"repo-relative path of the file the issue was reported in"`
	Line        int    `json:"line" jsonschema:"1-based line number of the finding"`
	Severity    string `json:"severity" jsonschema:"severity: critical, high, or medium"`
	Category    string `json:"category" jsonschema:"finding category, e.g. leak, race, style"`
	Description string `json:"description" jsonschema:"human-readable description of the finding"`
	Remediation string `json:"remediation,omitempty" jsonschema:"suggested remediation text, passed through to workers"`
}

func (in IssueInput) toIssue() issue.Issue {
	return issue.Issue{
		File:        in.File,
		Line:        in.Line,
		Severity:    issue.Severity(in.Severity),
		Category:    in.Category,
		Description: in.Description,
		Remediation: in.Remediation,
	}
}

func toIssues(inputs []IssueInput) []issue.Issue {
	out := make([]issue.Issue, len(inputs))
	for i, in := range inputs {
		out[i] = in.toIssue()
	}
	return out
}

// AssessOverlapInput asks for the dependency edges a set of issues would
// produce.
type AssessOverlapInput struct {
	Issues      []IssueInput `json:"issues" jsonschema:"the issues to analyze"`
	ProjectRoot string       `json:"projectRoot,omitempty" jsonschema:"project root for source-level function resolution; omit to analyze by file and line only"`
	LineWindow  int          `json:"lineWindow,omitempty" jsonschema:"proximity window in lines (default 30)"`
}

// OverlapEdge is one directed dependency edge.
type OverlapEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// AssessOverlapOutput reports the computed graph.
type AssessOverlapOutput struct {
	IssueCount int           `json:"issueCount"`
	Edges      []OverlapEdge `json:"edges,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// PlanBatchesInput asks for a batch schedule without executing it.
type PlanBatchesInput struct {
	Issues      []IssueInput `json:"issues" jsonschema:"the issues to schedule"`
	ProjectRoot string       `json:"projectRoot,omitempty" jsonschema:"project root for source-level function resolution"`
	BatchSize   int          `json:"batchSize,omitempty" jsonschema:"maximum issues per batch (default 5)"`
	LineWindow  int          `json:"lineWindow,omitempty" jsonschema:"proximity window in lines (default 30)"`
}

// BatchPlanEntry describes one planned batch.
type BatchPlanEntry struct {
	ID     string   `json:"id"`
	Mode   string   `json:"mode"`
	Layer  int      `json:"layer"`
	WaitOn []string `json:"waitOn,omitempty"`
	Issues []string `json:"issues"`
}

// PlanBatchesOutput is the planned schedule plus a Mermaid rendering.
type PlanBatchesOutput struct {
	Batches []BatchPlanEntry `json:"batches"`
	Layers  int              `json:"layers"`
	Mermaid string           `json:"mermaid"`
}

// ResolveIssuesInput runs the full pipeline over the given issues.
type ResolveIssuesInput struct {
	Issues          []IssueInput `json:"issues" jsonschema:"the issues to resolve"`
	ProjectRoot     string       `json:"projectRoot" jsonschema:"absolute path to the project the issues were reported against"`
	BatchSize       int          `json:"batchSize,omitempty" jsonschema:"maximum issues per batch (default 5)"`
	LineWindow      int          `json:"lineWindow,omitempty" jsonschema:"proximity window in lines (default 30)"`
	TimeoutSeconds  int          `json:"timeoutSeconds,omitempty" jsonschema:"per-batch deadline in seconds (default 120)"`
	WorkerEndpoints []string     `json:"workerEndpoints,omitempty" jsonschema:"remote worker base URLs; omit to resolve in-process"`
}

// ResolveIssuesOutput summarizes the run.
type ResolveIssuesOutput struct {
	Fixed         int      `json:"fixed"`
	FalsePositive int      `json:"falsePositive"`
	Deferred      int      `json:"deferred"`
	Blocked       int      `json:"blocked"`
	Total         int      `json:"total"`
	Conflicts     int      `json:"conflicts"`
	Artifacts     []string `json:"artifacts,omitempty"`
}

// GetLedgerInput selects the ledger of the most recent run.
type GetLedgerInput struct{}

// LedgerEntryOutput is one resolved issue in the ledger.
type LedgerEntryOutput struct {
	Key       string `json:"key"`
	State     string `json:"state"`
	Reasoning string `json:"reasoning,omitempty"`
	BatchID   string `json:"batchId,omitempty"`
	Artifact  string `json:"artifact,omitempty"`
}

// GetLedgerOutput is the full ledger of the most recent run.
type GetLedgerOutput struct {
	Project   string              `json:"project"`
	Entries   []LedgerEntryOutput `json:"entries"`
	Conflicts int                 `json:"conflicts"`
	Artifacts []string            `json:"artifacts,omitempty"`
}
