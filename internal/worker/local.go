package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/schedule"
)

// Compile-time interface check.
var _ Dispatcher = (*Local)(nil)

// Applier performs the actual remediation for one low-risk issue. It
// returns a reference to the produced artifact and the paths it touched.
type Applier interface {
	Apply(ctx context.Context, iss issue.Issue) (artifact string, touched []string, err error)
}

// FileApplier records each remediation as a patch note under
// <root>/.mend/fixes/. It stands in for an editor-backed applier in
// environments without one.
type FileApplier struct {
	Root string
}

// Apply writes the remediation note and returns its path as the artifact.
func (a *FileApplier) Apply(ctx context.Context, iss issue.Issue) (string, []string, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	dir := filepath.Join(a.Root, ".mend", "fixes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("worker: create fix dir: %w", err)
	}

	name := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(iss.Key()) + ".md"
	path := filepath.Join(dir, name)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", iss.Key())
	fmt.Fprintf(&buf, "File: %s:%d\n", iss.File, iss.Line)
	fmt.Fprintf(&buf, "Category: %s\nSeverity: %s\n\n", iss.Category, iss.Severity)
	fmt.Fprintf(&buf, "%s\n", iss.Remediation)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", nil, fmt.Errorf("worker: write fix note: %w", err)
	}
	return path, []string{iss.File}, nil
}

// Local executes batches in-process: it validates each issue against the
// project tree, classifies risk, and applies low-risk remediations through
// its Applier.
type Local struct {
	id         string
	root       string
	classifier *Classifier
	applier    Applier
}

// LocalOption configures a Local worker.
type LocalOption func(*Local)

// WithApplier replaces the default FileApplier.
func WithApplier(a Applier) LocalOption {
	return func(w *Local) { w.applier = a }
}

// WithRules replaces the default risk rule table.
func WithRules(rules []RiskRule) LocalOption {
	return func(w *Local) { w.classifier = NewClassifier(rules) }
}

// NewLocal creates a Local worker rooted at the project directory.
func NewLocal(id, root string, opts ...LocalOption) *Local {
	w := &Local{
		id:         id,
		root:       root,
		classifier: NewClassifier(nil),
		applier:    &FileApplier{Root: root},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker identifier.
func (w *Local) ID() string { return w.id }

// Dispatch resolves every issue in the batch. One issue failing never
// aborts the rest; each failure becomes a Blocked decision for that issue
// alone. If ctx expires mid-batch the remaining issues are Blocked and the
// result is Partial; a deadline that expires before anything validated
// leaves the whole result Blocked.
func (w *Local) Dispatch(ctx context.Context, batch schedule.Batch) (*Result, error) {
	res := &Result{
		BatchID:   batch.ID,
		WorkerID:  w.id,
		Status:    StatusComplete,
		StartedAt: time.Now().UTC(),
	}

	validCount := 0
	for i, iss := range batch.Issues {
		if err := ctx.Err(); err != nil {
			// Out of time: block everything not yet decided.
			for _, rest := range batch.Issues[i:] {
				res.Decisions = append(res.Decisions, IssueDecision{
					Key: rest.Key(),
					Decision: issue.Decision{
						State:     issue.StateBlocked,
						Reasoning: "batch deadline expired before this issue was examined",
						BatchID:   batch.ID,
					},
				})
			}
			res.Status = StatusPartial
			if validCount == 0 {
				res.Status = StatusBlocked
			}
			res.EndedAt = time.Now().UTC()
			return res, nil
		}

		d, touched, ok := w.resolve(ctx, batch.ID, iss)
		if ok {
			validCount++
		}
		res.Decisions = append(res.Decisions, IssueDecision{Key: iss.Key(), Decision: d, Touched: touched})
		res.Touched = appendUnique(res.Touched, touched...)
	}

	if validCount == 0 && len(batch.Issues) > 0 {
		res.Status = StatusBlocked
	}
	res.EndedAt = time.Now().UTC()
	return res, nil
}

// resolve decides one issue. ok reports whether the issue validated
// against the tree, independent of the decision taken.
func (w *Local) resolve(ctx context.Context, batchID string, iss issue.Issue) (issue.Decision, []string, bool) {
	path := filepath.Join(w.root, iss.File)

	data, err := os.ReadFile(path)
	if err != nil {
		return issue.Decision{
			State:     issue.StateBlocked,
			Reasoning: fmt.Sprintf("target file %s is not readable: %v", iss.File, err),
			BatchID:   batchID,
		}, nil, false
	}

	if iss.Line > countLines(data) {
		return issue.Decision{
			State:     issue.StateFalsePositive,
			Reasoning: fmt.Sprintf("reported line %d is past the end of %s", iss.Line, iss.File),
			BatchID:   batchID,
		}, nil, true
	}

	level, rule := w.classifier.Classify(iss)
	if level == RiskHigh {
		return issue.Decision{
			State:     issue.StateDeferred,
			Reasoning: fmt.Sprintf("high risk (%s), deferred for human review", rule),
			BatchID:   batchID,
		}, nil, true
	}

	artifact, touched, err := w.applier.Apply(ctx, iss)
	if err != nil {
		return issue.Decision{
			State:     issue.StateBlocked,
			Reasoning: fmt.Sprintf("remediation failed: %v", err),
			BatchID:   batchID,
		}, nil, true
	}

	return issue.Decision{
		State:       issue.StateFixed,
		Reasoning:   fmt.Sprintf("low risk (%s), remediation applied", rule),
		BatchID:     batchID,
		ArtifactRef: artifact,
	}, touched, true
}

// ReviewConflict re-reads the artifact and answers the review round. The
// local worker holds its change when the artifact still exists and
// declares a conflict otherwise; it never produces adjusted revisions on
// its own.
func (w *Local) ReviewConflict(ctx context.Context, q ConflictQuery) (*ConflictReply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(q.Artifact); err != nil {
		return &ConflictReply{
			BatchID:   q.BatchID,
			Verdict:   VerdictConflict,
			Reasoning: fmt.Sprintf("artifact %s no longer present: %v", q.Artifact, err),
		}, nil
	}

	return &ConflictReply{
		BatchID:   q.BatchID,
		Verdict:   VerdictHolds,
		Reasoning: "change verified against current artifact state",
	}, nil
}

func countLines(data []byte) int {
	n := bytes.Count(data, []byte("\n"))
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, have := range dst {
			if have == item {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, item)
		}
	}
	return dst
}
