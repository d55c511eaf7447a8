package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dusk-indust/mend/internal/config"
	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/export"
	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/orchestrator"
	"github.com/dusk-indust/mend/internal/worker"
)

// issueFile is the on-disk issues format: a JSON array of findings.
type issueFile []struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Remediation string `json:"remediation,omitempty"`
}

func loadIssues(path string) ([]issue.Issue, error) {
	if path == "" {
		return nil, fmt.Errorf("no issues file given, use -issues <file.json>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}

	var raw issueFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse issues: %w", err)
	}

	issues := make([]issue.Issue, len(raw))
	for i, r := range raw {
		issues[i] = issue.Issue{
			File:        r.File,
			Line:        r.Line,
			Severity:    issue.Severity(r.Severity),
			Category:    r.Category,
			Description: r.Description,
			Remediation: r.Remediation,
		}
	}
	return issues, nil
}

// buildConfig merges flags over the project's mend.yml.
func buildConfig(flags cliFlags) (orchestrator.Config, error) {
	proj, err := config.Load(flags.ProjectRoot)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("load mend.yml: %w", err)
	}

	cfg := orchestrator.Config{
		ProjectRoot:     flags.ProjectRoot,
		BatchSize:       proj.BatchSize,
		LineWindow:      proj.LineWindow,
		WorkerEndpoints: proj.WorkerEndpoints,
		GraphPath:       proj.GraphPath,
		Verbose:         proj.Verbose || flags.Verbose,
	}
	if proj.BatchTimeout != "" {
		d, err := time.ParseDuration(proj.BatchTimeout)
		if err != nil {
			return orchestrator.Config{}, fmt.Errorf("mend.yml batchTimeout: %w", err)
		}
		cfg.BatchTimeout = d
	}

	if flags.BatchSize != 0 {
		cfg.BatchSize = flags.BatchSize
	}
	if flags.LineWindow != 0 {
		cfg.LineWindow = flags.LineWindow
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return orchestrator.Config{}, fmt.Errorf("-timeout: %w", err)
		}
		cfg.BatchTimeout = d
	}
	if flags.Workers != "" {
		cfg.WorkerEndpoints = splitList(flags.Workers)
	}
	if flags.GraphPath != "" {
		cfg.GraphPath = flags.GraphPath
	}
	return cfg, nil
}

func runResolve(flags cliFlags) error {
	issues, err := loadIssues(flags.IssuesFile)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(flags)
	if err != nil {
		return err
	}

	ctx := context.Background()

	local := worker.NewLocal("local", cfg.ProjectRoot)
	pool := orchestrator.NewPool(local)
	if len(cfg.WorkerEndpoints) > 0 {
		pool = orchestrator.DetectWorkers(ctx, cfg.WorkerEndpoints, local)
	}

	var graphStore depgraph.Store
	if cfg.GraphPath != "" {
		graphStore, err = openGraphStore(cfg.GraphPath)
		if err != nil {
			return fmt.Errorf("open graph store: %w", err)
		}
		defer graphStore.Close()
	}

	pipeline := orchestrator.NewPipeline(cfg, pool, depgraph.NewTreeSitterLocator(cfg.ProjectRoot), graphStore)

	if cfg.Verbose {
		go func() {
			var last orchestrator.Phase
			for ev := range pipeline.Progress() {
				if ev.Phase != last {
					fmt.Fprintln(os.Stderr, orchestrator.FormatPhaseHeader("mend", ev.Phase))
					last = ev.Phase
				}
				fmt.Fprintln(os.Stderr, orchestrator.FormatProgress(ev))
			}
		}()
	}

	ledger, err := pipeline.Run(ctx, issues)
	if err != nil {
		return err
	}

	out := os.Stdout
	if flags.Output != "" {
		f, err := os.Create(flags.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return export.WriteLedgerJSON(out, cfg.ProjectRoot, ledger)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
