package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/export"
	"github.com/dusk-indust/mend/internal/schedule"
)

// planOutput is the JSON shape of `mend plan`.
type planOutput struct {
	Plan    *schedule.Plan `json:"plan"`
	Mermaid string         `json:"mermaid"`
}

func runPlan(flags cliFlags) error {
	issues, err := loadIssues(flags.IssuesFile)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(flags)
	if err != nil {
		return err
	}

	ctx := context.Background()
	analyzer := depgraph.NewAnalyzer(cfg.LineWindow, depgraph.NewTreeSitterLocator(cfg.ProjectRoot))
	graph, err := analyzer.Analyze(ctx, issues)
	if err != nil {
		return err
	}
	for _, w := range graph.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	size := cfg.BatchSize
	if size == 0 {
		size = schedule.DefaultBatchSize
	}
	plan, err := schedule.NewPlanner(size).Plan(graph, issues)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(planOutput{
		Plan:    plan,
		Mermaid: export.GenerateMermaid(graph, plan),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}
