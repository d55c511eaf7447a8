package main

import (
	"flag"
	"fmt"
	"os"
)

// CLI flags parsed from command line.
type cliFlags struct {
	IssuesFile  string
	ProjectRoot string
	BatchSize   int
	LineWindow  int
	Timeout     string
	Workers     string
	GraphPath   string
	Output      string
	Verbose     bool
	ServeMCP    bool
	MCPAddr     string
	Version     bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("mend", flag.ContinueOnError)
	fs.StringVar(&flags.IssuesFile, "issues", "", "path to the issues JSON file")
	fs.StringVar(&flags.ProjectRoot, "project-root", ".", "path to the target project")
	fs.IntVar(&flags.BatchSize, "batch-size", 0, "maximum issues per batch (default 5)")
	fs.IntVar(&flags.LineWindow, "line-window", 0, "proximity window in lines (default 30)")
	fs.StringVar(&flags.Timeout, "timeout", "", "per-batch deadline, e.g. 90s (default 2m)")
	fs.StringVar(&flags.Workers, "workers", "", "comma-separated worker endpoint URLs")
	fs.StringVar(&flags.GraphPath, "graph", "", "persist the dependency graph database at this path")
	fs.StringVar(&flags.Output, "output", "", "write the ledger JSON here instead of stdout")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable batch-level progress output")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server for agent integration")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "localhost:9280", "listen address for -serve-mcp")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	if flags.ServeMCP {
		return runServeMCP(flags)
	}

	switch fs.Arg(0) {
	case "", "run":
		return runResolve(flags)
	case "plan":
		return runPlan(flags)
	case "worker":
		return runWorker(flags, fs.Args()[1:])
	default:
		return fmt.Errorf("unknown command %q (expected run, plan, or worker)", fs.Arg(0))
	}
}
