//go:build !cgo

package main

import "github.com/dusk-indust/mend/internal/depgraph"

// openGraphStore falls back to an in-memory store in builds without the
// KuzuDB driver; -graph then only validates the pipeline wiring.
func openGraphStore(string) (depgraph.Store, error) {
	return depgraph.NewMemStore(), nil
}
