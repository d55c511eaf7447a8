//go:build cgo

package main

import "github.com/dusk-indust/mend/internal/depgraph"

// openGraphStore opens the on-disk graph database when the KuzuDB driver
// is available.
func openGraphStore(path string) (depgraph.Store, error) {
	return depgraph.NewKuzuFileStore(path)
}
