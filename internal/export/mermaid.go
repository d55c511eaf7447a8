package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/schedule"
)

// GenerateMermaid produces a Mermaid graph TD diagram of the batch plan.
// Batches become subgraphs grouped by layer; dependency edges become
// arrows from dependent to dependency.
func GenerateMermaid(g *depgraph.Graph, plan *schedule.Plan) string {
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for layer, ids := range plan.Layers {
		for _, batchID := range ids {
			batch, ok := plan.Batch(batchID)
			if !ok || len(batch.Issues) == 0 {
				continue
			}

			keys := batch.Keys()
			sort.Strings(keys)

			sb.WriteString(fmt.Sprintf("  subgraph %s[\"layer %d / %s (%s)\"]\n",
				getID(batchID+"_batch"), layer, batchID, batch.Mode))
			for _, key := range keys {
				sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(key), key))
			}
			sb.WriteString("  end\n")
		}
	}

	for _, e := range g.Edges {
		sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(e.From), getID(e.To)))
	}

	return sb.String()
}
