package schedule

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/issue"
)

// DefaultBatchSize is the maximum number of issues per batch when the
// configuration does not say otherwise.
const DefaultBatchSize = 5

// ErrInvalidConfig is returned for configurations the scheduler cannot run
// with, such as a non-positive batch size. Fatal before any work starts.
var ErrInvalidConfig = errors.New("schedule: invalid configuration")

// Planner partitions a dependency graph into ordered batches of bounded
// size.
type Planner struct {
	maxBatch int
}

// NewPlanner creates a Planner with the given batch size limit. The limit
// is validated in Plan so a bad configuration fails fast at run start.
func NewPlanner(maxBatch int) *Planner {
	return &Planner{maxBatch: maxBatch}
}

// Plan runs a topological layering with greedy packing:
//
//  1. Compute the number of unresolved dependencies per issue.
//  2. Extract the zero-dependency set; these seed a layer.
//  3. Pack the layer into batches of size <= K. Each seed pulls its
//     edge-related dependents into the same batch while capacity remains:
//     a batch is handed to a single worker that resolves its members in
//     order, so an edge inside the batch needs no layer barrier. Edgeless
//     issues fill spare capacity. Dependents that do not fit stay behind
//     and surface in a later layer's zero-dependency set.
//  4. Layer 0 batches are parallel with no wait-list; later batches are
//     sequential waiting on the preceding-layer batches with an edge into
//     them.
//  5. Repeat until every issue is batched.
func (p *Planner) Plan(g *depgraph.Graph, issues []issue.Issue) (*Plan, error) {
	if p.maxBatch <= 0 {
		return nil, fmt.Errorf("%w: batch size %d, must be positive", ErrInvalidConfig, p.maxBatch)
	}

	byKey := make(map[string]issue.Issue, len(issues))
	for _, iss := range issues {
		byKey[iss.Key()] = iss
	}
	for _, n := range g.Nodes {
		if _, ok := byKey[n.Key]; !ok {
			return nil, fmt.Errorf("%w: graph references unknown issue %s", ErrInvalidConfig, n.Key)
		}
	}

	// depCount counts unresolved dependencies per key; dependents is the
	// reverse adjacency used to decrement them as layers are extracted.
	depCount := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string)
	for _, n := range g.Nodes {
		depCount[n.Key] = 0
	}
	for _, e := range g.Edges {
		depCount[e.From]++
		dependents[e.To] = append(dependents[e.To], e.From)
	}

	// assigned maps issue key -> batch id once packed.
	assigned := make(map[string]string, len(g.Nodes))
	plan := &Plan{}

	remaining := len(g.Nodes)
	for layer := 0; remaining > 0; layer++ {
		var ready []string
		for key, n := range depCount {
			if n == 0 {
				ready = append(ready, key)
			}
		}
		if len(ready) == 0 {
			// Cannot happen with edges directed by key order; guard against
			// a malformed hand-built graph all the same.
			return nil, fmt.Errorf("%w: dependency graph contains a cycle", ErrInvalidConfig)
		}
		sort.Strings(ready)

		batches := p.packLayer(g, ready, depCount)

		var layerIDs []string
		for i, keys := range batches {
			b := Batch{
				ID:    fmt.Sprintf("b%d-%d", layer, i),
				Mode:  ModeParallel,
				Layer: layer,
			}
			if layer > 0 {
				b.Mode = ModeSequential
				b.WaitOn = waitList(g, keys, assigned, layer-1, plan)
			}
			for _, key := range keys {
				b.Issues = append(b.Issues, byKey[key])
				assigned[key] = b.ID
			}
			plan.Batches = append(plan.Batches, b)
			layerIDs = append(layerIDs, b.ID)
		}
		plan.Layers = append(plan.Layers, layerIDs)

		// Remove everything packed this layer, then release the dependents
		// of the removed keys that are still waiting.
		for _, keys := range batches {
			for _, key := range keys {
				delete(depCount, key)
				remaining--
			}
		}
		for _, keys := range batches {
			for _, key := range keys {
				for _, dep := range dependents[key] {
					if _, live := depCount[dep]; live {
						depCount[dep]--
					}
				}
			}
		}
	}

	return plan, nil
}

// packLayer groups the ready set into key slices of size <= maxBatch. Each
// connected seed grows its batch with edge-related dependents; issues with
// no edges fill spare capacity instead of opening batches of their own.
// depCount still holds every unpacked key, so candidate eligibility can be
// checked against the dependencies that are not yet resolved.
func (p *Planner) packLayer(g *depgraph.Graph, ready []string, depCount map[string]int) [][]string {
	var connected, isolated []string
	for _, key := range ready {
		if hasEdge(g, key) {
			connected = append(connected, key)
		} else {
			isolated = append(isolated, key)
		}
	}

	var batches [][]string
	packed := make(map[string]bool, len(ready))

	for _, seed := range connected {
		batch := []string{seed}
		packed[seed] = true

		// Grow the batch with the strongest-related dependent until nothing
		// eligible remains or the batch is full. Members are appended in
		// dependency order: an issue only joins once everything it depends
		// on is already in the batch ahead of it.
		for len(batch) < p.maxBatch {
			next, ok := strongestRelated(g, batch, depCount, packed)
			if !ok {
				break
			}
			batch = append(batch, next)
			packed[next] = true
		}
		batches = append(batches, batch)
	}

	// First-fit the edgeless issues into spare capacity.
	for _, key := range isolated {
		placed := false
		for i := range batches {
			if len(batches[i]) < p.maxBatch {
				batches[i] = append(batches[i], key)
				placed = true
				break
			}
		}
		if !placed {
			batches = append(batches, []string{key})
		}
	}

	return batches
}

// strongestRelated returns the dependent with the highest edge weight into
// the batch among those whose every unresolved dependency is already a
// batch member. Ties break on key order so packing stays deterministic.
func strongestRelated(g *depgraph.Graph, batch []string, depCount map[string]int, packed map[string]bool) (string, bool) {
	members := make(map[string]bool, len(batch))
	for _, m := range batch {
		members[m] = true
	}

	best := ""
	bestWeight := 0
	for _, member := range batch {
		for _, e := range g.EdgesTo(member) {
			cand := e.From
			if packed[cand] {
				continue
			}
			unresolved, live := depCount[cand]
			if !live {
				continue
			}
			covered := 0
			for _, de := range g.EdgesFrom(cand) {
				if members[de.To] {
					covered++
				}
			}
			if covered != unresolved {
				continue
			}
			if e.Weight > bestWeight || (e.Weight == bestWeight && (best == "" || cand < best)) {
				best = cand
				bestWeight = e.Weight
			}
		}
	}
	return best, best != ""
}

// hasEdge reports whether key participates in any edge.
func hasEdge(g *depgraph.Graph, key string) bool {
	for _, e := range g.Edges {
		if e.From == key || e.To == key {
			return true
		}
	}
	return false
}

// waitList collects the batch ids from layer prevLayer whose issues this
// batch depends on. Edges resolved inside the batch itself never
// contribute: their target sits in the same layer, not the previous one.
func waitList(g *depgraph.Graph, keys []string, assigned map[string]string, prevLayer int, plan *Plan) []string {
	prev := make(map[string]bool)
	if prevLayer >= 0 && prevLayer < len(plan.Layers) {
		for _, id := range plan.Layers[prevLayer] {
			prev[id] = true
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, key := range keys {
		for _, e := range g.EdgesFrom(key) {
			batchID, ok := assigned[e.To]
			if !ok || !prev[batchID] || seen[batchID] {
				continue
			}
			seen[batchID] = true
			out = append(out, batchID)
		}
	}
	sort.Strings(out)
	return out
}
