package schedule

import (
	"github.com/dusk-indust/mend/internal/issue"
)

// Mode says whether a batch may run as soon as its layer starts or must
// wait for named predecessors.
type Mode string

const (
	ModeParallel   Mode = "parallel"
	ModeSequential Mode = "sequential"
)

// Batch is a scheduling unit grouping at most K issues dispatched together
// to one worker. Batches are immutable once the plan is built.
type Batch struct {
	ID    string `json:"id"`
	Mode  Mode   `json:"mode"`
	Layer int    `json:"layer"`
	// WaitOn lists the batch ids from the immediately preceding layer that
	// produced a dependency edge into this batch. Only true predecessors,
	// not every earlier batch, so unrelated batches keep their parallelism.
	WaitOn []string      `json:"waitOn,omitempty"`
	Issues []issue.Issue `json:"issues"`
}

// Keys returns the issue keys in the batch, in batch order.
func (b Batch) Keys() []string {
	out := make([]string, len(b.Issues))
	for i, iss := range b.Issues {
		out[i] = iss.Key()
	}
	return out
}

// Plan is the ordered batch schedule for one run. Batches are grouped into
// layers; every batch in a layer may execute concurrently with its
// siblings.
type Plan struct {
	Batches []Batch `json:"batches"`
	// Layers holds batch ids per layer, in dispatch order.
	Layers [][]string `json:"layers"`
}

// Layer returns the batches of layer i in plan order.
func (p *Plan) Layer(i int) []Batch {
	if i < 0 || i >= len(p.Layers) {
		return nil
	}
	ids := make(map[string]bool, len(p.Layers[i]))
	for _, id := range p.Layers[i] {
		ids[id] = true
	}
	var out []Batch
	for _, b := range p.Batches {
		if ids[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// Batch returns the batch with the given id, or false if absent.
func (p *Plan) Batch(id string) (Batch, bool) {
	for _, b := range p.Batches {
		if b.ID == id {
			return b, true
		}
	}
	return Batch{}, false
}
