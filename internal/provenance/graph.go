// Package provenance models the dataflow graph the backend attaches to each
// evaluation and derives per-cell provenance edges from it.
package provenance

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/intent/dashboard/internal/preference"
)

// NoProvenance marks a trace entry the backend could not trace.
const NoProvenance = "None"

// NodeKind classifies graph nodes.
type NodeKind string

const (
	KindInput        NodeKind = "input"
	KindIntermediate NodeKind = "intermediate"
	KindConstant     NodeKind = "constant"
	KindOperation    NodeKind = "operation"
	KindUnknown      NodeKind = "unknown"
)

// Node is a value node (id n*) or an operation node (id p*).
type Node struct {
	Type      string `json:"type,omitempty"`
	Value     string `json:"value"`
	Label     string `json:"label,omitempty"`
	Docstring string `json:"docstring,omitempty"`
}

// Edge connects two graph nodes.
type Edge struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// TraceEntry links a value node to one of its predecessors. Provenance is a
// nested array literal whose i-th entry lists the predecessor cells that
// contributed to cell i.
type TraceEntry struct {
	Start       string `json:"start"`
	Provenance  string `json:"provenance"`
	IsValueWise bool   `json:"is_value_wise"`
	Description string `json:"description,omitempty"`
}

// Graph is the dataflow graph of one (example, solution) evaluation.
type Graph struct {
	Nodes      map[string]Node         `json:"nodes"`
	Edges      []Edge                  `json:"edges"`
	TraceEdges map[string][]TraceEntry `json:"trace_edges"`
}

// Kind classifies the node with the given id.
func (g *Graph) Kind(id string) NodeKind {
	if strings.HasPrefix(id, "p") {
		return KindOperation
	}
	n, ok := g.Nodes[id]
	if !ok {
		return KindUnknown
	}
	switch NodeKind(n.Type) {
	case KindInput, KindIntermediate, KindConstant:
		return NodeKind(n.Type)
	}
	return KindUnknown
}

// Operation is an operation node together with its id.
type Operation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Docstring string `json:"docstring,omitempty"`
}

// Operations lists the operation nodes sorted by id.
func (g *Graph) Operations() []Operation {
	var ops []Operation
	for id, n := range g.Nodes {
		if g.Kind(id) != KindOperation {
			continue
		}
		ops = append(ops, Operation{ID: id, Name: n.Value, Docstring: n.Docstring})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops
}

// Tinter resolves the highlight of an operation name.
type Tinter interface {
	Tint(op string) preference.Tint
}

// OperationTints maps every operation node id to the highlight of its
// operation name.
func (g *Graph) OperationTints(t Tinter) map[string]preference.Tint {
	tints := make(map[string]preference.Tint)
	for _, op := range g.Operations() {
		tints[op.ID] = t.Tint(op.Name)
	}
	return tints
}

// ErrBadCellID is returned for a cell id that is not "<node>-<index>".
var ErrBadCellID = errors.New("malformed cell id")

// Cell addresses one element of a value node, in row-major order.
type Cell struct {
	Node  string `json:"node"`
	Index int    `json:"index"`
}

// ParseCell parses a "<node>-<index>" cell id.
func ParseCell(id string) (Cell, error) {
	sep := strings.LastIndexByte(id, '-')
	if sep <= 0 || sep == len(id)-1 {
		return Cell{}, fmt.Errorf("%w: %q", ErrBadCellID, id)
	}
	idx, err := strconv.Atoi(id[sep+1:])
	if err != nil || idx < 0 {
		return Cell{}, fmt.Errorf("%w: %q", ErrBadCellID, id)
	}
	return Cell{Node: id[:sep], Index: idx}, nil
}

func (c Cell) String() string {
	return c.Node + "-" + strconv.Itoa(c.Index)
}
