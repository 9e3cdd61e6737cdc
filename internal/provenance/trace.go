package provenance

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MaxTraceEdges bounds the number of edges one trace may emit.
	MaxTraceEdges = 10000
	// MaxTraceDepth bounds how many predecessor hops a trace may follow.
	MaxTraceDepth = 256
)

var (
	// ErrBadProvenance is returned when a provenance map is not a nested integer array.
	ErrBadProvenance = errors.New("malformed provenance map")
	// ErrTraceLimit is returned with the partial edge set when a bound is hit.
	ErrTraceLimit = errors.New("provenance trace limit exceeded")
)

// TraceEdge is a directed provenance edge from a cell to a contributing cell.
// Secondary edges are those found past the first hop.
type TraceEdge struct {
	From        Cell   `json:"from"`
	To          Cell   `json:"to"`
	Secondary   bool   `json:"secondary"`
	ValueWise   bool   `json:"value_wise"`
	Description string `json:"description,omitempty"`
}

type mapKey struct {
	node  string
	entry int
}

// Tracer walks the trace entries of one graph. Decoded provenance maps are
// cached, so a Tracer should be reused for repeated clicks on the same graph.
// A Tracer is not safe for concurrent use.
type Tracer struct {
	graph *Graph
	maps  map[mapKey][][]int
}

// NewTracer returns a tracer over g.
func NewTracer(g *Graph) *Tracer {
	return &Tracer{graph: g, maps: make(map[mapKey][][]int)}
}

// TraceFrom derives the provenance edges of the cell with the given id.
func (t *Tracer) TraceFrom(cellID string) ([]TraceEdge, error) {
	cell, err := ParseCell(cellID)
	if err != nil {
		return nil, err
	}
	return t.Trace(cell)
}

// Trace walks the predecessors of cell depth first: each edge is emitted
// before the edges of the cell it points at.
func (t *Tracer) Trace(cell Cell) ([]TraceEdge, error) {
	if t.graph == nil || len(t.graph.TraceEdges[cell.Node]) == 0 {
		return []TraceEdge{}, nil
	}

	type frame struct {
		cell    Cell
		depth   int
		entry   int
		current TraceEntry
		targets []int
		next    int
	}

	edges := []TraceEdge{}
	stack := []*frame{{cell: cell}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.next < len(f.targets) {
			to := Cell{Node: f.current.Start, Index: f.targets[f.next]}
			f.next++
			edges = append(edges, TraceEdge{
				From:        f.cell,
				To:          to,
				Secondary:   f.depth > 0,
				ValueWise:   f.current.IsValueWise,
				Description: f.current.Description,
			})
			if len(edges) >= MaxTraceEdges {
				return edges, fmt.Errorf("%w: more than %d edges from %s", ErrTraceLimit, MaxTraceEdges, cell)
			}
			if f.depth+1 >= MaxTraceDepth && len(t.graph.TraceEdges[to.Node]) > 0 {
				return edges, fmt.Errorf("%w: deeper than %d hops from %s", ErrTraceLimit, MaxTraceDepth, cell)
			}
			stack = append(stack, &frame{cell: to, depth: f.depth + 1})
			continue
		}

		entries := t.graph.TraceEdges[f.cell.Node]
		if f.entry >= len(entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entryIdx := f.entry
		entry := entries[entryIdx]
		f.entry++
		f.targets, f.next = nil, 0
		if entry.Provenance == NoProvenance {
			continue
		}
		m, err := t.indexMap(f.cell.Node, entryIdx, entry.Provenance)
		if err != nil {
			return edges, err
		}
		f.current = entry
		if f.cell.Index < len(m) {
			f.targets = m[f.cell.Index]
		}
	}
	return edges, nil
}

func (t *Tracer) indexMap(node string, entry int, literal string) ([][]int, error) {
	key := mapKey{node: node, entry: entry}
	if m, ok := t.maps[key]; ok {
		return m, nil
	}
	var m [][]int
	if err := json.Unmarshal([]byte(literal), &m); err != nil {
		return nil, fmt.Errorf("%w: node %s entry %d: %v", ErrBadProvenance, node, entry, err)
	}
	t.maps[key] = m
	return m, nil
}
