package tensor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrInvalidTensor is returned when editing a tensor whose literal did not parse.
	ErrInvalidTensor = errors.New("tensor is not valid")
	// ErrInvalidPath is returned for a cell path that does not address a cell.
	ErrInvalidPath = errors.New("invalid cell path")
)

// CoerceCell converts the raw text typed into a grid cell. A leading t or f
// (any case) is a boolean token; anything else is read as a number, with
// empty, unparsable and non-finite input falling back to 0.
func CoerceCell(raw string) any {
	if raw == "" {
		return float64(0)
	}
	switch raw[0] {
	case 't', 'T':
		return Bool(true)
	case 'f', 'F':
		return Bool(false)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return float64(0)
	}
	return n
}

// UpdateCellAt returns a copy of t with the cell at path set to the coerced
// raw text. t itself is not modified.
//
// A vector rendered as a single-row grid is addressed with a two element
// path whose first element is the row; that path writes value[path[1]].
func UpdateCellAt(t Tensor, path []int, raw string) (Tensor, error) {
	if !t.Valid() {
		return t, ErrInvalidTensor
	}
	if t.Layout == LayoutScalar || len(path) == 0 {
		return t, fmt.Errorf("%w: %v", ErrInvalidPath, path)
	}
	if t.Layout == LayoutVector && len(path) == 2 {
		path = path[1:]
	}

	out := t.Clone()
	pointer, ok := out.Value.([]any)
	if !ok {
		return t, fmt.Errorf("%w: %v", ErrInvalidPath, path)
	}
	for depth, i := range path[:len(path)-1] {
		if i < 0 || i >= len(pointer) {
			return t, fmt.Errorf("%w: index %d out of range at depth %d", ErrInvalidPath, i, depth)
		}
		next, ok := pointer[i].([]any)
		if !ok {
			return t, fmt.Errorf("%w: element at depth %d is not an array", ErrInvalidPath, depth)
		}
		pointer = next
	}
	last := path[len(path)-1]
	if last < 0 || last >= len(pointer) {
		return t, fmt.Errorf("%w: index %d out of range", ErrInvalidPath, last)
	}
	if _, isArray := pointer[last].([]any); isArray {
		return t, fmt.Errorf("%w: path %v addresses a sub-array", ErrInvalidPath, path)
	}
	pointer[last] = CoerceCell(raw)
	out.StringValue = Serialize(out.Value)
	return out, nil
}
