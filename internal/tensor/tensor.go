package tensor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MaxRank bounds the nesting depth accepted by the codec.
const MaxRank = 32

// Bool is the bare True/False token of the literal syntax. It is distinct
// from JSON booleans, which are rejected.
type Bool bool

const (
	trueToken  = "True"
	falseToken = "False"
)

func (b Bool) String() string {
	if b {
		return trueToken
	}
	return falseToken
}

// MarshalJSON encodes the token as its sentinel string. Serialize strips
// the quotes again.
func (b Bool) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(b.String())), nil
}

// Shape is the ordered list of dimension lengths. A nil Shape marks an
// invalid literal, an empty one a scalar.
type Shape []int

// Equal reports element-wise equality. Two nil shapes are equal.
func (s Shape) Equal(o Shape) bool {
	if (s == nil) != (o == nil) || len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	if s == nil {
		return "null"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Layout is the rank variant of a tensor, resolved once when the tensor is built.
type Layout int

const (
	LayoutInvalid Layout = iota
	LayoutScalar
	LayoutVector
	LayoutMatrix
	LayoutStacked
)

func (l Layout) String() string {
	switch l {
	case LayoutScalar:
		return "scalar"
	case LayoutVector:
		return "vector"
	case LayoutMatrix:
		return "matrix"
	case LayoutStacked:
		return "stacked"
	}
	return "invalid"
}

// MarshalJSON renders the layout name.
func (l Layout) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON parses a layout name written by MarshalJSON.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	for _, v := range []Layout{LayoutInvalid, LayoutScalar, LayoutVector, LayoutMatrix, LayoutStacked} {
		if v.String() == name {
			*l = v
			return nil
		}
	}
	return fmt.Errorf("unknown layout %q", name)
}

// LayoutOf maps a shape onto its rank variant.
func LayoutOf(shape Shape) Layout {
	switch {
	case shape == nil:
		return LayoutInvalid
	case len(shape) == 0:
		return LayoutScalar
	case len(shape) == 1:
		return LayoutVector
	case len(shape) == 2:
		return LayoutMatrix
	}
	return LayoutStacked
}

// Tensor is one input or output literal of a test case.
type Tensor struct {
	Index       int    `json:"index"`
	Value       any    `json:"value"`
	Shape       Shape  `json:"shape"`
	StringValue string `json:"stringValue"`
	Layout      Layout `json:"layout"`
}

// New parses text into a tensor. Invalid literals keep their raw text so
// editing can continue.
func New(index int, text string) Tensor {
	value, shape := Parse(text)
	return Tensor{
		Index:       index,
		Value:       value,
		Shape:       shape,
		StringValue: text,
		Layout:      LayoutOf(shape),
	}
}

// Blank returns an empty, invalid tensor.
func Blank(index int) Tensor {
	return Tensor{Index: index}
}

// Valid reports whether the literal parsed into a rectangular tensor.
func (t Tensor) Valid() bool {
	return t.Shape != nil
}

// Clone returns a deep copy of t.
func (t Tensor) Clone() Tensor {
	c := t
	c.Value = cloneValue(t.Value, MaxRank)
	if t.Shape != nil {
		c.Shape = append(Shape{}, t.Shape...)
	}
	return c
}

// WithIndex returns a copy of t re-numbered to index.
func (t Tensor) WithIndex(index int) Tensor {
	c := t.Clone()
	c.Index = index
	return c
}

func cloneValue(v any, depth int) any {
	arr, ok := v.([]any)
	if !ok || depth == 0 {
		return v
	}
	out := make([]any, len(arr))
	for i, e := range arr {
		out[i] = cloneValue(e, depth-1)
	}
	return out
}
