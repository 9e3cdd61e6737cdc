package tensor

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"
)

var (
	tokenQuoter   = strings.NewReplacer(trueToken, `"`+trueToken+`"`, falseToken, `"`+falseToken+`"`)
	tokenUnquoter = strings.NewReplacer(`"`+trueToken+`"`, trueToken, `"`+falseToken+`"`, falseToken)
)

// Parse decodes a tensor literal. It returns (nil, nil) when the text is not
// valid JSON (with bare True/False tokens) or when the value is not a
// rectangular tensor.
func Parse(text string) (any, Shape) {
	dec := json.NewDecoder(strings.NewReader(tokenQuoter.Replace(text)))
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, nil
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil
	}
	value := restoreTokens(raw)
	shape := InferShape(value)
	if shape == nil {
		return nil, nil
	}
	return value, shape
}

// Serialize encodes a value produced by Parse or the edit model back into
// literal text.
func Serialize(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return tokenUnquoter.Replace(string(b))
}

// InferShape computes the shape of a nested value. Finite numbers and Bool
// tokens are scalars; arrays must be non-empty and every element must have
// the same shape. Anything else, or nesting deeper than MaxRank, yields nil.
func InferShape(value any) Shape {
	root, ok := value.([]any)
	if !ok {
		if isScalar(value) {
			return Shape{}
		}
		return nil
	}
	if len(root) == 0 {
		return nil
	}

	type frame struct {
		arr  []any
		next int
		elem Shape
		set  bool
	}
	stack := []*frame{{arr: root}}

	// merge folds a finished child shape into the frame on top of the stack.
	merge := func(s Shape) bool {
		top := stack[len(stack)-1]
		if !top.set {
			top.elem, top.set = s, true
			return true
		}
		return top.elem.Equal(s)
	}

	for {
		top := stack[len(stack)-1]
		if top.next < len(top.arr) {
			child := top.arr[top.next]
			top.next++
			if arr, ok := child.([]any); ok {
				if len(arr) == 0 || len(stack) >= MaxRank {
					return nil
				}
				stack = append(stack, &frame{arr: arr})
				continue
			}
			if !isScalar(child) || !merge(Shape{}) {
				return nil
			}
			continue
		}

		shape := append(Shape{len(top.arr)}, top.elem...)
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			return shape
		}
		if !merge(shape) {
			return nil
		}
	}
}

func isScalar(v any) bool {
	switch n := v.(type) {
	case Bool:
		return true
	case float64:
		return !math.IsInf(n, 0) && !math.IsNaN(n)
	case int:
		return true
	}
	return false
}

// restoreTokens swaps the sentinel strings back to Bool values in place.
// Arrays nested deeper than MaxRank are left alone; InferShape rejects them.
func restoreTokens(v any) any {
	convert := func(e any) any {
		if s, ok := e.(string); ok {
			switch s {
			case trueToken:
				return Bool(true)
			case falseToken:
				return Bool(false)
			}
		}
		return e
	}

	root, ok := v.([]any)
	if !ok {
		return convert(v)
	}

	type item struct {
		arr   []any
		depth int
	}
	queue := []item{{arr: root, depth: 1}}
	for len(queue) > 0 {
		it := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for i, e := range it.arr {
			if arr, ok := e.([]any); ok {
				if it.depth < MaxRank {
					queue = append(queue, item{arr: arr, depth: it.depth + 1})
				}
				continue
			}
			it.arr[i] = convert(e)
		}
	}
	return root
}
