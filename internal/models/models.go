package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/intent/dashboard/internal/provenance"
)

// SessionID is the opaque session token issued by the synthesis backend.
// The backend issues numeric ids; they are kept verbatim and echoed back as
// JSON numbers so the backend can look them up again.
type SessionID string

// IsZero reports whether no session id is set.
func (id SessionID) IsZero() bool {
	return id == ""
}

func (id SessionID) numeric() bool {
	if id == "" {
		return false
	}
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

// MarshalJSON emits numeric ids as numbers and anything else as a string.
func (id SessionID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number or string.
func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	*id = SessionID(n.String())
	return nil
}

// LiteralTable is the per-pair tensor literal table of a request. It encodes
// as {"1": {"1": literal, "2": literal}, "2": {...}} with keys in numeric
// order, since the backend pairs inputs and outputs by iteration order.
type LiteralTable [][]string

// MarshalJSON writes the table with ordered, 1-based keys.
func (t LiteralTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, row := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"%d":{`, i+1)
		for j, literal := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			lit, err := json.Marshal(literal)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&buf, `"%d":`, j+1)
			buf.Write(lit)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a table written by MarshalJSON. Keys must be the
// integers 1..n.
func (t *LiteralTable) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	table := make(LiteralTable, len(raw))
	for key, row := range raw {
		i, err := strconv.Atoi(key)
		if err != nil || i < 1 || i > len(raw) {
			return fmt.Errorf("literal table: bad pair key %q", key)
		}
		cells := make([]string, len(row))
		for k, literal := range row {
			j, err := strconv.Atoi(k)
			if err != nil || j < 1 || j > len(row) {
				return fmt.Errorf("literal table: bad tensor key %q in pair %s", k, key)
			}
			cells[j-1] = literal
		}
		table[i-1] = cells
	}
	*t = table
	return nil
}

// SolveRequest is the body of POST /solve.
type SolveRequest struct {
	Description string            `json:"description"`
	Constraints string            `json:"constraints"`
	Timeout     int               `json:"timeout"`
	SolNum      int               `json:"sol_num"`
	Inputs      LiteralTable      `json:"inputs"`
	Outputs     LiteralTable      `json:"outputs"`
	DesiredOp   map[string]string `json:"desired_op"`
	UndesiredOp map[string]string `json:"undesired_op"`
}

// SolveResponse is the reply to POST /solve.
type SolveResponse struct {
	SessionID SessionID `json:"session_id"`
}

// SynthesizedSolution is one solution reported by GET /poll.
type SynthesizedSolution struct {
	Expression string  `json:"expression"`
	Weight     int     `json:"weight,omitempty"`
	Time       float64 `json:"time"`
}

// PollResponse is the reply to GET /poll/{session_id}. Solutions are keyed
// solution0..solutionN.
type PollResponse struct {
	Completed bool                                     `json:"completed"`
	Solutions map[string]SynthesizedSolution           `json:"solutions"`
	Graphs    map[string]map[string]*provenance.Graph `json:"graphs"`
}

// OrderedSolutions returns the solutions in key order solution0, solution1, ...
// stopping at the first gap.
func (p PollResponse) OrderedSolutions() []SynthesizedSolution {
	var out []SynthesizedSolution
	for i := 0; ; i++ {
		s, ok := p.Solutions[SolutionKey(i)]
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	Inputs    LiteralTable      `json:"inputs"`
	Outputs   LiteralTable      `json:"outputs"`
	SessionID *SessionID        `json:"session_id,omitempty"`
	Solutions map[string]string `json:"solutions"`
}

// Evaluation is the backend's verdict for one (example, solution) pair.
type Evaluation struct {
	Match      bool              `json:"match"`
	Exception  bool              `json:"exception"`
	EvalOutput string            `json:"eval_output"`
	Graphs     *provenance.Graph `json:"graphs"`
}

// Results maps example{i} to solution{j} to the evaluation of that pair.
type Results map[string]map[string]Evaluation

// Lookup returns the evaluation of solution j on example i.
func (r Results) Lookup(example, solution int) (Evaluation, bool) {
	row, ok := r[ExampleKey(example)]
	if !ok {
		return Evaluation{}, false
	}
	e, ok := row[SolutionKey(solution)]
	return e, ok
}

// ExampleCount returns the number of consecutive example{i} keys from 0.
func (r Results) ExampleCount() int {
	n := 0
	for {
		if _, ok := r[ExampleKey(n)]; !ok {
			return n
		}
		n++
	}
}

// ExampleKey returns the result key of example i.
func ExampleKey(i int) string {
	return "example" + strconv.Itoa(i)
}

// SolutionKey returns the wire key of solution j.
func SolutionKey(j int) string {
	return "solution" + strconv.Itoa(j)
}

// ParseSolutionKey extracts j from "solution{j}".
func ParseSolutionKey(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "solution")
	if !ok {
		return 0, false
	}
	j, err := strconv.Atoi(rest)
	return j, err == nil && j >= 0
}
