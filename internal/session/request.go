package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/intent/dashboard/internal/testcase"
)

// Notification texts shown to the user.
const (
	MsgInvalidTestCases = "Errors are found in the test cases. Please fix them before continuing."
	MsgEmptyDescription = "You must enter the description for the tensor manipulation."
	MsgInvalidConstants = "Constants must be a comma-separated list of numbers."
	MsgSolveFailed      = "Failed to start the synthesizer."
	MsgNoSolutions      = "No solutions found!"
	MsgPollFailed       = "Failed to poll synthesizer data."
	MsgAbortFailed      = "Synthesizer failed to abort."
)

var (
	// ErrInvalidTestCases is returned by Submit while any tensor is invalid.
	ErrInvalidTestCases = testcase.ErrInvalidTestCases
	// ErrEmptyDescription is returned by Submit for a blank description.
	ErrEmptyDescription = errors.New("description is required")
	// ErrInvalidConstants is returned for a constant that is not a number.
	ErrInvalidConstants = errors.New("invalid constant")
)

// Request is what the user fills in before starting synthesis.
type Request struct {
	Description string `json:"description"`
	// Constants is a comma separated list of scalar constants, e.g. "0, 1.5".
	Constants     string `json:"constants"`
	Timeout       int    `json:"timeout"`
	SolutionCount int    `json:"sol_num"`
}

// ParseConstants converts the comma separated constants field into the JSON
// array string the backend expects. Blank input yields "[]".
func ParseConstants(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "[]", nil
	}
	parts := strings.Split(text, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidConstants, strings.TrimSpace(part))
		}
		values = append(values, v)
	}
	b, err := json.Marshal(values)
	if err != nil {
		// NaN and Inf are accepted by ParseFloat but not by JSON.
		return "", fmt.Errorf("%w: %v", ErrInvalidConstants, err)
	}
	return string(b), nil
}
