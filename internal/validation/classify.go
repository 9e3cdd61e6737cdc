package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/intent/dashboard/internal/models"
)

var undefinedName = regexp.MustCompile(`name '(.*)' is not defined`)

// Classify turns the backend's raw evaluation error into a message for the
// expression editor.
func Classify(raw string) string {
	if strings.Contains(raw, "unexpected EOF") || strings.Contains(raw, "invalid syntax") {
		return "invalid syntax"
	}
	if m := undefinedName.FindStringSubmatch(raw); m != nil {
		if num, ok := strings.CutPrefix(m[1], "in"); ok {
			if _, err := strconv.Atoi(num); err == nil {
				return fmt.Sprintf("input tensor %s does not exist", num)
			}
		}
	}
	return raw
}

// DraftError reports the first test case on which the solution raised, or
// "" when none did.
func DraftError(results models.Results, solution int) string {
	for i := 0; i < results.ExampleCount(); i++ {
		e, ok := results.Lookup(i, solution)
		if ok && e.Exception {
			return fmt.Sprintf("Exception when evaluating test case %d: %s", i+1, Classify(e.EvalOutput))
		}
	}
	return ""
}

// Summary is the pass count of one solution over all test cases.
type Summary struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
	// Failed lists 1-based test case numbers.
	Failed []int `json:"failed"`
}

// Label is the tooltip text of the summary.
func (s Summary) Label() string {
	if s.Passed == s.Total {
		return "Passed all test cases"
	}
	nums := make([]string, len(s.Failed))
	for i, n := range s.Failed {
		nums[i] = strconv.Itoa(n)
	}
	plural := "s"
	if len(s.Failed) == 1 {
		plural = ""
	}
	return "Failed on test case" + plural + " " + strings.Join(nums, ", ")
}

// Summarize counts the test cases solution passes. It returns false when
// the results do not cover the solution yet.
func Summarize(results models.Results, solution int) (Summary, bool) {
	if _, ok := results.Lookup(0, solution); !ok {
		return Summary{}, false
	}
	s := Summary{Failed: []int{}}
	for i := 0; i < results.ExampleCount(); i++ {
		s.Total++
		if e, ok := results.Lookup(i, solution); ok && e.Match {
			s.Passed++
		} else {
			s.Failed = append(s.Failed, i+1)
		}
	}
	return s, true
}

// Explain describes why a solution does not reproduce a test case's
// expected output. It returns "" for a match.
func Explain(expected string, e models.Evaluation) string {
	switch {
	case e.Exception:
		return "Exception: " + e.EvalOutput
	case !e.Match:
		return fmt.Sprintf("Expected tensor %s but got %s", stripSpaces(expected), stripSpaces(e.EvalOutput))
	}
	return ""
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
