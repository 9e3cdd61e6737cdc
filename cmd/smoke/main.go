package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/handlers"
	"github.com/intent/dashboard/internal/session"
	flag "github.com/spf13/pflag"
)

// smoke drives a running dashboard end to end: it edits the test case, adds a
// solution, runs synthesis and prints the validation summaries.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "dashboard base URL")
	description := flag.String("description", "transpose the matrix", "synthesis description")
	expression := flag.String("expression", "tf.transpose(in1)", "user solution to validate")
	wait := flag.Duration("wait", 2*time.Minute, "maximum time to wait for synthesis")
	flag.Parse()

	api := strings.TrimRight(*baseURL, "/") + "/api/v1"
	client := &http.Client{Timeout: 10 * time.Second}

	// 1. Wait for the server
	var err error
	for i := 0; i < 10; i++ {
		var resp *http.Response
		resp, err = client.Get(strings.TrimRight(*baseURL, "/") + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		log.Printf("Waiting for server... %v", err)
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		log.Fatalf("Server not reachable after retries: %v", err)
	}

	// 2. Seed the test case
	log.Println("Seeding test case...")
	call(client, http.MethodPut, api+"/testcases/0/inputs/0", handlers.TextRequest{Text: "[[1, 2], [3, 4]]"}, http.StatusOK, nil)
	call(client, http.MethodPut, api+"/testcases/0/output", handlers.TextRequest{Text: "[[1, 3], [2, 4]]"}, http.StatusOK, nil)

	// 3. Add a user solution
	log.Printf("Adding solution %q...", *expression)
	call(client, http.MethodPost, api+"/solutions", handlers.ExpressionRequest{Expression: *expression}, http.StatusCreated, nil)

	// 4. Run synthesis
	log.Println("Starting synthesis...")
	var snap session.Snapshot
	call(client, http.MethodPost, api+"/synthesis", session.Request{Description: *description}, http.StatusAccepted, &snap)
	log.Printf("Session %s started", snap.SessionID)

	deadline := time.Now().Add(*wait)
	for snap.Synthesizing {
		if time.Now().After(deadline) {
			log.Println("Synthesis still running, aborting...")
			call(client, http.MethodPost, api+"/synthesis/abort", nil, http.StatusOK, nil)
			break
		}
		time.Sleep(time.Second)
		call(client, http.MethodGet, api+"/synthesis", nil, http.StatusOK, &snap)
	}
	log.Printf("Synthesis %s with %d solution(s) in %.1fs", snap.Status, snap.SolutionsFound, snap.ElapsedSeconds)

	// 5. Report validation
	var sols dashboard.Solutions
	for i := 0; i < 30; i++ {
		call(client, http.MethodGet, api+"/solutions", nil, http.StatusOK, &sols)
		if validated(sols) {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if !validated(sols) {
		log.Fatal("Solutions were not validated in time")
	}
	for i, s := range sols.Solutions {
		fmt.Printf("%2d  %-8s %-6s %s\n", i, s.Source, s.Label, s.Expression)
	}

	log.Println("SUCCESS: dashboard round trip completed")
}

func validated(sols dashboard.Solutions) bool {
	if len(sols.Solutions) == 0 {
		return false
	}
	for _, s := range sols.Solutions {
		if s.Summary == nil {
			return false
		}
	}
	return true
}

func call(client *http.Client, method, url string, body any, want int, out any) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("Failed to encode request: %v", err)
		}
		reader = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		log.Fatalf("%s %s: expected %d, got %d. Body: %s", method, url, want, resp.StatusCode, buf.String())
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("Failed to decode response: %v", err)
		}
	}
}
