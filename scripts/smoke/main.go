// Command smoke probes a running campus-booking-api instance and reports
// which endpoints respond as expected. It is a deployment check, not a test
// suite: it only asserts status codes, never payload contents.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type result struct {
	Target   target
	Status   int
	Match    bool
	Err      error
	Duration time.Duration
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/metrics", Expect: http.StatusOK},
	{Method: http.MethodGet, Path: "/api/v1/classrooms", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/schedules", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/bookings", Expect: http.StatusUnauthorized, Critical: true},
}

func main() {
	var (
		base        string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Optional JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	for _, t := range targets {
		res := probe(client, base, t)
		status := "ok"
		if res.Err != nil {
			status = fmt.Sprintf("error: %v", res.Err)
		} else if !res.Match {
			status = fmt.Sprintf("got %d, want %d", res.Status, t.Expect)
		}
		fmt.Printf("%-6s %-32s %-10s %s\n", t.Method, t.Path, res.Duration.Round(time.Millisecond), status)
		if (res.Err != nil || !res.Match) && t.Critical {
			failures++
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d critical endpoint(s) failing\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nall critical endpoints healthy")
}

func loadTargets(path string) ([]target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultTargets, nil
		}
		return nil, err
	}
	var targets []target
	if err := json.Unmarshal(raw, &targets); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(targets) == 0 {
		return defaultTargets, nil
	}
	return targets, nil
}

func probe(client *http.Client, base string, t target) result {
	start := time.Now()
	req, err := http.NewRequest(t.Method, base+t.Path, nil)
	if err != nil {
		return result{Target: t, Err: err, Duration: time.Since(start)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return result{Target: t, Err: err, Duration: time.Since(start)}
	}
	defer resp.Body.Close()
	return result{
		Target:   t,
		Status:   resp.StatusCode,
		Match:    resp.StatusCode == t.Expect,
		Duration: time.Since(start),
	}
}
