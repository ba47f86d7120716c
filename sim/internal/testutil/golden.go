// Package testutil provides shared test infrastructure for the queue simulator.
// It consolidates golden dataset types and assertion helpers used across
// sim/ and sim/experiment/ test packages.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	jsoniter "github.com/json-iterator/go"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase represents a single configuration and its expected outcome.
type GoldenTestCase struct {
	Name       string        `json:"name"`
	Seed       int64         `json:"seed"`
	Capacity   int           `json:"capacity"`
	Servers    int           `json:"servers"`
	MinArrival float64       `json:"min_arrival"`
	MaxArrival float64       `json:"max_arrival"`
	MinService float64       `json:"min_service"`
	MaxService float64       `json:"max_service"`
	DrawBudget int64         `json:"draw_budget"`
	Mode       string        `json:"mode"`
	Metrics    GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected metrics from a golden test case.
type GoldenMetrics struct {
	// Exact match metrics (integers)
	Lost       int64 `json:"lost"`
	DrawsUsed  int64 `json:"draws_used"`
	Arrivals   int64 `json:"arrivals"`
	Admitted   int64 `json:"admitted"`
	Departures int64 `json:"departures"`

	// Deterministic floating-point metrics (derived from simulation clock)
	FinalClock  float64   `json:"final_clock"`
	TimeInState []float64 `json:"time_in_state"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// FindGoldenCase returns the named case or fails the test.
func FindGoldenCase(t *testing.T, ds *GoldenDataset, name string) GoldenTestCase {
	t.Helper()
	for _, tc := range ds.Tests {
		if tc.Name == name {
			return tc
		}
	}
	t.Fatalf("golden case %q not found", name)
	return GoldenTestCase{}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
