package sim

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Report output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var validFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
	FormatYAML: true,
}

// IsValidFormat returns true if Render accepts the format.
func IsValidFormat(format string) bool {
	return validFormats[format]
}

// OccupancyRow is the share of simulated time spent with State customers in the system.
type OccupancyRow struct {
	State              int     `json:"state" yaml:"state"`
	ProbabilityPercent float64 `json:"probability_percent" yaml:"probability_percent"`
	AccumulatedTime    float64 `json:"accumulated_time" yaml:"accumulated_time"`
}

// Report is the read-only projection of a finished run.
type Report struct {
	Model      string           `json:"model" yaml:"model"`
	Seed       int64            `json:"seed" yaml:"seed"`
	Config     SimulationConfig `json:"config" yaml:"config"`
	FinalClock float64          `json:"final_clock" yaml:"final_clock"`
	Lost       int64            `json:"lost" yaml:"lost"`
	DrawsUsed  int64            `json:"draws_used" yaml:"draws_used"`
	Arrivals   int64            `json:"arrivals" yaml:"arrivals"`
	Admitted   int64            `json:"admitted" yaml:"admitted"`
	Departures int64            `json:"departures" yaml:"departures"`
	Events     int64            `json:"events" yaml:"events"`
	Occupancy  []OccupancyRow   `json:"occupancy" yaml:"occupancy"`

	MeanOccupancy float64 `json:"mean_occupancy" yaml:"mean_occupancy"` // L = sum(n * p_n)
	LossFraction  float64 `json:"loss_fraction" yaml:"loss_fraction"`   // Lost / Arrivals
	Throughput    float64 `json:"throughput" yaml:"throughput"`         // departures per unit of simulated time
	Utilization   float64 `json:"utilization" yaml:"utilization"`       // mean fraction of busy servers
}

// Report derives occupancy probabilities and loss statistics from the current state.
// It fails with a *DivisionByZeroError when the clock never advanced.
func (sim *Simulator) Report() (*Report, error) {
	return BuildReport(sim.InitialSeed, sim.Config, sim.Snapshot())
}

// BuildReport projects a snapshot into a Report without touching the simulator.
func BuildReport(seed int64, cfg SimulationConfig, st State) (*Report, error) {
	if st.Clock == 0 {
		return nil, &DivisionByZeroError{Quantity: "occupancy probabilities"}
	}

	m := st.Metrics
	r := &Report{
		Model:      cfg.Notation(),
		Seed:       seed,
		Config:     cfg,
		FinalClock: st.Clock,
		Lost:       m.Lost,
		DrawsUsed:  st.DrawsUsed,
		Arrivals:   m.Arrivals,
		Admitted:   m.Admitted,
		Departures: m.Departures,
		Events:     m.Events,
		Occupancy:  make([]OccupancyRow, len(m.TimeInState)),
	}

	probs := make([]float64, len(m.TimeInState))
	busy := make([]float64, len(m.TimeInState))
	for i, t := range m.TimeInState {
		probs[i] = t / st.Clock
		busy[i] = float64(min(i, cfg.Servers))
		r.Occupancy[i] = OccupancyRow{
			State:              i,
			ProbabilityPercent: probs[i] * 100,
			AccumulatedTime:    t,
		}
	}

	states := make([]float64, len(probs))
	for i := range states {
		states[i] = float64(i)
	}
	r.MeanOccupancy = floats.Dot(states, probs)
	r.Utilization = floats.Dot(busy, probs) / float64(cfg.Servers)
	r.Throughput = float64(m.Departures) / st.Clock
	if m.Arrivals > 0 {
		r.LossFraction = float64(m.Lost) / float64(m.Arrivals)
	}
	return r, nil
}

// TotalProbabilityPercent sums the occupancy column; 100 up to rounding.
func (r *Report) TotalProbabilityPercent() float64 {
	p := make([]float64, len(r.Occupancy))
	for i, row := range r.Occupancy {
		p[i] = row.ProbabilityPercent
	}
	return floats.Sum(p)
}

// Render writes the report to w in the given format (text, json or yaml).
func (r *Report) Render(w io.Writer, format string) error {
	switch format {
	case FormatText, "":
		_, err := io.WriteString(w, r.String())
		return err
	case FormatJSON:
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q; valid: text, json, yaml", format)
	}
}

// String renders the human-readable table.
func (r *Report) String() string {
	var sb strings.Builder
	c := r.Config
	sb.WriteString("\n=== SIMULATION RESULTS ===\n")
	fmt.Fprintf(&sb, "Configuration: %s (%s mode)\n", r.Model, c.EffectiveMode())
	fmt.Fprintf(&sb, "Arrivals: %.2f..%.2f | Service: %.2f..%.2f\n", c.MinArrival, c.MaxArrival, c.MinService, c.MaxService)
	fmt.Fprintf(&sb, "Global time: %.2f\n", r.FinalClock)
	fmt.Fprintf(&sb, "Lost customers: %d\n", r.Lost)
	fmt.Fprintf(&sb, "Random draws used: %d\n", r.DrawsUsed)
	sb.WriteString("\nOccupancy probability distribution:\n")
	for _, row := range r.Occupancy {
		fmt.Fprintf(&sb, "State %d: %.2f%% (Accumulated time: %.2f)\n", row.State, row.ProbabilityPercent, row.AccumulatedTime)
	}
	fmt.Fprintf(&sb, "\nMean occupancy: %.4f\n", r.MeanOccupancy)
	fmt.Fprintf(&sb, "Loss fraction : %.4f\n", r.LossFraction)
	fmt.Fprintf(&sb, "Throughput    : %.4f\n", r.Throughput)
	fmt.Fprintf(&sb, "Utilization   : %.4f\n", r.Utilization)
	return sb.String()
}
