package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	sim "github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/experiment"
	"github.com/inference-sim/queue-sim/sim/trace"
)

// envPrefix namespaces environment overrides: QSIM_SEED, QSIM_MIN_ARRIVAL, ...
const envPrefix = "QSIM"

// NewRootCmd builds the CLI tree. Each call gets its own flag set and
// viper instance so tests can execute commands independently.
// Precedence: flag > QSIM_* environment > --config file > flag default.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "queue-sim",
		Short:         "Discrete-event simulator for G/G/c/K queues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
				return err
			}
			level, err := logrus.ParseLevel(v.GetString("log"))
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", v.GetString("log"), err)
			}
			logrus.SetLevel(level)
			cmd.Flags().Visit(func(f *pflag.Flag) {
				logrus.Debugf("flag --%s=%s", f.Name, f.Value)
			})

			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config %s: %w", path, err)
				}
				logrus.Debugf("using config file %s", v.ConfigFileUsed())
			}
			if format := v.GetString("format"); !sim.IsValidFormat(format) {
				return fmt.Errorf("unknown --format %q; valid: text, json, yaml", format)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	pf.String("config", "", "Optional YAML/JSON/TOML file supplying flag values")
	pf.String("format", sim.FormatText, "Report format (text, json, yaml)")

	rootCmd.AddCommand(newRunCmd(v), newScenariosCmd(v), newDefaultsCmd(v))
	return rootCmd
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single G/G/c/K simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := v.GetInt64("seed")
			cfg := sim.SimulationConfig{
				Capacity:     v.GetInt("capacity"),
				Servers:      v.GetInt("servers"),
				MinArrival:   v.GetFloat64("min-arrival"),
				MaxArrival:   v.GetFloat64("max-arrival"),
				MinService:   v.GetFloat64("min-service"),
				MaxService:   v.GetFloat64("max-service"),
				DrawBudget:   v.GetInt64("draws"),
				FirstArrival: v.GetFloat64("first-arrival"),
				Mode:         sim.Mode(v.GetString("mode")),
				TraceLevel:   trace.TraceLevel(v.GetString("trace-level")),
			}

			s, err := sim.NewSimulationFromConfig(seed, cfg)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			log := logrus.WithField("run_id", runID)
			log.Infof("Starting %s simulation, seed=%d, draws=%d", cfg.Notation(), seed, cfg.DrawBudget)
			startTime := time.Now()

			s.Run()

			rep, err := s.Report()
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			out := cmd.OutOrStdout()
			if err := rep.Render(out, v.GetString("format")); err != nil {
				return err
			}
			if s.Trace != nil {
				printTraceSummary(out, trace.Summarize(s.Trace))
			}

			log.Infof("Simulation complete in %s", time.Since(startTime))
			return nil
		},
	}

	f := runCmd.Flags()
	f.Int64("seed", 42, "Seed for the random stream")
	f.Int("capacity", sim.DefaultCapacity, "K: maximum customers in the system")
	f.Int("servers", sim.DefaultServers, "c: number of parallel servers")
	f.Float64("min-arrival", sim.DefaultMinArrival, "Lower bound of the interarrival time")
	f.Float64("max-arrival", sim.DefaultMaxArrival, "Upper bound of the interarrival time")
	f.Float64("min-service", sim.DefaultMinService, "Lower bound of the service time")
	f.Float64("max-service", sim.DefaultMaxService, "Upper bound of the service time")
	f.Int64("draws", sim.DefaultDrawBudget, "N: random draws to consume before stopping")
	f.Float64("first-arrival", sim.DefaultFirstArrival, "Fixed time of the first arrival")
	f.String("mode", string(sim.ModeStrict), "Driver mode (strict, reference)")
	f.String("trace-level", string(trace.TraceLevelNone), "Event trace level (none, events)")
	return runCmd
}

func newScenariosCmd(v *viper.Viper) *cobra.Command {
	scenariosCmd := &cobra.Command{
		Use:   "scenarios [file]",
		Short: "Run a batch of independent simulations from a YAML scenario file",
		Long: "Runs every scenario in the file, in parallel when --parallelism allows.\n" +
			"Without a file the G/G/1/5 and G/G/2/5 reference pair is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				scenarios   []experiment.Scenario
				parallelism = v.GetInt("parallelism")
			)
			if len(args) == 1 {
				file, err := LoadScenarioFile(args[0])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("mode") {
					file.OverrideMode(v.GetString("mode"))
				}
				if scenarios, err = file.ToScenarios(); err != nil {
					return err
				}
				if !cmd.Flags().Changed("parallelism") && file.Parallelism > 0 {
					parallelism = file.Parallelism
				}
			} else {
				scenarios = experiment.ReferenceScenarios(sim.Mode(v.GetString("mode")))
			}

			results, err := experiment.Run(cmd.Context(), scenarios, parallelism)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			format := v.GetString("format")
			var errs []error
			for _, res := range results {
				if res.Err != nil {
					errs = append(errs, fmt.Errorf("scenario %q: %w", res.Scenario.Name, res.Err))
					continue
				}
				if format == sim.FormatText {
					fmt.Fprintf(out, "\n### %s (run %s)\n", res.Scenario.Name, res.RunID)
				}
				if err := res.Report.Render(out, format); err != nil {
					return err
				}
				if res.Trace != nil {
					printTraceSummary(out, res.Trace)
				}
			}
			for _, viol := range experiment.CompareLoss(results) {
				logrus.Warnf("loss grew with servers: %s", viol)
			}
			return errors.Join(errs...)
		},
	}
	scenariosCmd.Flags().Int("parallelism", 0, "Maximum concurrent runs (0 = one per scenario)")
	scenariosCmd.Flags().String("mode", string(sim.ModeStrict), "Driver mode; when set explicitly it overrides every scenario in the file")
	return scenariosCmd
}

func newDefaultsCmd(v *viper.Viper) *cobra.Command {
	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "Print the reference scenario file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := sim.Mode(v.GetString("mode"))
			if !sim.IsValidMode(string(mode)) {
				return fmt.Errorf("unknown --mode %q; valid: strict, reference", mode)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(DefaultScenarioFile(mode)); err != nil {
				return fmt.Errorf("encoding defaults: %w", err)
			}
			return enc.Close()
		},
	}
	defaultsCmd.Flags().String("mode", string(sim.ModeStrict), "Driver mode written into the file")
	return defaultsCmd
}

func printTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "\n=== Trace Summary ===")
	fmt.Fprintf(w, "Events: %d | Arrivals: %d (admitted %d, dropped %d) | Departures: %d\n",
		ts.TotalEvents, ts.Arrivals, ts.Admitted, ts.Dropped, ts.Departures)
	if ts.EmptyDepartures > 0 {
		fmt.Fprintf(w, "Empty departures (nobody served): %d\n", ts.EmptyDepartures)
	}
	fmt.Fprintf(w, "Peak occupancy: %d\n", ts.PeakOccupancy)
	servers := make([]int, 0, len(ts.DeparturesByServer))
	for id := range ts.DeparturesByServer {
		servers = append(servers, id)
	}
	sort.Ints(servers)
	for _, id := range servers {
		fmt.Fprintf(w, "  server %d: %d completions\n", id, ts.DeparturesByServer[id])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
