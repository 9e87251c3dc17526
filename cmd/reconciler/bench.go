package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/demo"
	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

type benchConfig struct {
	Rows  int
	Ticks int
	Frame time.Duration
	JSON  bool
}

type benchResult struct {
	Rows       int               `json:"rows"`
	Ticks      int               `json:"ticks"`
	Frame      string            `json:"frame"`
	Passes     int               `json:"passes"`
	Units      int               `json:"units"`
	AvgQuanta  float64           `json:"avg_quanta"`
	P50        string            `json:"p50"`
	P99        string            `json:"p99"`
	Max        string            `json:"max"`
	Throughput float64           `json:"units_per_second"`
	Counters   map[string]uint64 `json:"counters"`
}

func benchCmd() *cobra.Command {
	var bc benchConfig

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure reconciliation passes over a large list",
		Long: `Mount a list of --rows rows and re-render all of them --ticks
times. Each pass runs in quanta of --frame on a manual scheduler,
so the report shows how many quanta a pass needs as well as its
duration.

Examples:
  reconciler bench
  reconciler bench --rows=10000 --ticks=20 --frame=4ms
  reconciler bench --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(bc)
		},
	}

	cmd.Flags().IntVar(&bc.Rows, "rows", 1000, "Rows to render")
	cmd.Flags().IntVar(&bc.Ticks, "ticks", 50, "Re-renders to measure")
	cmd.Flags().DurationVar(&bc.Frame, "frame", 0, "Quantum per callback (default from scheduler.frame)")
	cmd.Flags().BoolVar(&bc.JSON, "json", false, "Print the result as JSON")

	return cmd
}

func runBench(bc benchConfig) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if bc.Frame <= 0 {
		bc.Frame = cfg.Frame()
	}
	if bc.Rows <= 0 || bc.Ticks <= 0 {
		return fmt.Errorf("bench: --rows and --ticks must be positive")
	}

	reg := prometheus.NewRegistry()
	m := host.NewMemory()
	container := m.NewContainer("main")
	s := sched.NewManual()

	var commits []engine.CommitInfo
	e := engine.New(m, s,
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithLogger(newLogger(cfg)),
		engine.WithMetrics(engine.NewMetrics(engine.WithRegistry(reg), engine.WithNamespace(cfg.Metrics.Namespace))),
		engine.OnCommit(func(ci engine.CommitInfo) {
			commits = append(commits, ci)
			m.ResetLog()
		}),
	)
	drain := func() error {
		s.Drain(func() sched.Deadline { return sched.After(bc.Frame) }, 0)
		return e.Err()
	}

	if err := e.Mount(container, vdom.C(demo.Rows, vdom.Prop("n", bc.Rows))); err != nil {
		return err
	}
	if err := drain(); err != nil {
		return err
	}
	tick := container.ByID("tick")
	commits = commits[:0]

	start := time.Now()
	for i := 0; i < bc.Ticks; i++ {
		if !m.Dispatch(tick, "click", vdom.Event{}) {
			return fmt.Errorf("bench: tick button has no listener")
		}
		if err := drain(); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	res := summarize(bc, commits, elapsed)
	res.Counters, err = gatherCounters(reg)
	if err != nil {
		return err
	}

	if bc.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printBench(res)
	return nil
}

func summarize(bc benchConfig, commits []engine.CommitInfo, elapsed time.Duration) benchResult {
	res := benchResult{
		Rows:   bc.Rows,
		Ticks:  bc.Ticks,
		Frame:  bc.Frame.String(),
		Passes: len(commits),
	}
	if len(commits) == 0 {
		return res
	}

	durations := make([]time.Duration, len(commits))
	quanta := 0
	for i, ci := range commits {
		durations[i] = ci.Duration
		res.Units += ci.Units
		quanta += ci.Quanta
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	res.AvgQuanta = float64(quanta) / float64(len(commits))
	res.P50 = percentile(durations, 0.50).String()
	res.P99 = percentile(durations, 0.99).String()
	res.Max = durations[len(durations)-1].String()
	if elapsed > 0 {
		res.Throughput = float64(res.Units) / elapsed.Seconds()
	}
	return res
}

// percentile returns the p-th value of sorted durations.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// gatherCounters flattens the registry's counters into name{labels} keys.
func gatherCounters(reg *prometheus.Registry) (map[string]uint64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]uint64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			var labels []string
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			out[key] = uint64(metric.GetCounter().GetValue())
		}
	}
	return out, nil
}

func printBench(res benchResult) {
	fmt.Println()
	success("%d rows, %d ticks, frame %s", res.Rows, res.Ticks, res.Frame)
	info("passes:      %d", res.Passes)
	info("units:       %d (%.0f/s)", res.Units, res.Throughput)
	info("quanta/pass: %.2f", res.AvgQuanta)
	info("p50:         %s", res.P50)
	info("p99:         %s", res.P99)
	info("max:         %s", res.Max)

	keys := make([]string, 0, len(res.Counters))
	for k := range res.Counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println()
	for _, k := range keys {
		info("%-50s %d", k, res.Counters[k])
	}
	fmt.Println()
}
