package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/demo"
	"github.com/vango-dev/reconciler/pkg/engine"
	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/render"
	"github.com/vango-dev/reconciler/pkg/sched"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// demoStep is one scripted user action.
type demoStep struct {
	label string
	id    string
	event string
	value string
}

var demoScript = []demoStep{
	{"increment", "inc", "click", ""},
	{"increment", "inc", "click", ""},
	{"type a todo", "draft", "input", "write docs"},
	{"add it", "add", "click", ""},
	{"type another", "draft", "input", "ship it"},
	{"add it", "add", "click", ""},
	{"complete the first", "toggle-0", "click", ""},
	{"remove the first", "remove-0", "click", ""},
	{"decrement", "dec", "click", ""},
}

func demoCmd() *cobra.Command {
	var (
		frame   time.Duration
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Drive the demo app in memory",
		Long: `Mount the demo app on an in-memory host, replay a scripted series
of clicks and inputs, and print every commit. Each pass is run in
quanta of --frame, so slow passes show up as several quanta.

Examples:
  reconciler demo
  reconciler demo --frame=2ms -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(frame, verbose)
		},
	}

	cmd.Flags().DurationVar(&frame, "frame", 0, "Quantum per callback (default from scheduler.frame)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the host mutation log of each commit")

	return cmd
}

func runDemo(frame time.Duration, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if frame <= 0 {
		frame = cfg.Frame()
	}

	m := host.NewMemory()
	container := m.NewContainer("main")
	s := sched.NewManual()
	e := engine.New(m, s,
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithLogger(newLogger(cfg)),
		engine.OnCommit(func(ci engine.CommitInfo) {
			info("commit epoch=%d units=%d quanta=%d deletions=%d in %s",
				ci.Epoch, ci.Units, ci.Quanta, ci.Deletions, ci.Duration.Round(time.Microsecond))
			if verbose {
				for _, op := range m.Log() {
					info("  %s", op)
				}
			}
			m.ResetLog()
		}),
	)

	drain := func() error {
		s.Drain(func() sched.Deadline { return sched.After(frame) }, 0)
		return e.Err()
	}

	if err := e.Mount(container, demo.App()); err != nil {
		return err
	}
	success("mount")
	if err := drain(); err != nil {
		return err
	}

	for _, step := range demoScript {
		n := container.ByID(step.id)
		if n == nil {
			return fmt.Errorf("demo: no element #%s", step.id)
		}
		success("%s (#%s %s)", step.label, step.id, step.event)
		if !m.Dispatch(n, step.event, vdom.Event{Value: step.value}) {
			return fmt.Errorf("demo: no %s listener on #%s", step.event, step.id)
		}
		if err := drain(); err != nil {
			return err
		}
	}

	fmt.Println()
	r := render.NewRenderer(render.RendererConfig{Pretty: true})
	return r.RenderChildren(os.Stdout, container)
}
