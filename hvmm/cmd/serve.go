package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/monitoring"
)

type serveOptions struct {
	port int
	open bool
}

func newServeCmd(o *options) *cobra.Command {
	so := serveOptions{}

	serveCmd := &cobra.Command{
		Use:   "serve [script]",
		Short: "Serve the engine over HTTP.",
		Long: "Serve starts the monitor server, so that the engine can be " +
			"inspected and driven from a browser. If a script is given, it " +
			"is run first and its progress is shown on the web page.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.buildSimulation(cmd.ErrOrStderr(), true, so.port)
			if err != nil {
				return err
			}

			if so.open {
				err = browser.OpenURL(s.MonitorURL())
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Cannot open browser: %v\n", err)
				}
			}

			if len(args) == 1 {
				err = runScriptOnMonitor(
					s.GetEngine(), s.GetMonitor(), args[0], cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			waitForSignal()

			return s.Terminate()
		},
	}

	serveCmd.Flags().IntVar(&so.port, "port", 0,
		"port of the monitor server, a random port is used if 0")
	serveCmd.Flags().BoolVar(&so.open, "open", false,
		"open the monitor in a browser")

	return serveCmd
}

func runScriptOnMonitor(
	engine *placement.Engine,
	m *monitoring.Monitor,
	path string,
	out io.Writer,
) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	commands, err := parseScript(f)
	if err != nil {
		return err
	}

	bar := m.CreateProgressBar(path, uint64(len(commands)))
	defer m.CompleteProgressBar(bar)

	runner := newScriptRunner(engine, out)
	runner.guard = func(f func()) {
		bar.IncrementInProgress(1)
		m.Do(f)
	}
	runner.lineDone = func() {
		bar.MoveInProgressToFinished(1)
	}

	runner.Run(commands)

	return nil
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
