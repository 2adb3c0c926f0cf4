package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd(o *options) *cobra.Command {
	var summary bool

	runCmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Run a command script.",
		Long: "Run executes one command per line, reading the script from " +
			"the file or from stdin when the file is omitted or \"-\". " +
			"Commands are allocate, access, dirty, cache, clear-cache, " +
			"terminate, reconfigure, policy, reset, snapshot, describe and " +
			"history. allocate and access pick a random process when the " +
			"process is omitted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()

			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				in = f
			}

			return runScript(*o, in, cmd.OutOrStdout(), cmd.ErrOrStderr(), summary)
		},
	}

	runCmd.Flags().BoolVar(&summary, "summary", false,
		"print operation and event counts on stderr at the end")

	return runCmd
}

func runScript(
	o options,
	in io.Reader,
	out, errOut io.Writer,
	summary bool,
) error {
	commands, err := parseScript(in)
	if err != nil {
		return err
	}

	s, err := o.buildSimulation(errOut, false, 0)
	if err != nil {
		return err
	}

	runner := newScriptRunner(s.GetEngine(), out)
	runner.Run(commands)

	if summary {
		printSummary(errOut, s.GetCounter())
	}

	err = s.Terminate()
	if err != nil {
		return err
	}

	if runner.failures > 0 {
		fmt.Fprintf(errOut, "%d of %d commands failed\n",
			runner.failures, len(commands))
	}

	return nil
}
