// Package cmd provides the command-line interface of hvmm.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the hvmm command with all its subcommands. Flag
// defaults are taken from the environment at the time of the call.
func NewRootCmd() *cobra.Command {
	o := defaultOptions()

	rootCmd := &cobra.Command{
		Use:   "hvmm",
		Short: "hvmm simulates where processes live in a RAM, swap and cache hierarchy.",
		Long: `hvmm simulates where processes live in a hierarchy made of a ` +
			`small cache, a RAM with a page-replacement policy and a swap ` +
			`area. Commands can be run from a script or driven from a ` +
			`browser through the monitor server.`,
		SilenceUsage: true,
	}

	registerEngineFlags(rootCmd, &o)

	rootCmd.AddCommand(newRunCmd(&o))
	rootCmd.AddCommand(newServeCmd(&o))
	rootCmd.AddCommand(newReportCmd())

	return rootCmd
}

// Execute loads .env, runs the command line and exits.
func Execute() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Cannot load .env: %v\n", err)
	}

	err = NewRootCmd().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
