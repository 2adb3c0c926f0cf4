package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/hvmm/datarecording"
	"github.com/sarchlab/hvmm/tracing"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <recording>",
		Short: "Summarize a recording made with --record.",
		Long: "Report reads a recording back and prints how the program was " +
			"run, how many operations failed, the final statistics and the " +
			"number of events of each kind. The .sqlite3 suffix may be omitted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasSuffix(path, ".sqlite3") {
				path += ".sqlite3"
			}

			reader, err := datarecording.Open(path)
			if err != nil {
				return err
			}
			defer reader.Close()

			report, err := tracing.ReadReport(cmd.Context(), reader)
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)

			return nil
		},
	}
}

func printReport(w io.Writer, r tracing.Report) {
	for _, e := range r.Exec {
		fmt.Fprintf(w, "%-18s %s\n", e.Property, e.Value)
	}

	fmt.Fprintf(w, "operations %d", r.Operations)
	if r.Failed > 0 {
		fmt.Fprintf(w, " (%d failed)", r.Failed)
	}
	fmt.Fprintln(w)

	if f := r.Final; f != nil {
		fmt.Fprintf(w, "final t=%d: ram %d, swap %d, cache %d, dirty %d\n",
			f.Time, f.RAM, f.Swap, f.Cache, f.Dirty)
		fmt.Fprintf(w, "hit rate %s, fault rate %s, write-backs %d",
			f.HitRate, f.FaultRate, f.WriteBacks)

		if f.Thrashing {
			fmt.Fprint(w, ", thrashing")
		}

		fmt.Fprintln(w)
	}

	kinds := make([]string, 0, len(r.Events))
	for k := range r.Events {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	for _, k := range kinds {
		fmt.Fprintf(w, "%-18s %d\n", k, r.Events[k])
	}
}
