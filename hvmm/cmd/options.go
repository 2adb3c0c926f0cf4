package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/hvmm/mem/vm/eviction"
	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/simulation"
	"github.com/sarchlab/hvmm/tracing"
)

// Environment variables that provide flag defaults.
const (
	EnvRAM      = "HVMM_RAM"
	EnvSwap     = "HVMM_SWAP"
	EnvCache    = "HVMM_CACHE"
	EnvPolicy   = "HVMM_POLICY"
	EnvSeed     = "HVMM_SEED"
	EnvLogLevel = "HVMM_LOG_LEVEL"
)

// autoRecord is the value of a bare --record flag. The simulation then picks
// a unique file name.
const autoRecord = "auto"

type options struct {
	ram      int
	swap     int
	cache    int
	policy   string
	seed     int64
	logLevel string
	record   string
}

func defaultOptions() options {
	d := placement.DefaultConfig()

	return options{
		ram:      envInt(EnvRAM, d.RAMCapacity),
		swap:     envInt(EnvSwap, d.SwapCapacity),
		cache:    envInt(EnvCache, d.CacheCapacity),
		policy:   envString(EnvPolicy, d.Policy.String()),
		seed:     int64(envInt(EnvSeed, 1)),
		logLevel: envString(EnvLogLevel, "info"),
	}
}

func envString(name, fallback string) string {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback
	}

	return v
}

func envInt(name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr,
			"Ignoring %s=%q, it is not an integer. Using %d instead.\n",
			name, v, fallback)
		return fallback
	}

	return n
}

func registerEngineFlags(c *cobra.Command, o *options) {
	flags := c.PersistentFlags()

	flags.IntVar(&o.ram, "ram", o.ram, "number of RAM slots")
	flags.IntVar(&o.swap, "swap", o.swap, "number of swap slots")
	flags.IntVar(&o.cache, "cache", o.cache, "number of cache slots, 0 disables the cache")
	flags.StringVar(&o.policy, "policy", o.policy,
		"page-replacement policy (FIFO, LRU, LFU, LIFO, MRU, Random)")
	flags.Int64Var(&o.seed, "seed", o.seed, "seed of the random source")
	flags.StringVar(&o.logLevel, "log-level", o.logLevel,
		"how much to log on stderr (quiet, info, debug)")
	flags.StringVar(&o.record, "record", "",
		"record events and statistics into <file>.sqlite3, use --record=<file>")
	flags.Lookup("record").NoOptDefVal = autoRecord
}

func (o options) config() (placement.Config, error) {
	p, err := eviction.ParsePolicy(o.policy)
	if err != nil {
		return placement.Config{}, err
	}

	c := placement.Config{
		RAMCapacity:   o.ram,
		SwapCapacity:  o.swap,
		CacheCapacity: o.cache,
		Policy:        p,
	}

	return c, c.Validate()
}

func (o options) buildSimulation(
	logOut io.Writer,
	monitorOn bool,
	monitorPort int,
) (*simulation.Simulation, error) {
	c, err := o.config()
	if err != nil {
		return nil, err
	}

	level, err := tracing.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}

	b := simulation.MakeBuilder().
		WithConfig(c).
		WithSeed(o.seed).
		WithLogLevel(level).
		WithLogOutput(logOut)

	switch o.record {
	case "":
	case autoRecord:
		b = b.WithRecording()
	default:
		_, err = os.Stat(o.record + ".sqlite3")
		if err == nil {
			return nil, fmt.Errorf("file %s.sqlite3 already exists", o.record)
		}

		b = b.WithOutputFileName(o.record)
	}

	if monitorOn {
		b = b.WithMonitor().WithMonitorPort(monitorPort)
	}

	return b.Build(), nil
}

// operations lists the engine operations in the order they are summarized.
var operations = []string{
	placement.OpAllocate,
	placement.OpAccess,
	placement.OpMarkDirty,
	placement.OpAddToCache,
	placement.OpClearCache,
	placement.OpTerminate,
	placement.OpReconfigure,
	placement.OpSetPolicy,
	placement.OpReset,
}

func printSummary(w io.Writer, counter *tracing.CountTracer) {
	for _, op := range operations {
		total, failed := counter.OperationCount(op)
		if total == 0 {
			continue
		}

		fmt.Fprintf(w, "%-13s %d", op, total)

		if failed > 0 {
			fmt.Fprintf(w, " (%d failed)", failed)
		}

		fmt.Fprintln(w)
	}

	for _, kind := range counter.Kinds() {
		fmt.Fprintf(w, "%-18s %d\n", kind, counter.EventCount(kind))
	}
}
