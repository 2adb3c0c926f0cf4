package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/eviction"
	"github.com/sarchlab/hvmm/mem/vm/placement"
)

// ErrSyntax is returned for script lines that cannot be understood.
var ErrSyntax = errors.New("syntax error")

// A scriptRunner executes script commands against an engine. Engine errors
// are reported on out and do not stop the script. Syntax errors do.
type scriptRunner struct {
	engine *placement.Engine
	out    io.Writer

	// guard runs an engine call. The monitor uses it to serialize the script
	// with HTTP requests.
	guard func(func())

	// lineDone is called after every executed line.
	lineDone func()

	failures int
}

func newScriptRunner(engine *placement.Engine, out io.Writer) *scriptRunner {
	return &scriptRunner{
		engine:   engine,
		out:      out,
		guard:    func(f func()) { f() },
		lineDone: func() {},
	}
}

// parseScript splits a script into commands. Blank lines and everything
// after # are dropped.
func parseScript(r io.Reader) ([][]string, error) {
	var commands [][]string

	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		err := checkSyntax(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}

		commands = append(commands, fields)
	}

	return commands, scanner.Err()
}

type commandShape struct {
	minArgs int
	maxArgs int
	usage   string
}

var commandShapes = map[string]commandShape{
	"allocate":    {0, 1, "allocate [P<n>]"},
	"access":      {0, 1, "access [P<n>]"},
	"dirty":       {1, 1, "dirty P<n>"},
	"cache":       {1, 1, "cache P<n>"},
	"clear-cache": {0, 0, "clear-cache"},
	"terminate":   {1, 1, "terminate P<n>"},
	"reconfigure": {3, 3, "reconfigure <ram> <swap> <cache>"},
	"policy":      {1, 1, "policy <name>"},
	"reset":       {0, 0, "reset"},
	"snapshot":    {0, 0, "snapshot"},
	"describe":    {1, 1, "describe P<n>"},
	"history":     {0, 0, "history"},
}

func checkSyntax(fields []string) error {
	name := strings.ToLower(fields[0])

	shape, ok := commandShapes[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrSyntax, fields[0])
	}

	n := len(fields) - 1
	if n < shape.minArgs || n > shape.maxArgs {
		return fmt.Errorf("%w: usage is %q", ErrSyntax, shape.usage)
	}

	if name == "reconfigure" {
		for _, f := range fields[1:] {
			if _, err := strconv.Atoi(f); err != nil {
				return fmt.Errorf("%w: %q is not a capacity", ErrSyntax, f)
			}
		}
	}

	return nil
}

// Run executes every command of the script.
func (r *scriptRunner) Run(commands [][]string) {
	for _, fields := range commands {
		r.guard(func() {
			r.execute(strings.ToLower(fields[0]), fields[1:])
		})
		r.lineDone()
	}
}

func (r *scriptRunner) execute(name string, args []string) {
	var err error

	switch name {
	case "allocate":
		err = r.allocate(args)
	case "access":
		err = r.access(args)
	case "dirty":
		err = r.withPID(args[0], r.engine.MarkDirty)
	case "cache":
		err = r.withPID(args[0], r.engine.AddToCache)
	case "terminate":
		err = r.withPID(args[0], r.engine.Terminate)
	case "clear-cache":
		r.engine.ClearCache()
	case "reconfigure":
		err = r.reconfigure(args)
	case "policy":
		err = r.setPolicy(args[0])
	case "reset":
		r.engine.Reset()
	case "snapshot":
		printSnapshot(r.out, r.engine.Snapshot())
	case "describe":
		err = r.describe(args[0])
	case "history":
		r.printHistory()
	default:
		panic("unknown command " + name)
	}

	if err != nil {
		r.failures++
		fmt.Fprintf(r.out, "%s: error: %v\n", name, err)
	}
}

func (r *scriptRunner) pidOrPick(
	args []string,
	pick func() (vm.PID, bool),
) (vm.PID, error) {
	if len(args) == 1 {
		return r.engine.Catalog().Parse(args[0])
	}

	pid, ok := pick()
	if !ok {
		return 0, fmt.Errorf("%w: no process to pick", placement.ErrNotFound)
	}

	return pid, nil
}

func (r *scriptRunner) allocate(args []string) error {
	pid, err := r.pidOrPick(args, r.engine.PickAvailable)
	if err != nil {
		return err
	}

	_, err = r.engine.Allocate(pid)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "allocate %s: %s\n", pid, r.engine.Location(pid))

	return nil
}

func (r *scriptRunner) access(args []string) error {
	pid, err := r.pidOrPick(args, r.engine.PickExisting)
	if err != nil {
		return err
	}

	result, err := r.engine.Access(pid)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "access %s: %s\n", pid, result.Outcome)

	return nil
}

func (r *scriptRunner) withPID(
	arg string,
	op func(vm.PID) ([]placement.Event, error),
) error {
	pid, err := r.engine.Catalog().Parse(arg)
	if err != nil {
		return err
	}

	_, err = op(pid)

	return err
}

func (r *scriptRunner) reconfigure(args []string) error {
	capacities := make([]int, len(args))
	for i, a := range args {
		capacities[i], _ = strconv.Atoi(a)
	}

	return r.engine.Reconfigure(capacities[0], capacities[1], capacities[2])
}

func (r *scriptRunner) setPolicy(name string) error {
	p, err := eviction.ParsePolicy(name)
	if err != nil {
		return err
	}

	return r.engine.SetPolicy(p)
}

func (r *scriptRunner) describe(arg string) error {
	pid, err := r.engine.Catalog().Parse(arg)
	if err != nil {
		return err
	}

	info, err := r.engine.Describe(pid)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%s: %s, %s", info.PID, info.Size, info.Location)

	if info.Tracking != nil {
		fmt.Fprintf(r.out, ", added at %d, accessed %d times",
			info.Tracking.AddedAt, info.Tracking.AccessFrequency)
	}

	if info.Cached {
		fmt.Fprintf(r.out, ", cached at %d", info.CacheAccessTime)
	}

	fmt.Fprintln(r.out)

	return nil
}

func (r *scriptRunner) printHistory() {
	outcomes := r.engine.History()
	names := make([]string, 0, len(outcomes))

	for _, o := range outcomes {
		names = append(names, o.String())
	}

	fmt.Fprintf(r.out, "history: %s\n", strings.Join(names, " "))
}

func printSnapshot(w io.Writer, s placement.Snapshot) {
	dirty := make(map[vm.PID]bool, len(s.Dirty))
	for _, pid := range s.Dirty {
		dirty[pid] = true
	}

	fmt.Fprintf(w, "t=%d policy=%s\n", s.Time, s.Config.Policy)
	fmt.Fprintf(w, "  cache [%d/%d]: %s\n",
		len(s.Cache), s.Config.CacheCapacity, formatPIDs(s.Cache, nil))
	fmt.Fprintf(w, "  ram   [%d/%d]: %s\n",
		len(s.RAM), s.Config.RAMCapacity, formatPIDs(s.RAM, dirty))
	fmt.Fprintf(w, "  swap  [%d/%d]: %s\n",
		len(s.Swap), s.Config.SwapCapacity, formatPIDs(s.Swap, nil))
	fmt.Fprintf(w, "  hit rate %s, fault rate %s, write-backs %d\n",
		s.HitRate, s.FaultRate, s.Counters.WriteBacks)

	if s.Thrashing {
		fmt.Fprintln(w, "  thrashing")
	}
}

// formatPIDs joins the pids, marking dirty ones with a star.
func formatPIDs(pids []vm.PID, dirty map[vm.PID]bool) string {
	if len(pids) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(pids))
	for _, pid := range pids {
		s := pid.String()
		if dirty[pid] {
			s += "*"
		}

		parts = append(parts, s)
	}

	return strings.Join(parts, " ")
}
