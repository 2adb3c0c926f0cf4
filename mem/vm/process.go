// Package vm defines the processes that live in the simulated memory
// hierarchy and where they can be placed.
package vm

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// PID stands for Process ID.
type PID uint32

// String renders the PID in the P<n> form used by callers.
func (p PID) String() string {
	return "P" + strconv.FormatUint(uint64(p), 10)
}

// MarshalText renders the PID as text, so that JSON output uses P<n>.
func (p PID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Limits of the synthetic process pool.
const (
	DefaultMaxProcessID = 20
	MinProcessKB        = 512
	MaxProcessKB        = 2 * 1024 * 1024
)

// Errors returned by Catalog.Parse.
var (
	ErrMalformedPID  = errors.New("malformed process id")
	ErrPIDOutOfRange = errors.New("process id out of range")
)

var pidPattern = regexp.MustCompile(`^P(\d+)$`)

// A Catalog is the fixed pool of processes P1..Pn together with the size each
// process was given for the current session.
type Catalog struct {
	maxID int
	sizes map[PID]int
}

// NewCatalog creates a catalog of maxID processes. Sizes are zero until
// AssignSizes is called.
func NewCatalog(maxID int) *Catalog {
	if maxID < 1 {
		panic("catalog must hold at least one process")
	}

	return &Catalog{
		maxID: maxID,
		sizes: make(map[PID]int, maxID),
	}
}

// MaxID returns the largest valid process number.
func (c *Catalog) MaxID() int {
	return c.maxID
}

// Contains tells if the pid belongs to the pool.
func (c *Catalog) Contains(pid PID) bool {
	return pid >= 1 && int(pid) <= c.maxID
}

// PIDs returns all the processes of the pool in ascending order.
func (c *Catalog) PIDs() []PID {
	pids := make([]PID, 0, c.maxID)
	for i := 1; i <= c.maxID; i++ {
		pids = append(pids, PID(i))
	}

	return pids
}

// SizeKB returns the size of the process in KB, or 0 for unknown processes.
func (c *Catalog) SizeKB(pid PID) int {
	return c.sizes[pid]
}

// AssignSizes draws a new random size for every process.
func (c *Catalog) AssignSizes(rng *rand.Rand) {
	for _, pid := range c.PIDs() {
		c.sizes[pid] = MinProcessKB + rng.Intn(MaxProcessKB-MinProcessKB+1)
	}
}

// Parse converts user input such as "p3" or " P3 " into a PID.
func (c *Catalog) Parse(s string) (PID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	m := pidPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedPID, s)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > c.maxID {
		return 0, fmt.Errorf("%w: %s not in P1-P%d", ErrPIDOutOfRange, s, c.maxID)
	}

	return PID(n), nil
}

// FormatSize renders a size in KB with the largest fitting unit.
func FormatSize(kb int) string {
	switch {
	case kb >= 1024*1024:
		return fmt.Sprintf("%.1f GB", float64(kb)/(1024.0*1024.0))
	case kb >= 1024:
		return fmt.Sprintf("%.1f MB", float64(kb)/1024.0)
	default:
		return fmt.Sprintf("%d KB", kb)
	}
}
