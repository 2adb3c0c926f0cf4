// Package eviction selects which RAM-resident process to evict.
package eviction

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPolicy is returned when parsing an unsupported policy name.
var ErrUnknownPolicy = errors.New("unknown eviction policy")

// Policy names a page-replacement algorithm.
type Policy int

// The supported policies.
const (
	FIFO Policy = iota
	LRU
	LFU
	LIFO
	MRU
	Random
)

// Policies returns every supported policy.
func Policies() []Policy {
	return []Policy{FIFO, LRU, LFU, LIFO, MRU, Random}
}

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	case LFU:
		return "LFU"
	case LIFO:
		return "LIFO"
	case MRU:
		return "MRU"
	case Random:
		return "Random"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a case-insensitive name such as "lru" into a Policy.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range Policies() {
		if strings.EqualFold(p.String(), strings.TrimSpace(name)) {
			return p, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// MarshalText renders the policy by name.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a policy name.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}
