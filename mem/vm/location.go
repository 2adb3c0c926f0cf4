package vm

// Location tells where a process currently lives. The cache is an overlay and
// is not a Location.
type Location int

// The possible locations of a process.
const (
	Unallocated Location = iota
	InRAM
	InSwap
	Terminated
)

func (l Location) String() string {
	switch l {
	case Unallocated:
		return "unallocated"
	case InRAM:
		return "ram"
	case InSwap:
		return "swap"
	case Terminated:
		return "terminated"
	default:
		panic("unknown location")
	}
}
