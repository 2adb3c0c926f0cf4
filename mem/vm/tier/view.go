package tier

import "github.com/sarchlab/hvmm/mem/vm"

// A View is a read-only copy of a tracked store.
type View struct {
	// Members in insertion order.
	Members []vm.PID

	// AccessOrder lists members from least to most recently used.
	AccessOrder []vm.PID

	Tracking map[vm.PID]Tracking
}

// Contains tells if the process is a member of the view.
func (v View) Contains(pid vm.PID) bool {
	for _, m := range v.Members {
		if m == pid {
			return true
		}
	}

	return false
}

// Empty tells if the view has no members.
func (v View) Empty() bool {
	return len(v.Members) == 0
}
