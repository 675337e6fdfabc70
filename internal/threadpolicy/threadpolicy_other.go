//go:build !linux

package threadpolicy

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// SetName is a no-op outside Linux: there is no portable equivalent of
// pthread_setname_np wired up here.
func SetName(name string) error {
	return nil
}

// BindCPU validates the requested CPU set the same way the Linux
// implementation does, but does not apply any affinity mask — CPU pinning
// here is built on a Linux-specific syscall with no portable equivalent.
func BindCPU(cpus []uint32) error {
	if len(cpus) == 0 {
		return nil
	}
	maxCPU := uint32(runtime.NumCPU())
	for _, cpu := range cpus {
		if cpu >= maxCPU {
			return fmt.Errorf("invalid cpu index %d, max cpu idx is %d", cpu, maxCPU)
		}
	}
	return nil
}

// SetSched validates the sched string's syntax but does not apply a
// real-time scheduling class outside Linux.
func SetSched(sched string) error {
	if sched == "" {
		return nil
	}
	if sched == "SCHED_OTHER" {
		return nil
	}
	pos := strings.IndexByte(sched, ':')
	if pos < 0 || pos == len(sched)-1 {
		return fmt.Errorf("invalid sched param %q", sched)
	}
	switch sched[:pos] {
	case "SCHED_FIFO", "SCHED_RR":
	default:
		return fmt.Errorf("invalid sched param %q", sched)
	}
	priority, err := strconv.Atoi(sched[pos+1:])
	if err != nil {
		return fmt.Errorf("invalid sched param %q", sched)
	}
	// 1~99 is the POSIX real-time priority range on every platform this
	// package supports; without a syscall to ask the OS, validate against
	// that fixed range instead of an OS-reported one.
	if priority < 1 || priority > 99 {
		return fmt.Errorf("invalid sched priority %d, required range 1~99", priority)
	}
	return nil
}
