//go:build linux

package threadpolicy

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// POSIX scheduling classes, stable across Linux architectures.
const (
	schedOther = 0
	schedFIFO  = 1
	schedRR    = 2
)

type schedParam struct {
	priority int32
}

// SetName sets the OS thread name of the calling thread via prctl(PR_SET_NAME),
// truncating per TruncateName.
func SetName(name string) error {
	real := TruncateName(name)
	buf := append([]byte(real), 0)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

// BindCPU pins the calling thread to the given CPU indices. An empty set is
// a no-op. Every index must be below runtime.NumCPU(); a single invalid
// index fails the whole call without applying a partial mask.
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

	var set unix.CPUSet
	set.Zero()
	for _, cpu := range cpus {
		set.Set(int(cpu))
	}

	return unix.SchedSetaffinity(0, &set)
}

// SetSched applies a scheduling policy string: "" is a no-op, "SCHED_OTHER"
// restores the default policy, "SCHED_FIFO:<N>" / "SCHED_RR:<N>" apply a
// real-time policy at priority N, validated against the OS-reported
// [min, max] range for that policy.
func SetSched(sched string) error {
	if sched == "" {
		return nil
	}

	if sched == "SCHED_OTHER" {
		return schedSetscheduler(schedOther, 0)
	}

	pos := strings.IndexByte(sched, ':')
	if pos < 0 || pos == len(sched)-1 {
		return fmt.Errorf("invalid sched param %q", sched)
	}

	class := sched[:pos]
	var policy int
	switch class {
	case "SCHED_FIFO":
		policy = schedFIFO
	case "SCHED_RR":
		policy = schedRR
	default:
		return fmt.Errorf("invalid sched param %q", sched)
	}

	priority, err := strconv.Atoi(sched[pos+1:])
	if err != nil {
		return fmt.Errorf("invalid sched param %q", sched)
	}

	priorityMax, err := schedGetPriorityMax(policy)
	if err != nil {
		return err
	}
	priorityMin, err := schedGetPriorityMin(policy)
	if err != nil {
		return err
	}
	if priority < priorityMin || priority > priorityMax {
		return fmt.Errorf("invalid sched priority %d, required range %d~%d", priority, priorityMin, priorityMax)
	}

	return schedSetscheduler(policy, priority)
}

func schedSetscheduler(policy, priority int) error {
	param := schedParam{priority: int32(priority)}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, uintptr(policy), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return errno
	}
	return nil
}

func schedGetPriorityMax(policy int) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MAX, uintptr(policy), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}

func schedGetPriorityMin(policy int) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_SCHED_GET_PRIORITY_MIN, uintptr(policy), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(r), nil
}
