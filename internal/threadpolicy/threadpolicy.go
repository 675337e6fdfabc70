// Package threadpolicy applies OS thread identity (name, CPU affinity,
// scheduling class) to the calling goroutine.
//
// Go goroutines float across OS threads by default, so every Apply call must
// run after runtime.LockOSThread() on the goroutine that should carry the
// policy — executors that own a dedicated worker goroutine (guard thread,
// timing wheel timer) call runtime.LockOSThread() first thing in their run
// loop, before applying policy.
package threadpolicy

import "github.com/nxpilot/ados/internal/errs"

// maxThreadNameLen mirrors the 15-character limit of Linux's
// pthread_setname_np (TASK_COMM_LEN - 1).
const maxThreadNameLen = 15

// TruncateName applies the truncation rule for names over 15 characters:
// the result is the first 8 characters, "..", and the last 5.
func TruncateName(name string) string {
	if len(name) <= maxThreadNameLen {
		return name
	}
	return name[:8] + ".." + name[len(name)-5:]
}

// Policy is the decoded, validated form of the per-executor
// thread_sched_policy / thread_bind_cpu configuration options.
type Policy struct {
	Name        string
	SchedPolicy string
	BindCPU     []uint32
}

// Apply sets the OS thread name, CPU affinity, and scheduling class for the
// calling OS thread, in that order. The caller must have already pinned the
// goroutine with runtime.LockOSThread(). Apply returns the first error
// encountered and does not attempt later steps; callers log the error and
// continue without aborting startup.
func Apply(p Policy) error {
	if p.Name != "" {
		if err := SetName(p.Name); err != nil {
			return errs.WrapConfig(err, "set thread name %q", p.Name)
		}
	}
	if err := BindCPU(p.BindCPU); err != nil {
		return errs.WrapConfig(err, "bind cpu set %v", p.BindCPU)
	}
	if err := SetSched(p.SchedPolicy); err != nil {
		return errs.WrapConfig(err, "set sched policy %q", p.SchedPolicy)
	}
	return nil
}
