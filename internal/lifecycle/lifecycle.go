// Package lifecycle implements the phased state machine that drives core
// startup and shutdown: a closed set of named phases, and a hook registry
// that runs registered callbacks in order as each phase is entered.
package lifecycle

import (
	"fmt"
	"sync"
)

// Phase is a point in the lifecycle at which hooks may run. The zero value,
// PreInit, is the starting phase. Phases are ordered: Init order is
// declaration order; Shutdown order is the reverse of the matching Start
// block.
type Phase int

const (
	PreInit Phase = iota

	PreInitConfigurator
	PostInitConfigurator

	PreInitPlugin
	PostInitPlugin

	PreInitMainThread
	PostInitMainThread

	PreInitGuardThread
	PostInitGuardThread

	PreInitExecutor
	PostInitExecutor

	PreInitLog
	PostInitLog

	PreInitAllocator
	PostInitAllocator

	PreInitRpc
	PostInitRpc

	PreInitChannel
	PostInitChannel

	PreInitParameter
	PostInitParameter

	PreInitModules
	PostInitModules

	PostInit

	PreStart

	PreStartConfigurator
	PostStartConfigurator

	PreStartPlugin
	PostStartPlugin

	PreStartMainThread
	PostStartMainThread

	PreStartGuardThread
	PostStartGuardThread

	PreStartExecutor
	PostStartExecutor

	PreStartLog
	PostStartLog

	PreStartAllocator
	PostStartAllocator

	PreStartRpc
	PostStartRpc

	PreStartChannel
	PostStartChannel

	PreStartParameter
	PostStartParameter

	PreStartModules
	PostStartModules

	PostStart

	PreShutdown

	PreShutdownModules
	PostShutdownModules

	PreShutdownParameter
	PostShutdownParameter

	PreShutdownChannel
	PostShutdownChannel

	PreShutdownRpc
	PostShutdownRpc

	PreShutdownAllocator
	PostShutdownAllocator

	PreShutdownLog
	PostShutdownLog

	PreShutdownExecutor
	PostShutdownExecutor

	PreShutdownGuardThread
	PostShutdownGuardThread

	PreShutdownMainThread
	PostShutdownMainThread

	PreShutdownPlugin
	PostShutdownPlugin

	PreShutdownConfigurator
	PostShutdownConfigurator

	PostShutdown

	maxPhaseNum
)

var phaseNames = [maxPhaseNum]string{
	PreInit:                 "PreInit",
	PreInitConfigurator:     "PreInitConfigurator",
	PostInitConfigurator:    "PostInitConfigurator",
	PreInitPlugin:           "PreInitPlugin",
	PostInitPlugin:          "PostInitPlugin",
	PreInitMainThread:       "PreInitMainThread",
	PostInitMainThread:      "PostInitMainThread",
	PreInitGuardThread:      "PreInitGuardThread",
	PostInitGuardThread:     "PostInitGuardThread",
	PreInitExecutor:         "PreInitExecutor",
	PostInitExecutor:        "PostInitExecutor",
	PreInitLog:              "PreInitLog",
	PostInitLog:             "PostInitLog",
	PreInitAllocator:        "PreInitAllocator",
	PostInitAllocator:       "PostInitAllocator",
	PreInitRpc:              "PreInitRpc",
	PostInitRpc:             "PostInitRpc",
	PreInitChannel:          "PreInitChannel",
	PostInitChannel:         "PostInitChannel",
	PreInitParameter:        "PreInitParameter",
	PostInitParameter:       "PostInitParameter",
	PreInitModules:          "PreInitModules",
	PostInitModules:         "PostInitModules",
	PostInit:                "PostInit",
	PreStart:                "PreStart",
	PreStartConfigurator:    "PreStartConfigurator",
	PostStartConfigurator:   "PostStartConfigurator",
	PreStartPlugin:          "PreStartPlugin",
	PostStartPlugin:         "PostStartPlugin",
	PreStartMainThread:      "PreStartMainThread",
	PostStartMainThread:     "PostStartMainThread",
	PreStartGuardThread:     "PreStartGuardThread",
	PostStartGuardThread:    "PostStartGuardThread",
	PreStartExecutor:        "PreStartExecutor",
	PostStartExecutor:       "PostStartExecutor",
	PreStartLog:             "PreStartLog",
	PostStartLog:            "PostStartLog",
	PreStartAllocator:       "PreStartAllocator",
	PostStartAllocator:      "PostStartAllocator",
	PreStartRpc:             "PreStartRpc",
	PostStartRpc:            "PostStartRpc",
	PreStartChannel:         "PreStartChannel",
	PostStartChannel:        "PostStartChannel",
	PreStartParameter:       "PreStartParameter",
	PostStartParameter:      "PostStartParameter",
	PreStartModules:         "PreStartModules",
	PostStartModules:        "PostStartModules",
	PostStart:               "PostStart",
	PreShutdown:             "PreShutdown",
	PreShutdownModules:      "PreShutdownModules",
	PostShutdownModules:     "PostShutdownModules",
	PreShutdownParameter:    "PreShutdownParameter",
	PostShutdownParameter:   "PostShutdownParameter",
	PreShutdownChannel:      "PreShutdownChannel",
	PostShutdownChannel:     "PostShutdownChannel",
	PreShutdownRpc:          "PreShutdownRpc",
	PostShutdownRpc:         "PostShutdownRpc",
	PreShutdownAllocator:    "PreShutdownAllocator",
	PostShutdownAllocator:   "PostShutdownAllocator",
	PreShutdownLog:          "PreShutdownLog",
	PostShutdownLog:         "PostShutdownLog",
	PreShutdownExecutor:     "PreShutdownExecutor",
	PostShutdownExecutor:    "PostShutdownExecutor",
	PreShutdownGuardThread:  "PreShutdownGuardThread",
	PostShutdownGuardThread: "PostShutdownGuardThread",
	PreShutdownMainThread:   "PreShutdownMainThread",
	PostShutdownMainThread:  "PostShutdownMainThread",
	PreShutdownPlugin:       "PreShutdownPlugin",
	PostShutdownPlugin:      "PostShutdownPlugin",
	PreShutdownConfigurator: "PreShutdownConfigurator",
	PostShutdownConfigurator: "PostShutdownConfigurator",
	PostShutdown:            "PostShutdown",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) || phaseNames[p] == "" {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Hook is a zero-argument callback registered against a phase.
type Hook func() error

// Machine holds the hook registry and the single monotonically advancing
// current phase. It is safe for concurrent registration and EnterState
// calls, though in practice one goroutine drives the transitions.
type Machine struct {
	mu      sync.Mutex
	current Phase
	hooks   [maxPhaseNum][]Hook
}

// New returns a Machine parked at PreInit.
func New() *Machine {
	return &Machine{current: PreInit}
}

// On registers hook to run when phase is entered, in registration order
// relative to other hooks on the same phase.
func (m *Machine) On(phase Phase, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[phase] = append(m.hooks[phase], hook)
}

// Current returns the phase most recently entered.
func (m *Machine) Current() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// EnterState advances the recorded phase to phase and runs every hook
// registered for it, in order, on the calling goroutine. It is a
// programming error to enter a phase behind the current one; EnterState
// enforces this with a panic, since an out-of-order transition means the
// embedding core is miswired. Re-entering the current phase is allowed and
// runs its hooks again.
func (m *Machine) EnterState(phase Phase) error {
	m.mu.Lock()
	if phase < m.current {
		m.mu.Unlock()
		panic(fmt.Sprintf("lifecycle: phase %s entered after %s", phase, m.current))
	}
	m.current = phase
	hooks := append([]Hook(nil), m.hooks[phase]...)
	m.mu.Unlock()

	for _, h := range hooks {
		if err := h(); err != nil {
			return fmt.Errorf("hook for phase %s failed: %w", phase, err)
		}
	}
	return nil
}

// Terminal reports whether the machine has reached PostShutdown, beyond
// which no further transitions are valid.
func (m *Machine) Terminal() bool {
	return m.Current() == PostShutdown
}
