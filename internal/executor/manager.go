package executor

import (
	"gopkg.in/yaml.v3"

	"github.com/nxpilot/ados/internal/errs"
	"github.com/nxpilot/ados/internal/logging"
	"github.com/nxpilot/ados/internal/threadpolicy"
)

const (
	defaultMainThreadName  = "nxpilot_main"
	defaultGuardThreadName = "nxpilot_guard"
)

// Spec is one entry of the configured `executor.executors` list.
type Spec struct {
	Name    string     `yaml:"name"`
	Type    Type       `yaml:"type"`
	Options *yaml.Node `yaml:"options"`
}

type mainThreadYAML struct {
	ThreadSchedPolicy string   `yaml:"thread_sched_policy"`
	ThreadBindCPU     []uint32 `yaml:"thread_bind_cpu"`
}

type guardThreadYAML struct {
	ThreadSchedPolicy string   `yaml:"thread_sched_policy"`
	ThreadBindCPU     []uint32 `yaml:"thread_bind_cpu"`
	QueueThreshold    uint32   `yaml:"queue_threshold"`
}

type timeWheelYAML struct {
	BindExecutor      string   `yaml:"bind_executor"`
	ThreadSchedPolicy string   `yaml:"thread_sched_policy"`
	ThreadBindCPU     []uint32 `yaml:"thread_bind_cpu"`
	DtUs              uint64   `yaml:"dt_us"`
	WheelSize         []uint64 `yaml:"wheel_size"`
}

// Manager constructs, starts, and shuts down the configured executors in
// the mandated order: main-thread first, guard-thread second, then the
// remaining entries in configuration order.
type Manager struct {
	logger *logging.Logger

	byName   map[string]Executor
	ordered  []Executor
	names    []string
}

// NewManager returns an empty Manager; call Initialize to populate it.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default("executor.manager")
	}
	return &Manager{logger: logger, byName: make(map[string]Executor)}
}

// Initialize validates ordering, then constructs every executor. It is
// fatal (a ConfigError) if a main_thread entry is not first, a guard_thread
// entry is neither first nor second, an entry names an unknown type, or two
// entries share a name.
func (m *Manager) Initialize(specs []Spec) error {
	if err := validateOrdering(specs); err != nil {
		return err
	}

	mainSpec, guardSpec, rest := splitSpecs(specs)

	mainOpts, err := decodeMainThreadOptions(mainSpec)
	if err != nil {
		return err
	}
	mainName := defaultMainThreadName
	if mainSpec != nil && mainSpec.Name != "" {
		mainName = mainSpec.Name
	}
	mainExec := NewMainThreadExecutor(mainName, mainOpts, m.logger.With("executor."+mainName))
	if err := m.register(mainExec); err != nil {
		return err
	}

	guardOpts, err := decodeGuardThreadOptions(guardSpec)
	if err != nil {
		return err
	}
	guardName := defaultGuardThreadName
	if guardSpec != nil && guardSpec.Name != "" {
		guardName = guardSpec.Name
	}
	guardExec := NewGuardThreadExecutor(guardName, guardOpts, m.logger.With("executor."+guardName))
	if err := m.register(guardExec); err != nil {
		return err
	}
	if err := guardExec.Initialize(); err != nil {
		return err
	}

	for _, spec := range rest {
		switch spec.Type {
		case TypeTimeWheel:
			opts, err := decodeTimeWheelOptions(&spec)
			if err != nil {
				return err
			}
			wheel := NewTimeWheelExecutor(spec.Name, opts, m.logger.With("executor."+spec.Name))
			if err := m.register(wheel); err != nil {
				return err
			}
			if err := wheel.Initialize(); err != nil {
				return err
			}
		case TypeMainThread, TypeGuardThread:
			return errs.Config("duplicate %s executor %q", spec.Type, spec.Name)
		default:
			return errs.Config("unknown executor type %q for executor %q", spec.Type, spec.Name)
		}
	}

	m.logger.Info("executor manager init completed", logging.Any("used_executor_names", m.names))
	return nil
}

func (m *Manager) register(e Executor) error {
	if _, exists := m.byName[e.Name()]; exists {
		return errs.Config("duplicate executor name %q", e.Name())
	}
	m.byName[e.Name()] = e
	m.ordered = append(m.ordered, e)
	m.names = append(m.names, e.Name())
	return nil
}

// UsedExecutorNames returns the constructed executor names in insertion
// order: main-thread first, guard-thread second, then the rest.
func (m *Manager) UsedExecutorNames() []string {
	return append([]string(nil), m.names...)
}

// Get returns the executor registered under name, or nil if none was.
func (m *Manager) Get(name string) Executor {
	return m.byName[name]
}

// Start starts every executor that has a Start method, in insertion order.
// The main-thread executor has no Start step; it was already applied at
// construction time.
func (m *Manager) Start() error {
	for _, e := range m.ordered {
		switch ex := e.(type) {
		case *GuardThreadExecutor:
			if err := ex.Start(); err != nil {
				return err
			}
		case *TimeWheelExecutor:
			if err := ex.Start(); err != nil {
				return err
			}
		}
	}
	m.logger.Info("executor manager start completed")
	return nil
}

// Shutdown shuts every executor down in reverse insertion order. It is
// idempotent: each concrete executor's own Shutdown already tolerates
// repeated calls.
func (m *Manager) Shutdown() {
	for i := len(m.ordered) - 1; i >= 0; i-- {
		switch ex := m.ordered[i].(type) {
		case *GuardThreadExecutor:
			ex.Shutdown()
		case *TimeWheelExecutor:
			ex.Shutdown()
		}
	}
	m.logger.Info("executor manager shutdown")
}

func validateOrdering(specs []Spec) error {
	for i, s := range specs {
		if s.Type == TypeMainThread && i != 0 {
			return errs.Config("main_thread executor %q must be the first entry", s.Name)
		}
		if s.Type == TypeGuardThread {
			mainThreadFirst := len(specs) > 0 && specs[0].Type == TypeMainThread
			if !(i == 0 || (i == 1 && mainThreadFirst)) {
				return errs.Config("guard_thread executor %q must be first, or second after a main_thread entry", s.Name)
			}
		}
	}
	return nil
}

func splitSpecs(specs []Spec) (mainSpec, guardSpec *Spec, rest []Spec) {
	for i := range specs {
		s := specs[i]
		switch {
		case s.Type == TypeMainThread && mainSpec == nil:
			mainSpec = &s
		case s.Type == TypeGuardThread && guardSpec == nil:
			guardSpec = &s
		default:
			rest = append(rest, s)
		}
	}
	return mainSpec, guardSpec, rest
}

func decodeMainThreadOptions(spec *Spec) (threadpolicy.Policy, error) {
	var y mainThreadYAML
	if spec != nil && spec.Options != nil && spec.Options.Tag != "!!null" {
		if err := spec.Options.Decode(&y); err != nil {
			return threadpolicy.Policy{}, errs.WrapConfig(err, "decode main_thread options")
		}
	}
	return threadpolicy.Policy{SchedPolicy: y.ThreadSchedPolicy, BindCPU: y.ThreadBindCPU}, nil
}

func decodeGuardThreadOptions(spec *Spec) (GuardThreadExecutorOptions, error) {
	var y guardThreadYAML
	if spec != nil && spec.Options != nil && spec.Options.Tag != "!!null" {
		if err := spec.Options.Decode(&y); err != nil {
			return GuardThreadExecutorOptions{}, errs.WrapConfig(err, "decode guard_thread options")
		}
	}
	return GuardThreadExecutorOptions{
		ThreadSchedPolicy: y.ThreadSchedPolicy,
		ThreadBindCPU:     y.ThreadBindCPU,
		QueueThreshold:    y.QueueThreshold,
	}, nil
}

func decodeTimeWheelOptions(spec *Spec) (TimeWheelExecutorOptions, error) {
	var y timeWheelYAML
	if spec != nil && spec.Options != nil && spec.Options.Tag != "!!null" {
		if err := spec.Options.Decode(&y); err != nil {
			return TimeWheelExecutorOptions{}, errs.WrapConfig(err, "decode time_wheel options %q", spec.Name)
		}
	}
	return TimeWheelExecutorOptions{
		BindExecutor:      y.BindExecutor,
		ThreadSchedPolicy: y.ThreadSchedPolicy,
		ThreadBindCPU:     y.ThreadBindCPU,
		DtUs:              y.DtUs,
		WheelSize:         y.WheelSize,
	}, nil
}
