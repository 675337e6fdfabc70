// Package core wires the configuration store and executor manager through
// the phased lifecycle, and owns the process-wide one-shot shutdown signal.
package core

import (
	"sync/atomic"

	"github.com/nxpilot/ados/internal/config"
	"github.com/nxpilot/ados/internal/errs"
	"github.com/nxpilot/ados/internal/executor"
	"github.com/nxpilot/ados/internal/lifecycle"
	"github.com/nxpilot/ados/internal/logging"
)

// Options are the arguments to Initialize.
type Options struct {
	CfgFilePath string
}

type executorDocument struct {
	Executors []executor.Spec `yaml:"executors"`
}

type logDocument struct {
	Level string `yaml:"level"`
}

// Core drives configuration loading and executor construction through the
// lifecycle phases, and blocks Start's caller on shutdown.
type Core struct {
	logger *logging.Logger
	lc     *lifecycle.Machine

	configStore *config.Store
	execManager *executor.Manager
	logManager  *logging.Manager

	shutdownRequested atomic.Bool
	shutdownCh        chan struct{}
}

// New returns a Core parked before PreInit.
func New(logger *logging.Logger) *Core {
	if logger == nil {
		logger = logging.Default("core")
	}
	return &Core{
		logger:      logger,
		lc:          lifecycle.New(),
		configStore: config.New(logger.With("configurator")),
		execManager: executor.NewManager(logger.With("executor.manager")),
		logManager:  logging.NewManager(),
		shutdownCh:  make(chan struct{}),
	}
}

// Lifecycle exposes the underlying phase machine so embedders can register
// hooks before calling Initialize. Core enters only PreInit/PostInit,
// PreStart/PostStart, PreShutdown/PostShutdown and the Configurator,
// Executor and Log phase pairs; hooks registered on the other subsystem
// phases (Plugin, MainThread, GuardThread, Allocator, Rpc, Channel,
// Parameter, Modules) are never run.
func (c *Core) Lifecycle() *lifecycle.Machine { return c.lc }

// Initialize drives PreInit through PostInit, loading configuration and
// constructing the executor manager in between. May only be called once:
// a second call panics, because the lifecycle machine has already moved
// past PreInit and EnterState rejects going back to it.
func (c *Core) Initialize(opts Options) error {
	if err := c.lc.EnterState(lifecycle.PreInit); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreInitConfigurator); err != nil {
		return err
	}
	if err := c.configStore.Initialize(opts.CfgFilePath); err != nil {
		return err
	}
	if err := c.lc.EnterState(lifecycle.PostInitConfigurator); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreInitExecutor); err != nil {
		return err
	}
	specs, err := c.loadExecutorSpecs()
	if err != nil {
		return err
	}
	if err := c.execManager.Initialize(specs); err != nil {
		return err
	}
	if err := c.lc.EnterState(lifecycle.PostInitExecutor); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreInitLog); err != nil {
		return err
	}
	logOpts, err := c.loadLogOptions()
	if err != nil {
		return err
	}
	if err := c.logManager.Initialize(logOpts); err != nil {
		return err
	}
	if err := c.lc.EnterState(lifecycle.PostInitLog); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PostInit); err != nil {
		return err
	}

	c.logger.Info("core init completed")
	return nil
}

func (c *Core) loadExecutorSpecs() ([]executor.Spec, error) {
	node, err := c.configStore.GetNodeOptionsByKey("executor")
	if err != nil {
		return nil, err
	}
	if config.IsNull(node) {
		return nil, nil
	}

	var doc executorDocument
	if err := node.Decode(&doc); err != nil {
		return nil, errs.WrapConfig(err, "decode executor document")
	}
	return doc.Executors, nil
}

func (c *Core) loadLogOptions() (logging.ManagerOptions, error) {
	node, err := c.configStore.GetNodeOptionsByKey("log")
	if err != nil {
		return logging.ManagerOptions{}, err
	}
	if config.IsNull(node) {
		return logging.ManagerOptions{}, nil
	}

	var doc logDocument
	if err := node.Decode(&doc); err != nil {
		return logging.ManagerOptions{}, errs.WrapConfig(err, "decode log document")
	}
	return logging.ManagerOptions{Level: doc.Level}, nil
}

// Start drives PreStart through PostStart, then blocks the calling
// goroutine until Shutdown is called (from any goroutine), at which point
// it runs the symmetric shutdown sequence and returns.
func (c *Core) Start() error {
	if err := c.lc.EnterState(lifecycle.PreStart); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreStartConfigurator); err != nil {
		return err
	}
	if err := c.configStore.Start(); err != nil {
		return err
	}
	if err := c.lc.EnterState(lifecycle.PostStartConfigurator); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreStartExecutor); err != nil {
		return err
	}
	if err := c.execManager.Start(); err != nil {
		return err
	}
	if err := c.lc.EnterState(lifecycle.PostStartExecutor); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreStartLog); err != nil {
		return err
	}
	if err := c.logManager.Start(); err != nil {
		return err
	}
	if err := c.lc.EnterState(lifecycle.PostStartLog); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PostStart); err != nil {
		return err
	}
	c.logger.Info("core start completed")

	<-c.shutdownCh
	return c.runShutdownSequence()
}

// Shutdown is idempotent, thread-safe, and safe to call from a signal
// handler's thin shim: the first caller releases the one-shot signal that
// wakes Start; later callers return immediately.
func (c *Core) Shutdown() {
	if c.shutdownRequested.CompareAndSwap(false, true) {
		close(c.shutdownCh)
	}
}

func (c *Core) runShutdownSequence() error {
	if err := c.lc.EnterState(lifecycle.PreShutdown); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreShutdownLog); err != nil {
		return err
	}
	c.logManager.Shutdown()
	if err := c.lc.EnterState(lifecycle.PostShutdownLog); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreShutdownExecutor); err != nil {
		return err
	}
	c.execManager.Shutdown()
	if err := c.lc.EnterState(lifecycle.PostShutdownExecutor); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PreShutdownConfigurator); err != nil {
		return err
	}
	c.configStore.Shutdown()
	if err := c.lc.EnterState(lifecycle.PostShutdownConfigurator); err != nil {
		return err
	}

	if err := c.lc.EnterState(lifecycle.PostShutdown); err != nil {
		return err
	}
	c.logger.Info("core shutdown completed")
	return nil
}

// Close is a defensive best-effort Shutdown for embedders that forgot to
// call it explicitly: it releases the shutdown signal and swallows and logs
// any panic. It does not shut the executors down itself; that happens only
// in the shutdown sequence run by a Start call blocked on the signal, so if
// Start was never entered the executors' goroutines keep running.
func (c *Core) Close() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic recovered while closing core", logging.Any("recover", r))
		}
	}()
	c.Shutdown()
}

// ExecutorManager exposes the constructed executors, e.g. for a host
// process that wants to submit work once Start has returned past PostStart.
func (c *Core) ExecutorManager() *executor.Manager { return c.execManager }
