// Command ados starts the ados core runtime: load configuration, build the
// configured executors, run until a shutdown signal arrives.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nxpilot/ados/internal/core"
	"github.com/nxpilot/ados/internal/logging"
)

var cfgFilePath string

// globalCore is the process-wide pointer a signal handler's thin shim calls
// Shutdown through; it is set once Initialize has succeeded.
var globalCore atomic.Pointer[core.Core]

func main() {
	// Pin this goroutine to its OS thread so the main_thread executor's
	// affinity and scheduling policy, applied during Initialize, stick for
	// the life of the process instead of being dropped on the next Go
	// scheduler migration.
	runtime.LockOSThread()

	root := &cobra.Command{
		Use:           "ados",
		Short:         "ados core runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVar(&cfgFilePath, "cfg_file_path", "", "config file path")
	root.Flags().BoolP("version", "v", false, "print version and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if v, _ := cmd.Flags().GetBool("version"); v {
		fmt.Println("Version")
		return nil
	}

	logger := logging.Default("main")
	logger.Info("ados start")

	c := core.New(logger)
	if err := c.Initialize(core.Options{CfgFilePath: cfgFilePath}); err != nil {
		logger.Error("ados run with error and exit", logging.Err(err))
		return fmt.Errorf("initialize: %w", err)
	}
	globalCore.Store(c)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info("capture signal, shutting down", logging.Any("signal", sig))
				if c := globalCore.Load(); c != nil {
					c.Shutdown()
				}
			}
		}
	}()

	if err := c.Start(); err != nil {
		logger.Error("ados run with error and exit", logging.Err(err))
		return fmt.Errorf("start: %w", err)
	}

	logger.Info("ados exit")
	return nil
}
