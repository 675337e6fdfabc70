package executor

import "github.com/nxpilot/ados/internal/errs"

var (
	errGuardAlreadyInitialized = errs.Config("guard thread executor can only be initialized once")
	errGuardNotInInit          = errs.Config("guard thread executor can only start when state is 'Init'")

	errWheelAlreadyInitialized = errs.Config("timing wheel executor can only be initialized once")
	errWheelNotInInit          = errs.Config("timing wheel executor can only start when state is 'Init'")
)
