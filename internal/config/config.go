// Package config implements the configuration store: a document loaded
// once from an absolute path, exposing sub-documents by top-level key.
package config

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/nxpilot/ados/internal/errs"
	"github.com/nxpilot/ados/internal/logging"
)

// State is the configurator's own small lifecycle, independent of the core
// lifecycle phases that drive it.
type State uint32

const (
	StatePreInit State = iota
	StateInit
	StateStart
	StateShutdown
)

// Store loads a YAML document once and serves sub-documents by key.
// Queries are only permitted while the store is in StateInit.
type Store struct {
	logger *logging.Logger

	state   atomic.Uint32
	cfgPath string
	root    *yaml.Node
}

// New builds a Store that logs through logger.
func New(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default("configurator")
	}
	return &Store{logger: logger}
}

// Initialize loads the document at path. path must be non-empty; it is
// resolved to an absolute, symlink-free path before the file is read.
func (s *Store) Initialize(path string) error {
	if path == "" {
		return errs.Config("ados started with no cfg file")
	}

	if !s.state.CompareAndSwap(uint32(StatePreInit), uint32(StateInit)) {
		return errs.Config("configurator can only be initialized once")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return errs.WrapConfig(err, "resolve cfg file path %q", path)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return errs.WrapConfig(err, "canonicalize cfg file path %q", abs)
	}
	s.cfgPath = real

	data, err := os.ReadFile(real)
	if err != nil {
		return errs.WrapConfig(err, "read cfg file %q", real)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return errs.WrapConfig(err, "parse cfg file %q", real)
	}
	s.root = &root

	s.logger.Info("configurator init completed", logging.String("cfg_path", s.cfgPath))
	return nil
}

// Start advances the store to StateStart. Repeated calls outside StateInit
// are a programming error and return a ConfigError.
func (s *Store) Start() error {
	if !s.state.CompareAndSwap(uint32(StateInit), uint32(StateStart)) {
		return errs.Config("configurator method can only be called when state is 'Init'")
	}
	s.logger.Info("configurator start completed")
	return nil
}

// Shutdown is idempotent and may be called from any state.
func (s *Store) Shutdown() {
	if old := s.state.Swap(uint32(StateShutdown)); old == uint32(StateShutdown) {
		return
	}
	s.logger.Info("configurator shutdown")
}

// State returns the store's current lifecycle state.
func (s *Store) State() State { return State(s.state.Load()) }

// RootNode returns the root document node, or nil if Initialize has not run.
func (s *Store) RootNode() *yaml.Node { return s.root }

// GetNodeOptionsByKey returns the sub-document mapped to key at the
// document's top level. A missing key returns (nil, nil) — not an error.
// Calling this outside StateInit is a programming error.
func (s *Store) GetNodeOptionsByKey(key string) (*yaml.Node, error) {
	if State(s.state.Load()) != StateInit {
		return nil, errs.Config("configurator method can only be called when state is 'Init'")
	}

	mapping := documentMapping(s.root)
	if mapping == nil {
		return nil, nil
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1], nil
		}
	}
	return nil, nil
}

// documentMapping unwraps a DocumentNode down to its root MappingNode, the
// way yaml.v3 represents a top-level YAML document.
func documentMapping(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

// IsNull reports whether node is nil or an explicit YAML null scalar —
// the two ways an "empty" sub-document shows up.
func IsNull(node *yaml.Node) bool {
	return node == nil || node.Tag == "!!null"
}
