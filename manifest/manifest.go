// Package manifest handles lama.toml / lama.yaml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/lama/vm"
)

// File names searched for, in order of preference.
const (
	TOMLFile = "lama.toml"
	YAMLFile = "lama.yaml"
)

// Manifest represents a lama project configuration.
type Manifest struct {
	Project Project       `toml:"project" yaml:"project"`
	Source  Source        `toml:"source" yaml:"source"`
	Runtime RuntimeConfig `toml:"runtime" yaml:"runtime"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Log     LogConfig     `toml:"log" yaml:"log"`

	// Dir is the directory containing the manifest file (set at load time).
	Dir string `toml:"-" yaml:"-"`
	// Path is the manifest file that was loaded.
	Path string `toml:"-" yaml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" yaml:"name"`
	Version string `toml:"version" yaml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs  []string `toml:"dirs" yaml:"dirs"`
	Entry string   `toml:"entry" yaml:"entry"`
}

// RuntimeConfig selects interpreter policies.
type RuntimeConfig struct {
	Arithmetic        string `toml:"arithmetic" yaml:"arithmetic"`                   // "bignum" | "checked"
	CrossKindEquality string `toml:"cross-kind-equality" yaml:"cross-kind-equality"` // "false" | "error"
	Worlds            string `toml:"worlds" yaml:"worlds"`                           // "single" | "multi"
	MaxCallDepth      int    `toml:"max-call-depth" yaml:"max-call-depth"`
}

// ServerConfig configures the evaluation server.
type ServerConfig struct {
	Address     string `toml:"address" yaml:"address"`
	GRPCAddress string `toml:"grpc-address" yaml:"grpc-address"`
	Journal     string `toml:"journal" yaml:"journal"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

// Load parses the manifest in dir, preferring lama.toml over lama.yaml.
func Load(dir string) (*Manifest, error) {
	for _, name := range []string{TOMLFile, YAMLFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("no %s or %s in %s", TOMLFile, YAMLFile, dir)
}

// LoadFile parses a manifest file. The format follows the extension.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = toml.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	m.Path = path

	// Defaults
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}

	if _, err := m.EngineOptions(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a manifest file, then
// loads and returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range []string{TOMLFile, YAMLFile} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ErrInvalidRuntime reports an unknown runtime setting.
var ErrInvalidRuntime = errors.New("invalid runtime setting")

// EngineOptions converts the runtime section to engine options.
func (m *Manifest) EngineOptions() (vm.Options, error) {
	opts := vm.DefaultOptions()
	r := m.Runtime

	switch r.Arithmetic {
	case "", "bignum":
		opts.Arithmetic = vm.ArbitraryPrecision
	case "checked":
		opts.Arithmetic = vm.CheckedOverflow
	default:
		return opts, fmt.Errorf("%w: arithmetic = %q", ErrInvalidRuntime, r.Arithmetic)
	}

	switch r.CrossKindEquality {
	case "", "false":
		opts.CrossKindEquality = vm.CrossKindFalse
	case "error":
		opts.CrossKindEquality = vm.CrossKindError
	default:
		return opts, fmt.Errorf("%w: cross-kind-equality = %q", ErrInvalidRuntime, r.CrossKindEquality)
	}

	switch r.Worlds {
	case "", "single":
		opts.Worlds = vm.SingleWorldMode
	case "multi":
		opts.Worlds = vm.MultiWorldMode
	default:
		return opts, fmt.Errorf("%w: worlds = %q", ErrInvalidRuntime, r.Worlds)
	}

	if r.MaxCallDepth < 0 {
		return opts, fmt.Errorf("%w: max-call-depth = %d", ErrInvalidRuntime, r.MaxCallDepth)
	}
	if r.MaxCallDepth > 0 {
		opts.MaxCallDepth = r.MaxCallDepth
	}
	return opts, nil
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// EntryPath returns the absolute path of the entry script, or "" if unset.
func (m *Manifest) EntryPath() string {
	if m.Source.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Source.Entry) {
		return m.Source.Entry
	}
	return filepath.Join(m.Dir, m.Source.Entry)
}

// JournalPath returns the absolute journal database path, or "" if unset.
func (m *Manifest) JournalPath() string {
	if m.Server.Journal == "" {
		return ""
	}
	if filepath.IsAbs(m.Server.Journal) {
		return m.Server.Journal
	}
	return filepath.Join(m.Dir, m.Server.Journal)
}
