package core

import (
	"path/filepath"

	"compkit/internal/ports"
	"compkit/internal/types"
)

// Workspace is the live working tree a component belongs to: its root
// directory, merged configuration, and handles to the component map
// and the model store.
type Workspace struct {
	RootDir string
	Config  types.WorkspaceConfig
	Map     ports.WorkspaceMapPort
	Store   ports.ModelStorePort
}

const defaultEnvDirName = ".compkit/env"

// EnvDir returns the directory plugin implementations are installed
// into.
func (w *Workspace) EnvDir() string {
	if w.Config.EnvDir != "" {
		return filepath.Join(w.RootDir, w.Config.EnvDir)
	}
	return filepath.Join(w.RootDir, defaultEnvDirName)
}

// ComponentDir resolves a component's root directory on disk.
func (w *Workspace) ComponentDir(record *types.IndexRecord) string {
	return filepath.Join(w.RootDir, record.TrackDir())
}

// IsModified reports whether a component's tracked files changed since
// its record was last written. A component without a map record is
// always considered modified.
func (w *Workspace) IsModified(c *Component) (bool, error) {
	if c.MapRecord == nil {
		return true, nil
	}
	return w.Map.TrackDirectoryChanges(c.MapRecord)
}

// ResolvedComponentConfig is the outcome of config precedence merging.
type ResolvedComponentConfig struct {
	Lang          string
	BindingPrefix string
	Compiler      *types.EnvDescriptor
	Tester        *types.EnvDescriptor
}

// ResolveComponentConfig applies the config precedence order: an
// explicit component config always wins; otherwise the prior model
// snapshot enriches workspace defaults field-wise.
func (w *Workspace) ResolveComponentConfig(componentCfg *types.ComponentConfig, snapshot *Component) ResolvedComponentConfig {
	if componentCfg != nil {
		resolved := ResolvedComponentConfig{
			Lang:          componentCfg.Lang,
			BindingPrefix: componentCfg.BindingPrefix,
			Compiler:      componentCfg.Compiler,
			Tester:        componentCfg.Tester,
		}
		if resolved.Lang == "" {
			resolved.Lang = w.Config.Lang
		}
		if resolved.BindingPrefix == "" {
			resolved.BindingPrefix = w.Config.BindingPrefix
		}
		return resolved
	}
	resolved := ResolvedComponentConfig{
		Lang:          w.Config.Lang,
		BindingPrefix: w.Config.BindingPrefix,
		Compiler:      w.Config.Compiler,
		Tester:        w.Config.Tester,
	}
	if snapshot != nil {
		if snapshot.Lang != "" {
			resolved.Lang = snapshot.Lang
		}
		if snapshot.BindingPrefix != "" {
			resolved.BindingPrefix = snapshot.BindingPrefix
		}
		if snapshot.Compiler != nil {
			resolved.Compiler = snapshot.Compiler
		}
		if snapshot.Tester != nil {
			resolved.Tester = snapshot.Tester
		}
	}
	return resolved
}
