package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"compkit/internal/types"
)

// EjectConfig writes a component's compiler and tester configuration
// into its own directory, detaching it from workspace defaults.
func (s Service) EjectConfig(ctx context.Context, req EjectConfigRequest) error {
	record := s.Workspace.Map.Find(req.ID)
	if record == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + req.ID.String() + " is not tracked in this workspace")
	}
	if !record.DetachedCompiler && !record.DetachedTester {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("component " + record.ID.String() + " is bound to the workspace configuration; nothing to eject")
	}
	targetDir := req.TargetDir
	if targetDir == "" {
		targetDir = record.TrackDir()
	}
	cleaned := filepath.Clean(targetDir)
	if cleaned == "." || cleaned == string(filepath.Separator) || cleaned == filepath.Clean(s.Workspace.RootDir) {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("cannot eject configuration to the workspace root")
	}

	component, err := s.LoadComponent(ctx, req.ID)
	if err != nil {
		return err
	}
	config := types.ComponentConfig{
		Lang:          component.Lang,
		BindingPrefix: component.BindingPrefix,
		Compiler:      component.Compiler,
		Tester:        component.Tester,
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal component config").
			WithCause(err)
	}
	absDir := filepath.Join(s.Workspace.RootDir, filepath.FromSlash(targetDir))
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create config directory").
			WithCause(err)
	}
	if err := os.WriteFile(filepath.Join(absDir, componentConfigName), data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write component config").
			WithCause(err)
	}
	if err := s.Workspace.Map.SetConfigDir(record.ID, targetDir); err != nil {
		return err
	}
	if err := s.Workspace.Map.Persist(); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("component", record.ID.String()).
		Str("dir", targetDir).
		Msg("configuration ejected")
	return nil
}

// InjectConfig is the inverse of EjectConfig: the component's own
// config file is removed and the component re-binds to workspace
// defaults.
func (s Service) InjectConfig(ctx context.Context, req InjectConfigRequest) error {
	record := s.Workspace.Map.Find(req.ID)
	if record == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + req.ID.String() + " is not tracked in this workspace")
	}
	if record.ConfigDir == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("configuration of component " + record.ID.String() + " was never ejected")
	}
	configPath := filepath.Join(s.Workspace.RootDir, filepath.FromSlash(record.ConfigDir), componentConfigName)
	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove component config").
			WithCause(err)
	}
	record.ConfigDir = ""
	record.DetachedCompiler = false
	record.DetachedTester = false
	if err := s.Workspace.Map.Persist(); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("component", record.ID.String()).
		Msg("configuration injected back to workspace defaults")
	return nil
}
