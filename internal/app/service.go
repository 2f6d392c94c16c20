package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"compkit/internal/adapters"
	"compkit/internal/core"
	"compkit/internal/ports"
	"compkit/internal/types"
)

const workspaceConfigName = "compkit.yaml"
const storeRelativePath = ".compkit/store.db"

// Service wires the core engine to its adapters. Build and RunSpecs
// change plugin-visible state under the workspace environment
// directory, so callers must not run them concurrently against the
// same workspace.
type Service struct {
	Workspace *core.Workspace
	Store     ports.ModelStorePort
	Capsules  ports.CapsuleFactory
	Plugins   ports.PluginLoader
	Clock     func() time.Time
}

// NewService opens the workspace rooted at workspaceRoot: its config
// file, component map, and model store.
func NewService(workspaceRoot string, registryBase string) (Service, error) {
	config, err := loadWorkspaceConfig(workspaceRoot)
	if err != nil {
		return Service{}, err
	}
	componentMap, err := adapters.NewComponentMapAdapter(workspaceRoot)
	if err != nil {
		return Service{}, err
	}
	store, err := adapters.NewSQLiteStoreAdapter(filepath.Join(workspaceRoot, storeRelativePath))
	if err != nil {
		return Service{}, err
	}
	workspace := &core.Workspace{
		RootDir: workspaceRoot,
		Config:  config,
		Map:     componentMap,
		Store:   store,
	}
	return Service{
		Workspace: workspace,
		Store:     store,
		Capsules:  adapters.NewTempCapsuleFactory(),
		Plugins:   adapters.NewEnvHostAdapter(registryBase),
		Clock:     time.Now,
	}, nil
}

func loadWorkspaceConfig(workspaceRoot string) (types.WorkspaceConfig, error) {
	data, err := os.ReadFile(filepath.Join(workspaceRoot, workspaceConfigName))
	if os.IsNotExist(err) {
		return types.WorkspaceConfig{}, nil
	}
	if err != nil {
		return types.WorkspaceConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read workspace config").
			WithCause(err)
	}
	var config types.WorkspaceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return types.WorkspaceConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("workspace config is not valid yaml").
			WithCause(err)
	}
	return config, nil
}
