package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"compkit/internal/core"
	"compkit/internal/types"
)

const componentConfigName = "component.yaml"

// LoadComponent produces the in-memory aggregate for a tracked
// component by scanning its tracked files against the workspace map
// record. Configuration precedence: a component config file always
// wins; otherwise the prior model snapshot enriches workspace
// defaults.
func (s Service) LoadComponent(ctx context.Context, id types.ComponentID) (*core.Component, error) {
	record := s.Workspace.Map.Find(id)
	if record == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + id.String() + " is not tracked in this workspace")
	}
	componentDir := s.Workspace.ComponentDir(record)
	if _, err := os.Stat(componentDir); os.IsNotExist(err) {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component directory " + record.TrackDir() + " no longer exists")
	}

	files, stale, err := s.scanTrackedFiles(record)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		// Stale non-main entries are pruned, not fatal.
		log.Ctx(ctx).Warn().
			Str("component", record.ID.String()).
			Strs("files", stale).
			Msg("pruning tracked files missing from disk")
		if err := s.Workspace.Map.RemoveFiles(record, stale); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("component " + record.ID.String() + " has no files left on disk")
	}

	snapshot := s.loadModelSnapshot(ctx, record.ID)
	componentCfg, err := loadComponentConfig(filepath.Join(s.Workspace.RootDir, record.BaseConfigDir()))
	if err != nil {
		return nil, err
	}
	resolved := s.Workspace.ResolveComponentConfig(componentCfg, snapshot)

	component, err := core.NewComponent(core.NewComponentParams{
		Name:          record.ID.Name,
		Scope:         record.ID.Scope,
		Version:       record.ID.Version,
		Lang:          resolved.Lang,
		BindingPrefix: resolved.BindingPrefix,
		MainFile:      record.MainFile,
		Origin:        record.Origin,
		Files:         files,
		Compiler:      resolved.Compiler,
		Tester:        resolved.Tester,
	})
	if err != nil {
		return nil, err
	}
	component.MapRecord = record
	component.ModelSnapshot = snapshot
	component.DetachedCompiler = record.DetachedCompiler
	component.DetachedTester = record.DetachedTester
	if record.OriginallySharedDir != "" {
		component.RestoreSharedDir(record.OriginallySharedDir)
	}
	if snapshot != nil {
		component.License = snapshot.License
		component.Deprecated = snapshot.Deprecated
		// Cached dists from the prior model feed the rebuild-skip path.
		component.Dists = snapshot.Dists
		component.Dependencies = snapshot.Dependencies.Clone()
		component.DevDependencies = snapshot.DevDependencies.Clone()
		component.CompilerDependencies = snapshot.CompilerDependencies.Clone()
		component.TesterDependencies = snapshot.TesterDependencies.Clone()
	}
	return component, nil
}

// scanTrackedFiles reads every tracked file from disk. A missing main
// file is fatal; other missing files are reported for pruning.
func (s Service) scanTrackedFiles(record *types.IndexRecord) ([]types.SourceFile, []string, error) {
	var files []types.SourceFile
	var stale []string
	for _, entry := range record.Files {
		path := filepath.Join(s.Workspace.RootDir, filepath.FromSlash(entry.RelativePath))
		contents, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			if entry.RelativePath == record.MainFile {
				return nil, nil, errbuilder.New().
					WithCode(errbuilder.CodeNotFound).
					WithMsg("main file " + record.MainFile + " of " + record.ID.String() + " was removed from disk")
			}
			stale = append(stale, entry.RelativePath)
			continue
		}
		if err != nil {
			return nil, nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read tracked file " + entry.RelativePath).
				WithCause(err)
		}
		files = append(files, types.SourceFile{
			RelativePath: entry.RelativePath,
			Name:         entry.Name,
			Test:         entry.Test,
			Contents:     contents,
		})
	}
	return files, stale, nil
}

// loadModelSnapshot fetches the prior persisted version, when any.
// Absence is normal for components never tagged.
func (s Service) loadModelSnapshot(ctx context.Context, id types.ComponentID) *core.Component {
	doc, err := s.Store.LoadComponent(ctx, id)
	if err != nil {
		return nil
	}
	snapshot, err := core.FromDocument(*doc)
	if err != nil {
		log.Ctx(ctx).Warn().
			Str("component", id.String()).
			Err(err).
			Msg("stored model snapshot is unusable")
		return nil
	}
	return snapshot
}

func loadComponentConfig(configDir string) (*types.ComponentConfig, error) {
	data, err := os.ReadFile(filepath.Join(configDir, componentConfigName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read component config").
			WithCause(err)
	}
	var config types.ComponentConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component config is not valid yaml").
			WithCause(err)
	}
	return &config, nil
}

// LoadFromStore reconstructs a component read-only from the model
// store.
func (s Service) LoadFromStore(ctx context.Context, id types.ComponentID) (*core.Component, error) {
	doc, err := s.Store.LoadComponent(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.FromDocument(*doc)
}

// dependencyLoader adapts the service to core.ComponentLoader:
// workspace-first, store fallback.
type dependencyLoader struct {
	service Service
}

func (l dependencyLoader) HasExactVersion(id types.ComponentID) bool {
	return l.service.Workspace.Map.HasExactVersion(id)
}

func (l dependencyLoader) LoadFromWorkspace(ctx context.Context, id types.ComponentID) (*core.Component, error) {
	return l.service.LoadComponent(ctx, id)
}

func (l dependencyLoader) LoadFromStore(ctx context.Context, id types.ComponentID) (*core.Component, error) {
	return l.service.LoadFromStore(ctx, id)
}
