package app

import (
	"context"
	"os"
	"path/filepath"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"compkit/internal/core"
	"compkit/internal/ports"
	"compkit/internal/types"
)

// Build runs the build orchestrator for a tracked component and
// attaches the resulting dists. See buildComponent for the state
// machine; Build itself only adds loading and logging.
//
// Builds against one workspace must be serialized by the caller:
// plugin implementations may share caches under the workspace
// environment directory.
func (s Service) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	assert.NotEmpty(ctx, req.ID.Name, "build requires a component id")
	component, err := s.LoadComponent(ctx, req.ID)
	if err != nil {
		return BuildResult{}, err
	}
	outcome, err := s.buildComponent(ctx, component, buildOptions{
		NoCache:     req.NoCache,
		KeepCapsule: req.KeepCapsule,
	})
	if err != nil {
		return BuildResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("component", component.ID().String()).
		Bool("rebuilt", outcome.rebuilt).
		Int("dists", len(component.Dists)).
		Msg("build finished")
	return BuildResult{
		ID:          component.ID(),
		Dists:       component.Dists,
		Rebuilt:     outcome.rebuilt,
		CapsulePath: outcome.capsulePath,
	}, nil
}

type buildOptions struct {
	NoCache     bool
	KeepCapsule bool

	// noWorkspace forces the capsule path even when the service has a
	// workspace, used for isolated spec runs.
	noWorkspace bool

	// capsule reuses an existing capsule instead of creating one.
	capsule ports.Capsule
}

type buildOutcome struct {
	rebuilt     bool
	capsulePath string
}

// buildComponent is the build state machine. No compiler: either copy
// sources as dists (when dists live outside the component tree) or
// skip. With a compiler: reuse cached dists when nothing changed,
// otherwise install the compiler if needed and run it, in the
// workspace or in a disposable capsule.
func (s Service) buildComponent(ctx context.Context, component *core.Component, opts buildOptions) (buildOutcome, error) {
	workspace := s.Workspace
	if opts.noWorkspace {
		workspace = nil
	}

	if component.Compiler == nil {
		if workspace != nil && workspace.Config.DistTarget != "" {
			component.Dists = distsFromSources(component)
			return buildOutcome{rebuilt: true}, nil
		}
		return buildOutcome{}, nil
	}

	rebuild, err := s.shouldRebuild(component, workspace, opts.NoCache)
	if err != nil {
		return buildOutcome{}, err
	}
	if !rebuild {
		// Dist paths recorded in the persisted model still carry the
		// original shared prefix; imported components must strip it
		// before the cached dists are usable.
		if component.Origin == types.OriginImported {
			component.StripSharedDir()
		}
		return buildOutcome{}, nil
	}

	plugin := s.Plugins.Load(component.Compiler, types.EnvKindCompiler, s.envDir(workspace))
	if !plugin.Loaded() {
		if err := s.installPlugin(ctx, plugin, component, workspace); err != nil {
			return buildOutcome{}, err
		}
	}
	action, err := core.ResolveCompilerAction(plugin, component.ID())
	if err != nil {
		return buildOutcome{}, err
	}

	if workspace != nil {
		rootDir := workspace.ComponentDir(component.MapRecord)
		distRoot := s.distRoot(workspace, component)
		dists, err := s.runCompiler(ctx, component, plugin, action, rootDir, distRoot)
		if err != nil {
			return buildOutcome{}, err
		}
		component.Dists = dists
		if err := s.persistRebuiltDists(ctx, component); err != nil {
			return buildOutcome{}, err
		}
		return buildOutcome{rebuilt: true}, nil
	}

	// No consumer workspace: materialize into a capsule and build
	// there. The capsule is torn down on every exit path unless the
	// caller keeps it; a teardown failure never masks the build error.
	capsule := opts.capsule
	createdHere := false
	if capsule == nil {
		capsule, err = s.Capsules.Create("compkit-build")
		if err != nil {
			return buildOutcome{}, err
		}
		createdHere = true
	}
	outcome := buildOutcome{capsulePath: capsule.Path()}
	dists, buildErr := s.buildInCapsule(ctx, component, plugin, action, capsule)
	if createdHere && !opts.KeepCapsule {
		if destroyErr := capsule.Destroy(); destroyErr != nil && buildErr == nil {
			buildErr = destroyErr
		}
		outcome.capsulePath = ""
	}
	if buildErr != nil {
		return buildOutcome{}, buildErr
	}
	component.Dists = dists
	if err := s.persistRebuiltDists(ctx, component); err != nil {
		return buildOutcome{}, err
	}
	outcome.rebuilt = true
	return outcome, nil
}

// persistRebuiltDists refreshes the stored model's dist cache after a
// compile, so the next load's rebuild-skip sees current artifacts.
// Components never snapshotted have nothing to refresh.
func (s Service) persistRebuiltDists(ctx context.Context, component *core.Component) error {
	if component.ModelSnapshot == nil {
		return nil
	}
	docs := make([]types.DistDocument, 0, len(component.Dists))
	for _, dist := range component.Dists {
		docs = append(docs, types.DistDocument{
			RelativePath: dist.RelativePath,
			Name:         dist.Name,
			Test:         dist.Test,
			Contents:     dist.Contents,
		})
	}
	return s.Store.UpdateDist(ctx, component.ModelSnapshot.ID(), docs)
}

// shouldRebuild applies the rebuild decision: forced by NoCache; a
// component with no cached dists always builds, workspace or not; with
// attached dists, a workspace rebuilds iff it reports the component as
// modified, while a workspace-less run trusts them as-is.
func (s Service) shouldRebuild(component *core.Component, workspace *core.Workspace, noCache bool) (bool, error) {
	if noCache {
		return true, nil
	}
	if len(component.Dists) == 0 {
		return true, nil
	}
	if workspace == nil {
		return false, nil
	}
	return workspace.IsModified(component)
}

func (s Service) envDir(workspace *core.Workspace) string {
	if workspace != nil {
		return workspace.EnvDir()
	}
	return filepath.Join(os.TempDir(), "compkit-env")
}

func (s Service) installPlugin(ctx context.Context, plugin ports.PluginEnvelope, component *core.Component, workspace *core.Workspace) error {
	req := ports.InstallRequest{EnvDir: s.envDir(workspace)}
	if workspace != nil {
		req.WorkspaceRoot = workspace.RootDir
		if component.MapRecord != nil {
			req.ComponentDir = workspace.ComponentDir(component.MapRecord)
		}
	}
	return plugin.Install(ctx, req)
}

func (s Service) distRoot(workspace *core.Workspace, component *core.Component) string {
	if workspace.Config.DistTarget != "" {
		return filepath.Join(workspace.RootDir, workspace.Config.DistTarget, component.Name)
	}
	return filepath.Join(workspace.ComponentDir(component.MapRecord), "dist")
}

// runCompiler invokes the resolved action shape and enforces the
// artifact contract: every produced artifact must carry contents.
func (s Service) runCompiler(ctx context.Context, component *core.Component, plugin ports.PluginEnvelope, action core.CompilerAction, rootDir string, distRoot string) ([]types.Dist, error) {
	buildCtx := ports.BuildContext{
		Component: component.ToDocument(),
		DistRoot:  distRoot,
		RootDir:   rootDir,
		WorkDir:   rootDir,
	}
	var dists []types.Dist
	var err error
	if action.Batch != nil {
		var outcome ports.CompileOutcome
		outcome, err = action.Batch.Compile(ctx, ports.CompileBatch{
			Files:         component.Files(),
			RawConfig:     plugin.RawConfig(),
			DynamicConfig: plugin.DynamicConfig(),
			FileConfig:    plugin.FileConfig(),
			Context:       buildCtx,
		})
		dists = outcome.Files
	} else {
		dists, err = action.Legacy.CompileAll(ctx, component.Files(), distRoot, buildCtx)
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("compiler " + plugin.Name() + " failed to build " + component.ID().String()).
			WithCause(err)
	}
	for _, dist := range dists {
		if len(dist.Contents) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("compiler " + plugin.Name() + " produced artifact " + dist.RelativePath +
					" without contents for " + component.ID().String())
		}
	}
	return dists, nil
}

// buildInCapsule materializes the component into the capsule and runs
// the compiler against the materialized tree.
func (s Service) buildInCapsule(ctx context.Context, component *core.Component, plugin ports.PluginEnvelope, action core.CompilerAction, capsule ports.Capsule) ([]types.Dist, error) {
	rootDir := componentCapsuleDir(component)
	if err := capsule.WriteFiles(rootDir, component.Files()); err != nil {
		return nil, err
	}
	absRoot := filepath.Join(capsule.Path(), rootDir)
	return s.runCompiler(ctx, component, plugin, action, absRoot, filepath.Join(absRoot, "dist"))
}

func componentCapsuleDir(component *core.Component) string {
	return filepath.Join("components", component.Name)
}

// distsFromSources copies the component's own files as artifacts, used
// when a compiler-less component still needs dists outside its tree.
func distsFromSources(component *core.Component) []types.Dist {
	files := component.Files()
	dists := make([]types.Dist, 0, len(files))
	for _, f := range files {
		dists = append(dists, types.Dist{
			RelativePath: f.RelativePath,
			Name:         f.BaseName(),
			Test:         f.Test,
			Contents:     f.Contents,
		})
	}
	return dists
}
