package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"compkit/internal/adapters"
	"compkit/internal/core"
	"compkit/internal/ports"
	"compkit/internal/types"
)

// RunSpecs runs a component's test files through its tester plugin.
// Specs failing is a business outcome: it only becomes an error when
// the caller asked to reject on failure. A single crashing test file
// under the per-file contract degrades to a failing result for that
// file alone.
func (s Service) RunSpecs(ctx context.Context, req SpecsRequest) (SpecsResult, error) {
	assert.NotEmpty(ctx, req.ID.Name, "running specs requires a component id")
	component, err := s.LoadComponent(ctx, req.ID)
	if err != nil {
		return SpecsResult{}, err
	}
	result := SpecsResult{ID: component.ID(), Pass: true}
	testFiles := component.TestFiles()
	if component.Tester == nil || len(testFiles) == 0 {
		return result, nil
	}

	plugin := s.Plugins.Load(component.Tester, types.EnvKindTester, s.envDir(s.Workspace))
	if !plugin.Loaded() {
		if err := s.installPlugin(ctx, plugin, component, s.Workspace); err != nil {
			return SpecsResult{}, err
		}
	}
	action, err := core.ResolveTesterAction(plugin, component.ID())
	if err != nil {
		return SpecsResult{}, err
	}

	var results []types.SpecResult
	if req.Isolated {
		results, err = s.runSpecsInCapsule(ctx, component, plugin, action, req.KeepCapsule)
	} else {
		results, err = s.runSpecsInWorkspace(ctx, component, plugin, action)
	}
	if err != nil {
		return SpecsResult{}, err
	}
	component.SpecsResults = results
	result.Results = results
	result.Pass = types.AllPassing(results)

	if req.Save && result.Pass {
		if err := s.Store.ModifySpecsResults(ctx, component.ID(), results); err != nil {
			return SpecsResult{}, err
		}
	}
	if req.RejectOnFailure && !result.Pass {
		builder := errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition)
		if req.Verbose {
			builder = builder.WithMsg("component specs failed for " + component.ID().String() + "\n" + renderSpecsReport(results))
		} else {
			builder = builder.WithMsg("component specs failed for " + component.ID().String())
		}
		return SpecsResult{}, builder
	}
	return result, nil
}

// runSpecsInWorkspace runs tests against the live working tree: the
// component is built and its dists written to disk first, then the
// tester runs in the component directory.
func (s Service) runSpecsInWorkspace(ctx context.Context, component *core.Component, plugin ports.PluginEnvelope, action core.TesterAction) ([]types.SpecResult, error) {
	if _, err := s.buildComponent(ctx, component, buildOptions{}); err != nil {
		return nil, err
	}
	if len(component.Dists) > 0 {
		if err := s.writeDists(component); err != nil {
			return nil, err
		}
	}
	workDir := s.Workspace.ComponentDir(component.MapRecord)
	return s.invokeTester(ctx, component, plugin, action, workDir)
}

// runSpecsInCapsule materializes the component, its flattened
// dependencies, and the tester's own implementation file into a
// disposable capsule, builds there, writes the dist test files, and
// runs. The capsule is destroyed on every exit path unless kept; a
// destroy failure never masks the run's own error.
func (s Service) runSpecsInCapsule(ctx context.Context, component *core.Component, plugin ports.PluginEnvelope, action core.TesterAction, keep bool) ([]types.SpecResult, error) {
	withDeps, err := component.WithDependencies(ctx, dependencyLoader{service: s})
	if err != nil {
		return nil, err
	}
	capsule, err := s.Capsules.Create("compkit-specs")
	if err != nil {
		return nil, err
	}
	results, runErr := s.runSpecsInCapsuleInner(ctx, withDeps, plugin, action, capsule)
	if !keep {
		if destroyErr := capsule.Destroy(); destroyErr != nil && runErr == nil {
			runErr = destroyErr
		}
	} else if runErr == nil {
		log.Ctx(ctx).Info().Str("capsule", capsule.Path()).Msg("capsule kept for inspection")
	}
	if runErr != nil {
		return nil, runErr
	}
	return results, nil
}

func (s Service) runSpecsInCapsuleInner(ctx context.Context, withDeps core.ComponentWithDependencies, plugin ports.PluginEnvelope, action core.TesterAction, capsule ports.Capsule) ([]types.SpecResult, error) {
	component := withDeps.Component
	rootDir := componentCapsuleDir(component)
	if err := capsule.WriteFiles(rootDir, component.Files()); err != nil {
		return nil, err
	}
	for _, dep := range withDeps.AllResolved() {
		if err := capsule.WriteFiles(componentCapsuleDir(dep), dep.Files()); err != nil {
			return nil, err
		}
	}
	if commandPlugin, ok := plugin.(*adapters.CommandPlugin); ok && commandPlugin.ScriptPath() != "" {
		script, err := scriptAsFile(commandPlugin)
		if err != nil {
			return nil, err
		}
		if err := capsule.WriteFiles(rootDir, []types.SourceFile{script}); err != nil {
			return nil, err
		}
	}
	if _, err := s.buildComponent(ctx, component, buildOptions{noWorkspace: true, capsule: capsule}); err != nil {
		return nil, err
	}
	var distTests []types.Dist
	for _, dist := range component.Dists {
		if dist.Test {
			distTests = append(distTests, dist)
		}
	}
	if len(distTests) > 0 {
		if err := capsule.WriteDists(rootDir, distTests); err != nil {
			return nil, err
		}
	}
	workDir := filepath.Join(capsule.Path(), rootDir)
	return s.invokeTester(ctx, component, plugin, action, workDir)
}

// invokeTester dispatches to the resolved tester shape. Per-file runs
// fan out in parallel, each producing an independent result; output
// order follows the input file order.
func (s Service) invokeTester(ctx context.Context, component *core.Component, plugin ports.PluginEnvelope, action core.TesterAction, workDir string) ([]types.SpecResult, error) {
	testFiles := component.TestFiles()
	paths := make([]string, 0, len(testFiles))
	for _, f := range testFiles {
		paths = append(paths, f.RelativePath)
	}
	if action.Batch != nil {
		results, err := action.Batch.Test(ctx, ports.TestBatch{
			TestFiles:     paths,
			RawConfig:     plugin.RawConfig(),
			DynamicConfig: plugin.DynamicConfig(),
			Context: ports.TestContext{
				Component: component.ToDocument(),
				RootDir:   workDir,
				WorkDir:   workDir,
			},
		})
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("tester " + plugin.Name() + " failed for " + component.ID().String()).
				WithCause(err)
		}
		return results, nil
	}

	results := make([]types.SpecResult, len(paths))
	var wg sync.WaitGroup
	sem := make(chan struct{}, resolveTestWorkers)
	for i, path := range paths {
		i, path := i, path
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.runSingleSpecFile(ctx, action.PerFile, path)
		}()
	}
	wg.Wait()
	return results, nil
}

const resolveTestWorkers = 4

// runSingleSpecFile converts any crash of one test file into a failing
// result for that file, keeping the rest of the run alive.
func (s Service) runSingleSpecFile(ctx context.Context, tester ports.FileTester, path string) (result types.SpecResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = failingResult(path, fmt.Sprintf("%v", recovered))
		}
	}()
	outcome, err := tester.TestFile(ctx, path)
	if err != nil {
		return failingResult(path, err.Error())
	}
	if outcome.FilePath == "" {
		outcome.FilePath = path
	}
	return outcome
}

func failingResult(path string, message string) types.SpecResult {
	return types.SpecResult{
		FilePath: path,
		Pass:     false,
		Failures: []types.SpecFailure{{Title: "test file crashed", Err: message}},
	}
}

func renderSpecsReport(results []types.SpecResult) string {
	var sb strings.Builder
	for _, result := range results {
		status := "PASS"
		if !result.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "%s %s\n", status, result.FilePath)
		for _, failure := range result.Failures {
			fmt.Fprintf(&sb, "  - %s", failure.Title)
			if failure.Err != "" {
				fmt.Fprintf(&sb, ": %s", failure.Err)
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// scriptAsFile exposes the tester's installed implementation as a file
// that can be materialized next to the component in a capsule.
func scriptAsFile(plugin *adapters.CommandPlugin) (types.SourceFile, error) {
	contents, err := os.ReadFile(plugin.ScriptPath())
	if err != nil {
		return types.SourceFile{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read tester implementation for capsule").
			WithCause(err)
	}
	return types.SourceFile{
		RelativePath: filepath.Base(plugin.ScriptPath()),
		Name:         filepath.Base(plugin.ScriptPath()),
		Contents:     contents,
	}, nil
}
