package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"compkit/internal/ports"
	"compkit/internal/types"
)

const pluginScriptName = "impl.sh"

// CommandPlugin is the builtin command-driven plugin: its build and
// test actions run a POSIX shell script through an embedded
// interpreter with an explicit working directory. The process working
// directory is never touched.
type CommandPlugin struct {
	descriptor *types.EnvDescriptor
	kind       types.EnvKind
	envDir     string
	host       EnvHostAdapter
	scriptPath string
}

// NewCommandPlugin wraps a descriptor. The plugin counts as loaded
// once its script is present in the env dir or carried inline.
func NewCommandPlugin(descriptor *types.EnvDescriptor, kind types.EnvKind, envDir string, host EnvHostAdapter) *CommandPlugin {
	plugin := &CommandPlugin{
		descriptor: descriptor,
		kind:       kind,
		envDir:     envDir,
		host:       host,
	}
	installed := filepath.Join(envDir, descriptor.Name, pluginScriptName)
	if _, err := os.Stat(installed); err == nil {
		plugin.scriptPath = installed
	}
	return plugin
}

func (p *CommandPlugin) Name() string { return p.descriptor.Name }

func (p *CommandPlugin) Loaded() bool {
	if p.scriptPath != "" {
		return true
	}
	_, ok := p.descriptor.Files[pluginScriptName]
	return ok
}

func (p *CommandPlugin) RawConfig() map[string]any             { return p.descriptor.RawConfig }
func (p *CommandPlugin) DynamicConfig() map[string]any         { return p.descriptor.DynamicConfig }
func (p *CommandPlugin) FileConfig() map[string]map[string]any { return p.descriptor.FileConfig }
func (p *CommandPlugin) Files() map[string]string              { return p.descriptor.Files }

// ScriptPath returns the installed implementation file, when any.
func (p *CommandPlugin) ScriptPath() string { return p.scriptPath }

func (p *CommandPlugin) Install(ctx context.Context, req ports.InstallRequest) error {
	envDir := req.EnvDir
	if envDir == "" {
		envDir = p.envDir
	}
	path, err := p.host.InstallScript(ctx, p.descriptor, envDir, req)
	if err != nil {
		return err
	}
	p.scriptPath = path
	return nil
}

// API exposes the action matching the plugin's slot: compilers get the
// batch compile contract, testers the batch test contract.
func (p *CommandPlugin) API() any {
	if p.kind == types.EnvKindTester {
		return commandTestAction{plugin: p}
	}
	return commandCompileAction{plugin: p}
}

func (p *CommandPlugin) script() (string, error) {
	if inline, ok := p.descriptor.Files[pluginScriptName]; ok && p.scriptPath == "" {
		return inline, nil
	}
	if p.scriptPath == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("plugin " + p.descriptor.Name + " is not installed")
	}
	data, err := os.ReadFile(p.scriptPath)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read plugin script for " + p.descriptor.Name).
			WithCause(err)
	}
	return string(data), nil
}

// runScript executes the plugin script in workDir with the given extra
// environment, returning captured stdout.
func (p *CommandPlugin) runScript(ctx context.Context, workDir string, env map[string]string) (string, error) {
	script, err := p.script()
	if err != nil {
		return "", err
	}
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), p.descriptor.Name)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("plugin " + p.descriptor.Name + " has an unparsable script").
			WithCause(err)
	}
	pairs := os.Environ()
	for key, value := range env {
		pairs = append(pairs, key+"="+value)
	}
	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expand.ListEnviron(pairs...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create script interpreter").
			WithCause(err)
	}
	if err := runner.Run(ctx, prog); err != nil {
		return stdout.String(), errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("plugin " + p.descriptor.Name + " script failed: " + strings.TrimSpace(stderr.String())).
			WithCause(err)
	}
	return stdout.String(), nil
}

type commandCompileAction struct {
	plugin *CommandPlugin
}

// Compile runs the build script and collects everything the script
// wrote under the dist root as artifacts.
func (a commandCompileAction) Compile(ctx context.Context, batch ports.CompileBatch) (ports.CompileOutcome, error) {
	var sourcePaths []string
	for _, f := range batch.Files {
		sourcePaths = append(sourcePaths, f.RelativePath)
	}
	env := map[string]string{
		"COMPKIT_COMPONENT": batch.Context.Component.Name,
		"COMPKIT_DIST_ROOT": batch.Context.DistRoot,
		"COMPKIT_ROOT_DIR":  batch.Context.RootDir,
		"COMPKIT_FILES":     strings.Join(sourcePaths, " "),
	}
	if _, err := a.plugin.runScript(ctx, batch.Context.WorkDir, env); err != nil {
		return ports.CompileOutcome{}, err
	}
	dists, err := collectDists(batch.Context.DistRoot)
	if err != nil {
		return ports.CompileOutcome{}, err
	}
	return ports.CompileOutcome{Files: dists}, nil
}

func collectDists(distRoot string) ([]types.Dist, error) {
	var dists []types.Dist
	err := filepath.Walk(distRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(distRoot, path)
		if err != nil {
			return err
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		dists = append(dists, types.Dist{
			RelativePath: filepath.ToSlash(rel),
			Name:         info.Name(),
			Contents:     contents,
		})
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to collect dist artifacts").
			WithCause(err)
	}
	return dists, nil
}

type commandTestAction struct {
	plugin *CommandPlugin
}

// Test runs the test script once for the whole batch. The script
// reports its results as a JSON array of spec results on stdout.
func (a commandTestAction) Test(ctx context.Context, batch ports.TestBatch) ([]types.SpecResult, error) {
	env := map[string]string{
		"COMPKIT_COMPONENT":  batch.Context.Component.Name,
		"COMPKIT_ROOT_DIR":   batch.Context.RootDir,
		"COMPKIT_TEST_FILES": strings.Join(batch.TestFiles, " "),
	}
	stdout, err := a.plugin.runScript(ctx, batch.Context.WorkDir, env)
	if err != nil {
		return nil, err
	}
	var results []types.SpecResult
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("plugin " + a.plugin.Name() + " produced unparsable test results").
			WithCause(err)
	}
	return results, nil
}
