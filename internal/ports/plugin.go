package ports

import (
	"context"

	"compkit/internal/types"
)

// InstallRequest scopes a plugin installation to the owning workspace
// and component directory.
type InstallRequest struct {
	WorkspaceRoot string
	ComponentDir  string
	EnvDir        string

	// Constraint optionally limits which published plugin versions are
	// acceptable, as a PEP 440 specifier set (">=1.0,<2.0").
	Constraint string
}

// PluginLoader wraps an environment descriptor into a runnable
// plugin envelope.
type PluginLoader interface {
	Load(descriptor *types.EnvDescriptor, kind types.EnvKind, envDir string) PluginEnvelope
}

// PluginEnvelope is the loaded form of a compiler or tester plugin.
// API returns the plugin's action implementation; its shape (batch or
// legacy) is resolved once at load time, not re-checked per call.
type PluginEnvelope interface {
	Name() string
	Loaded() bool
	RawConfig() map[string]any
	DynamicConfig() map[string]any
	FileConfig() map[string]map[string]any
	Files() map[string]string
	API() any
	Install(ctx context.Context, req InstallRequest) error
}

// BuildContext carries everything a compiler action needs besides the
// file list: a serialized snapshot of the component, the resolved dist
// root, the component's root directory, and the explicit working
// directory the action must run in. The process working directory is
// never changed on the action's behalf.
type BuildContext struct {
	Component types.ComponentDocument
	DistRoot  string
	RootDir   string
	WorkDir   string
}

// CompileBatch is the modern compiler action input: the file list plus
// three independent config blobs.
type CompileBatch struct {
	Files         []types.SourceFile
	RawConfig     map[string]any
	DynamicConfig map[string]any
	FileConfig    map[string]map[string]any
	Context       BuildContext
}

// CompileOutcome is the modern compiler action output.
type CompileOutcome struct {
	Files []types.Dist
}

// BatchCompiler is the modern compiler contract.
type BatchCompiler interface {
	Compile(ctx context.Context, batch CompileBatch) (CompileOutcome, error)
}

// LegacyCompiler is the legacy single-call compiler contract.
type LegacyCompiler interface {
	CompileAll(ctx context.Context, files []types.SourceFile, distRoot string, buildCtx BuildContext) ([]types.Dist, error)
}

// TestContext mirrors BuildContext for tester actions.
type TestContext struct {
	Component types.ComponentDocument
	RootDir   string
	WorkDir   string
}

// TestBatch is the modern tester action input.
type TestBatch struct {
	TestFiles     []string
	RawConfig     map[string]any
	DynamicConfig map[string]any
	Context       TestContext
}

// BatchTester is the modern tester contract.
type BatchTester interface {
	Test(ctx context.Context, batch TestBatch) ([]types.SpecResult, error)
}

// FileTester is the legacy per-file tester contract. A panic or error
// from one file is degraded to a failing result for that file alone.
type FileTester interface {
	TestFile(ctx context.Context, filePath string) (types.SpecResult, error)
}
