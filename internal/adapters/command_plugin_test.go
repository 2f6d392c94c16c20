package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"compkit/internal/ports"
	"compkit/internal/types"
)

const compileScript = `mkdir -p "$COMPKIT_DIST_ROOT"
for f in $COMPKIT_FILES; do
  printf 'compiled %s\n' "$f" > "$COMPKIT_DIST_ROOT/${f##*/}"
done
`

const testScript = `printf '[{"specFile":"index.spec.js","pass":true,"tests":2}]'
`

func inlineDescriptor(name string, script string) *types.EnvDescriptor {
	return &types.EnvDescriptor{
		Name:  name,
		Files: map[string]string{pluginScriptName: script},
	}
}

func TestCommandPluginInlineLoaded(t *testing.T) {
	plugin := NewCommandPlugin(inlineDescriptor("sh-compiler", compileScript), types.EnvKindCompiler, t.TempDir(), NewEnvHostAdapter(""))
	require.True(t, plugin.Loaded())
	require.Equal(t, "sh-compiler", plugin.Name())
}

func TestCommandPluginNotInstalled(t *testing.T) {
	descriptor := &types.EnvDescriptor{Name: "sh-compiler"}
	plugin := NewCommandPlugin(descriptor, types.EnvKindCompiler, t.TempDir(), NewEnvHostAdapter(""))
	require.False(t, plugin.Loaded())

	action, ok := plugin.API().(ports.BatchCompiler)
	require.True(t, ok)
	_, err := action.Compile(t.Context(), ports.CompileBatch{
		Context: ports.BuildContext{WorkDir: t.TempDir()},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not installed")
}

func TestCommandPluginCompileCollectsDists(t *testing.T) {
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "index.js"), []byte("var x = 1\n"), 0644))
	distRoot := filepath.Join(t.TempDir(), "dist")

	plugin := NewCommandPlugin(inlineDescriptor("sh-compiler", compileScript), types.EnvKindCompiler, t.TempDir(), NewEnvHostAdapter(""))
	action, ok := plugin.API().(ports.BatchCompiler)
	require.True(t, ok)

	outcome, err := action.Compile(t.Context(), ports.CompileBatch{
		Files: []types.SourceFile{{RelativePath: "index.js"}},
		Context: ports.BuildContext{
			Component: types.ComponentDocument{Name: "button"},
			DistRoot:  distRoot,
			RootDir:   workDir,
			WorkDir:   workDir,
		},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Files, 1)
	require.Equal(t, "index.js", outcome.Files[0].RelativePath)
	require.Equal(t, "compiled index.js\n", string(outcome.Files[0].Contents))
}

func TestCommandPluginTesterReportsResults(t *testing.T) {
	plugin := NewCommandPlugin(inlineDescriptor("sh-tester", testScript), types.EnvKindTester, t.TempDir(), NewEnvHostAdapter(""))
	action, ok := plugin.API().(ports.BatchTester)
	require.True(t, ok)

	results, err := action.Test(t.Context(), ports.TestBatch{
		TestFiles: []string{"index.spec.js"},
		Context: ports.TestContext{
			Component: types.ComponentDocument{Name: "button"},
			WorkDir:   t.TempDir(),
		},
	})
	require.NoError(t, err)
	want := []types.SpecResult{{FilePath: "index.spec.js", Pass: true, Tests: 2}}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("unexpected spec results (-want +got):\n%s", diff)
	}
}

func TestCommandPluginTesterRejectsUnparsableOutput(t *testing.T) {
	plugin := NewCommandPlugin(inlineDescriptor("sh-tester", `printf 'not json'`), types.EnvKindTester, t.TempDir(), NewEnvHostAdapter(""))
	action := plugin.API().(ports.BatchTester)
	_, err := action.Test(t.Context(), ports.TestBatch{Context: ports.TestContext{WorkDir: t.TempDir()}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unparsable test results")
}

func TestCommandPluginRejectsUnparsableScript(t *testing.T) {
	plugin := NewCommandPlugin(inlineDescriptor("sh-compiler", "if then fi ((("), types.EnvKindCompiler, t.TempDir(), NewEnvHostAdapter(""))
	action := plugin.API().(ports.BatchCompiler)
	_, err := action.Compile(t.Context(), ports.CompileBatch{Context: ports.BuildContext{WorkDir: t.TempDir()}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unparsable script")
}

func TestCommandPluginInstallInline(t *testing.T) {
	envDir := t.TempDir()
	plugin := NewCommandPlugin(inlineDescriptor("sh-compiler", compileScript), types.EnvKindCompiler, envDir, NewEnvHostAdapter(""))
	require.NoError(t, plugin.Install(t.Context(), ports.InstallRequest{EnvDir: envDir}))

	installed := filepath.Join(envDir, "sh-compiler", pluginScriptName)
	require.Equal(t, installed, plugin.ScriptPath())
	contents, err := os.ReadFile(installed)
	require.NoError(t, err)
	require.Equal(t, compileScript, string(contents))
}
