package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"compkit/internal/types"
)

func TestBuildWithoutCompilerSkips(t *testing.T) {
	service, _, _ := newTestService(t, fakePluginLoader{})

	result, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.NoError(t, err)
	require.False(t, result.Rebuilt)
	require.Empty(t, result.Dists)
}

func TestBuildWithoutCompilerCopiesSourcesWhenDistTargetSet(t *testing.T) {
	service, _, _ := newTestService(t, fakePluginLoader{})
	service.Workspace.Config.DistTarget = "dist"

	result, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.NoError(t, err)
	require.True(t, result.Rebuilt)
	require.Len(t, result.Dists, 3)
	require.Equal(t, "components/button/index.js", result.Dists[0].RelativePath)
	require.Equal(t, []byte("var x = 1\n"), result.Dists[0].Contents)
}

func TestBuildReusesCachedDistsWhenNothingChanged(t *testing.T) {
	compiler := &countingCompiler{}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	doc.Dists = &types.DistsField{Dists: []types.DistDocument{
		{RelativePath: "index.js", Name: "index.js", Contents: []byte("var x = 1\n")},
	}}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	result, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.NoError(t, err)
	require.False(t, result.Rebuilt)
	require.Len(t, result.Dists, 1)
	require.Equal(t, 0, compiler.calls)
}

func TestBuildNoCacheForcesRecompile(t *testing.T) {
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "index.js", Name: "index.js", Contents: []byte("var x=1")},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	doc.Dists = &types.DistsField{Dists: []types.DistDocument{
		{RelativePath: "stale.js", Contents: []byte("old")},
	}}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	result, err := service.Build(t.Context(), BuildRequest{ID: buttonID, NoCache: true})
	require.NoError(t, err)
	require.True(t, result.Rebuilt)
	require.Equal(t, 1, compiler.calls)
	require.Len(t, result.Dists, 1)
	require.Equal(t, "index.js", result.Dists[0].RelativePath)
}

func TestBuildRecompilesWhenTrackedFilesChanged(t *testing.T) {
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "index.js", Contents: []byte("var x=1")},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, root, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	doc.Dists = &types.DistsField{Dists: []types.DistDocument{
		{RelativePath: "index.js", Contents: []byte("old")},
	}}
	require.NoError(t, store.PutComponent(t.Context(), doc))
	writeTestFile(t, root, "components/button/extra.js", "var y = 2\n")

	result, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.NoError(t, err)
	require.True(t, result.Rebuilt)
	require.Equal(t, 1, compiler.calls)
}

func TestBuildInstallsUnloadedCompiler(t *testing.T) {
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "index.js", Contents: []byte("var x=1")},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	_, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.NoError(t, err)
	require.Equal(t, 1, plugin.installs)
	require.Equal(t, 1, compiler.calls)
}

func TestBuildRejectsArtifactsWithoutContents(t *testing.T) {
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "index.js"},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	_, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	require.Contains(t, err.Error(), "without contents")
}

func TestBuildWrapsCompilerFailure(t *testing.T) {
	compiler := &countingCompiler{err: errors.New("syntax error")}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	_, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	require.Contains(t, err.Error(), "fake-compiler")
}

func TestBuildUnknownComponent(t *testing.T) {
	service, _, _ := newTestService(t, fakePluginLoader{})

	_, err := service.Build(t.Context(), BuildRequest{
		ID: types.ComponentID{Name: "ghost", Version: "1.0.0"},
	})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

// Future mtimes count as modifications even when contents are equal.
func TestBuildTreatsFutureMtimeAsModified(t *testing.T) {
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "index.js", Contents: []byte("var x=1")},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, root, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	doc.Dists = &types.DistsField{Dists: []types.DistDocument{
		{RelativePath: "index.js", Contents: []byte("old")},
	}}
	require.NoError(t, store.PutComponent(t.Context(), doc))
	touchFuture(t, root, "components/button/index.js")

	result, err := service.Build(t.Context(), BuildRequest{ID: buttonID})
	require.NoError(t, err)
	require.True(t, result.Rebuilt)
	require.Equal(t, 1, compiler.calls)
}

func touchFuture(t *testing.T, root string, relativePath string) {
	t.Helper()
	future := time.Now().Add(time.Hour)
	path := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(t, os.Chtimes(path, future, future))
}

func TestBuildPassesFileConfigToCompiler(t *testing.T) {
	fileConfig := map[string]map[string]any{
		"components/button/index.js": {"target": "es2020"},
	}
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "index.js", Contents: []byte("var x=1")},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true, fileConfig: fileConfig}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	_, err := service.Build(t.Context(), BuildRequest{ID: buttonID, NoCache: true})
	require.NoError(t, err)
	require.Equal(t, fileConfig, compiler.batch.FileConfig)
}

func TestBuildRefreshesStoredDists(t *testing.T) {
	compiler := &countingCompiler{dists: []types.Dist{
		{RelativePath: "fresh.js", Name: "fresh.js", Contents: []byte("var fresh\n")},
	}}
	plugin := &fakePlugin{name: "fake-compiler", api: compiler, loaded: true}
	service, _, store := newTestService(t, fakePluginLoader{plugin: plugin})

	doc := buttonDocument()
	doc.Compiler = &types.EnvDescriptor{Name: "fake-compiler"}
	doc.Dists = &types.DistsField{Dists: []types.DistDocument{
		{RelativePath: "stale.js", Contents: []byte("old")},
	}}
	require.NoError(t, store.PutComponent(t.Context(), doc))

	_, err := service.Build(t.Context(), BuildRequest{ID: buttonID, NoCache: true})
	require.NoError(t, err)

	// The stored model's dist cache follows the compile.
	stored, err := store.LoadComponent(t.Context(), buttonID)
	require.NoError(t, err)
	require.NotNil(t, stored.Dists)
	require.Len(t, stored.Dists.Dists, 1)
	require.Equal(t, "fresh.js", stored.Dists.Dists[0].RelativePath)
	require.Equal(t, []byte("var fresh\n"), stored.Dists.Dists[0].Contents)
}
