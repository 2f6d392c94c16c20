package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"compkit/internal/core"
	"compkit/internal/types"
)

func TestWriteComponentAuthored(t *testing.T) {
	service, root, _ := newTestService(t, fakePluginLoader{})

	component, err := core.NewComponent(core.NewComponentParams{
		Name:     "icon",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "components/icon/index.js",
		Origin:   types.OriginAuthored,
		Files: []types.SourceFile{
			{RelativePath: "components/icon/index.js", Name: "index.js", Contents: []byte("var icon\n")},
		},
	})
	require.NoError(t, err)

	result, err := service.WriteComponent(t.Context(), component)
	require.NoError(t, err)
	require.Equal(t, 1, result.WrittenFiles)

	data, err := os.ReadFile(filepath.Join(root, "components/icon/index.js"))
	require.NoError(t, err)
	require.Equal(t, []byte("var icon\n"), data)

	record := service.Workspace.Map.Find(types.ComponentID{Scope: "ui", Name: "icon"})
	require.NotNil(t, record)
	require.Equal(t, types.OriginAuthored, record.Origin)
	require.Equal(t, "components/icon/index.js", record.MainFile)
}

func TestWriteComponentImportedStripsSharedDir(t *testing.T) {
	service, root, _ := newTestService(t, fakePluginLoader{})

	component, err := core.NewComponent(core.NewComponentParams{
		Name:     "icon",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "src/index.js",
		Origin:   types.OriginImported,
		Files: []types.SourceFile{
			{RelativePath: "src/index.js", Name: "index.js", Contents: []byte("var icon\n")},
			{RelativePath: "src/render.js", Name: "render.js", Contents: []byte("var render\n")},
		},
	})
	require.NoError(t, err)

	_, err = service.WriteComponent(t.Context(), component)
	require.NoError(t, err)
	require.Equal(t, "src", component.OriginallySharedDir)

	// Files land directly under the component dir, without the shared
	// prefix from the imported layout.
	_, err = os.Stat(filepath.Join(root, "components/icon/index.js"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "components/icon/render.js"))
	require.NoError(t, err)

	record := service.Workspace.Map.Find(types.ComponentID{Scope: "ui", Name: "icon"})
	require.NotNil(t, record)
	require.Equal(t, "components/icon/index.js", record.MainFile)
	require.Equal(t, "src", record.OriginallySharedDir)
}

func TestWriteComponentKeepsAuthoredRecordOverImport(t *testing.T) {
	service, _, _ := newTestService(t, fakePluginLoader{})

	component, err := core.NewComponent(core.NewComponentParams{
		Name:     "button",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "index.js",
		Origin:   types.OriginImported,
		Files: []types.SourceFile{
			{RelativePath: "index.js", Name: "index.js", Contents: []byte("var imported\n")},
		},
	})
	require.NoError(t, err)

	_, err = service.WriteComponent(t.Context(), component)
	require.NoError(t, err)

	// The authored record wins; the imported arrival never demotes it.
	record := service.Workspace.Map.Find(buttonID)
	require.NotNil(t, record)
	require.Equal(t, types.OriginAuthored, record.Origin)
	require.Same(t, record, component.MapRecord)
}

func TestWriteComponentImportedWithDistsWritesThem(t *testing.T) {
	service, root, _ := newTestService(t, fakePluginLoader{})

	component, err := core.NewComponent(core.NewComponentParams{
		Name:     "icon",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "index.js",
		Origin:   types.OriginImported,
		Files: []types.SourceFile{
			{RelativePath: "index.js", Name: "index.js", Contents: []byte("var icon\n")},
		},
	})
	require.NoError(t, err)
	component.Dists = []types.Dist{
		{RelativePath: "index.js", Name: "index.js", Contents: []byte("var compiled\n")},
	}

	// The arriving component has no map record yet; the dist target
	// resolves through the record created during the write.
	_, err = service.WriteComponent(t.Context(), component)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "components/icon/dist/index.js"))
	require.NoError(t, err)
	require.Equal(t, []byte("var compiled\n"), data)
}

func TestWriteComponentImportedGainsPriorDependencyPaths(t *testing.T) {
	service, _, store := newTestService(t, fakePluginLoader{})
	store.put(types.ComponentDocument{
		Name:     "icon",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "components/icon/index.js",
		Files: []types.FileDocument{
			{RelativePath: "components/icon/index.js", Name: "index.js"},
		},
		Dependencies: []types.DependencyDocument{{
			ID:            buttonID,
			RelativePaths: []types.DependencyPath{{SourceRelativePath: "index.js"}},
		}},
	})

	component, err := core.NewComponent(core.NewComponentParams{
		Name:     "icon",
		Scope:    "ui",
		Version:  "2.0.0",
		MainFile: "index.js",
		Origin:   types.OriginImported,
		Files: []types.SourceFile{
			{RelativePath: "index.js", Name: "index.js", Contents: []byte("var icon\n")},
		},
	})
	require.NoError(t, err)
	component.Dependencies.Add(core.DependencyRecord{ID: buttonID})

	_, err = service.WriteComponent(t.Context(), component)
	require.NoError(t, err)

	// The prior snapshot's recorded paths fill in what the arrival
	// lacked.
	record := component.Dependencies.Get(buttonID.String())
	require.NotNil(t, record)
	require.Equal(t, []types.DependencyPath{{SourceRelativePath: "index.js"}}, record.RelativePaths)
}
