package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"compkit/internal/adapters"
	"compkit/internal/core"
	"compkit/internal/ports"
	"compkit/internal/types"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

// memStore is an in-memory model store for orchestrator tests.
type memStore struct {
	mu   sync.Mutex
	docs map[string]types.ComponentDocument
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]types.ComponentDocument{}}
}

func (m *memStore) put(doc types.ComponentDocument) {
	id := types.ComponentID{Scope: doc.Scope, Name: doc.Name, Version: doc.Version}
	m.docs[id.String()] = doc
}

func (m *memStore) LoadComponent(ctx context.Context, id types.ComponentID) (*types.ComponentDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id.HasVersion() {
		if doc, ok := m.docs[id.String()]; ok {
			return &doc, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + id.String() + " is not in the store")
	}
	best := ""
	for key := range m.docs {
		doc := m.docs[key]
		if doc.Scope == id.Scope && doc.Name == id.Name && doc.Version > best {
			best = doc.Version
		}
	}
	if best == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + id.String() + " is not in the store")
	}
	doc := m.docs[types.ComponentID{Scope: id.Scope, Name: id.Name, Version: best}.String()]
	return &doc, nil
}

func (m *memStore) PutComponent(ctx context.Context, doc types.ComponentDocument) error {
	if doc.Name == "" || doc.Version == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component document needs a name and a version to be stored")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(doc)
	return nil
}

func (m *memStore) ModifySpecsResults(ctx context.Context, id types.ComponentID, results []types.SpecResult) error {
	doc, err := m.LoadComponent(ctx, id)
	if err != nil {
		return err
	}
	doc.SpecsResults = results
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(*doc)
	return nil
}

func (m *memStore) UpdateDist(ctx context.Context, id types.ComponentID, dists []types.DistDocument) error {
	doc, err := m.LoadComponent(ctx, id)
	if err != nil {
		return err
	}
	doc.Dists = &types.DistsField{Dists: dists}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(*doc)
	return nil
}

func (m *memStore) ListVersions(ctx context.Context, id types.ComponentID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var versions []string
	for key := range m.docs {
		doc := m.docs[key]
		if doc.Scope == id.Scope && doc.Name == id.Name {
			versions = append(versions, doc.Version)
		}
	}
	return versions, nil
}

// fakePlugin satisfies ports.PluginEnvelope with an arbitrary API.
type fakePlugin struct {
	name       string
	api        any
	fileConfig map[string]map[string]any

	installs int
	loaded   bool
}

func (p *fakePlugin) Name() string                          { return p.name }
func (p *fakePlugin) Loaded() bool                          { return p.loaded }
func (p *fakePlugin) RawConfig() map[string]any             { return nil }
func (p *fakePlugin) DynamicConfig() map[string]any         { return nil }
func (p *fakePlugin) FileConfig() map[string]map[string]any { return p.fileConfig }
func (p *fakePlugin) Files() map[string]string              { return nil }
func (p *fakePlugin) API() any                              { return p.api }

func (p *fakePlugin) Install(ctx context.Context, req ports.InstallRequest) error {
	p.installs++
	p.loaded = true
	return nil
}

// fakePluginLoader hands out a fixed plugin regardless of descriptor.
type fakePluginLoader struct {
	plugin *fakePlugin
}

func (l fakePluginLoader) Load(descriptor *types.EnvDescriptor, kind types.EnvKind, envDir string) ports.PluginEnvelope {
	return l.plugin
}

// kindedPluginLoader hands out one plugin per slot.
type kindedPluginLoader struct {
	compiler *fakePlugin
	tester   *fakePlugin
}

func (l kindedPluginLoader) Load(descriptor *types.EnvDescriptor, kind types.EnvKind, envDir string) ports.PluginEnvelope {
	if kind == types.EnvKindTester {
		return l.tester
	}
	return l.compiler
}

// countingCompiler is a batch compiler that records invocations and
// the last batch it received.
type countingCompiler struct {
	mu    sync.Mutex
	calls int
	batch ports.CompileBatch
	dists []types.Dist
	err   error
}

func (c *countingCompiler) Compile(ctx context.Context, batch ports.CompileBatch) (ports.CompileOutcome, error) {
	c.mu.Lock()
	c.calls++
	c.batch = batch
	c.mu.Unlock()
	if c.err != nil {
		return ports.CompileOutcome{}, c.err
	}
	return ports.CompileOutcome{Files: c.dists}, nil
}

// recordingBatchTester returns canned results and remembers its batch.
type recordingBatchTester struct {
	results []types.SpecResult
	batch   ports.TestBatch
}

func (r *recordingBatchTester) Test(ctx context.Context, batch ports.TestBatch) ([]types.SpecResult, error) {
	r.batch = batch
	return r.results, nil
}

// scriptedFileTester runs one behavior per test file path.
type scriptedFileTester struct {
	behaviors map[string]func() (types.SpecResult, error)
}

func (s scriptedFileTester) TestFile(ctx context.Context, filePath string) (types.SpecResult, error) {
	if behavior, ok := s.behaviors[filePath]; ok {
		return behavior()
	}
	return types.SpecResult{FilePath: filePath, Pass: true}, nil
}

func writeTestFile(t *testing.T, root string, relativePath string, contents string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relativePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

var buttonID = types.ComponentID{Scope: "ui", Name: "button", Version: "1.0.0"}

// buttonDocument is a minimal stored model for the fixture component.
func buttonDocument() types.ComponentDocument {
	return types.ComponentDocument{
		Name:     "button",
		Scope:    "ui",
		Version:  "1.0.0",
		MainFile: "components/button/index.js",
		Files: []types.FileDocument{
			{RelativePath: "components/button/index.js", Name: "index.js"},
		},
	}
}

// newTestService builds a service over a real workspace map in a temp
// directory, with one tracked component and an in-memory store.
func newTestService(t *testing.T, plugins ports.PluginLoader) (Service, string, *memStore) {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, root, "components/button/index.js", "var x = 1\n")
	writeTestFile(t, root, "components/button/index.spec.js", "it('works')\n")
	writeTestFile(t, root, "components/button/util.spec.js", "it('also works')\n")

	componentMap, err := adapters.NewComponentMapAdapter(root)
	require.NoError(t, err)
	_, err = componentMap.Add(types.AddRecordRequest{
		ID:       buttonID,
		Origin:   types.OriginAuthored,
		RootDir:  "components/button",
		MainFile: "components/button/index.js",
		Files: []types.IndexFile{
			{RelativePath: "components/button/index.js", Name: "index.js"},
			{RelativePath: "components/button/index.spec.js", Name: "index.spec.js", Test: true},
			{RelativePath: "components/button/util.spec.js", Name: "util.spec.js", Test: true},
		},
	})
	require.NoError(t, err)

	store := newMemStore()
	workspace := &core.Workspace{
		RootDir: root,
		Map:     componentMap,
		Store:   store,
	}
	service := Service{
		Workspace: workspace,
		Store:     store,
		Capsules:  adapters.NewTempCapsuleFactory(),
		Plugins:   plugins,
		Clock:     testClock,
	}
	return service, root, store
}
