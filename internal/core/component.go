package core

import (
	"context"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"compkit/internal/types"
)

// Component is the aggregate root: a single versionable unit of source
// code, its four dependency classes, its build artifacts, and the
// handles the lifecycle operations need (prior model snapshot,
// borrowed workspace map record).
type Component struct {
	Name          string
	Scope         string
	Version       string
	Lang          string
	BindingPrefix string
	MainFile      string
	Origin        types.ComponentOrigin
	Deprecated    bool

	DetachedCompiler bool
	DetachedTester   bool
	Compiler         *types.EnvDescriptor
	Tester           *types.EnvDescriptor

	Dependencies         *DependencyList
	DevDependencies      *DependencyList
	CompilerDependencies *DependencyList
	TesterDependencies   *DependencyList

	Dists               []types.Dist
	CustomResolvedPaths []types.CustomResolvedPath
	SpecsResults        []types.SpecResult
	License             string
	Log                 *types.LogEntry

	// ModelSnapshot is the prior persisted version of this component,
	// used for diffing and config fallback. Non-owning: its lifetime is
	// independent of the live component.
	ModelSnapshot *Component

	// MapRecord is the workspace map record this component was loaded
	// against. Borrowed from the map; never owned here.
	MapRecord *types.IndexRecord

	// DependenciesSavedAsComponents is flipped to false the first time
	// a flattened dependency resolves through the store fallback,
	// signalling that dependencies must be written as package
	// references rather than linked component sources.
	DependenciesSavedAsComponents bool

	OriginallySharedDir string
	sharedDirComputed   bool
	sharedDirStripped   bool

	files    []types.SourceFile
	rawFiles []types.FileDocument

	docs         []types.Doclet
	docsComputed bool
}

// NewComponentParams carries the construction inputs. Only Name and
// MainFile are mandatory.
type NewComponentParams struct {
	Name          string
	Scope         string
	Version       string
	Lang          string
	BindingPrefix string
	MainFile      string
	Origin        types.ComponentOrigin
	Files         []types.SourceFile
	Compiler      *types.EnvDescriptor
	Tester        *types.EnvDescriptor
}

const defaultLang = "javascript"

// NewComponent constructs a component, rejecting empty Name or
// MainFile.
func NewComponent(params NewComponentParams) (*Component, error) {
	if params.Name == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component name is required")
	}
	if params.MainFile == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("component main file is required")
	}
	lang := params.Lang
	if lang == "" {
		lang = defaultLang
	}
	return &Component{
		Name:                          params.Name,
		Scope:                         params.Scope,
		Version:                       params.Version,
		Lang:                          lang,
		BindingPrefix:                 params.BindingPrefix,
		MainFile:                      params.MainFile,
		Origin:                        params.Origin,
		Compiler:                      params.Compiler,
		Tester:                        params.Tester,
		Dependencies:                  NewDependencyList(types.ClassRuntime),
		DevDependencies:               NewDependencyList(types.ClassDev),
		CompilerDependencies:          NewDependencyList(types.ClassCompiler),
		TesterDependencies:            NewDependencyList(types.ClassTester),
		DependenciesSavedAsComponents: true,
		files:                         params.Files,
	}, nil
}

// ID returns the component's identity. Always derivable.
func (c *Component) ID() types.ComponentID {
	return types.ComponentID{Scope: c.Scope, Name: c.Name, Version: c.Version}
}

// Files returns the component's own files, normalizing the raw
// serialized shape into typed file objects exactly once per load.
func (c *Component) Files() []types.SourceFile {
	if c.files == nil && c.rawFiles != nil {
		normalized := make([]types.SourceFile, 0, len(c.rawFiles))
		for _, raw := range c.rawFiles {
			normalized = append(normalized, types.SourceFile{
				RelativePath: raw.RelativePath,
				Name:         raw.Name,
				Test:         raw.Test,
				Contents:     raw.Contents,
			})
		}
		c.files = normalized
		c.rawFiles = nil
	}
	return c.files
}

// SetFiles replaces the component's files and invalidates derived
// state (docs are recomputed from file contents on next access).
func (c *Component) SetFiles(files []types.SourceFile) {
	c.files = files
	c.rawFiles = nil
	c.docs = nil
	c.docsComputed = false
}

// TestFiles returns only the files marked as test files.
func (c *Component) TestFiles() []types.SourceFile {
	var tests []types.SourceFile
	for _, f := range c.Files() {
		if f.Test {
			tests = append(tests, f)
		}
	}
	return tests
}

// DependencyLists returns the four classes in canonical order:
// runtime, dev, compiler, tester.
func (c *Component) DependencyLists() []*DependencyList {
	return []*DependencyList{
		c.Dependencies,
		c.DevDependencies,
		c.CompilerDependencies,
		c.TesterDependencies,
	}
}

// AllDependencies concatenates the direct records of all four classes
// in canonical class order. The order matters to callers that
// deduplicate by first occurrence.
func (c *Component) AllDependencies() []DependencyRecord {
	var all []DependencyRecord
	for _, list := range c.DependencyLists() {
		all = append(all, list.Records...)
	}
	return all
}

// AllFlattenedDependencies concatenates the flattened identities of
// all four classes in canonical class order.
func (c *Component) AllFlattenedDependencies() []types.ComponentID {
	var all []types.ComponentID
	for _, list := range c.DependencyLists() {
		all = append(all, list.Flattened...)
	}
	return all
}

// Clone produces a shallow copy of every field except the four
// dependency lists, which are deep-cloned. Files, dists, and the other
// fields remain shared references; callers needing isolation must copy
// them separately.
func (c *Component) Clone() *Component {
	clone := *c
	clone.Dependencies = c.Dependencies.Clone()
	clone.DevDependencies = c.DevDependencies.Clone()
	clone.CompilerDependencies = c.CompilerDependencies.Clone()
	clone.TesterDependencies = c.TesterDependencies.Clone()
	return &clone
}

// CopyDependenciesFromSnapshot copies, for each identity string, the
// first matching record found in the prior model snapshot (classes
// searched in canonical order) into the corresponding current class.
// An id found in no class is a programming-contract violation: the
// call fails and no class is mutated.
func (c *Component) CopyDependenciesFromSnapshot(ids []string) error {
	if c.ModelSnapshot == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("component has no model snapshot to copy dependencies from")
	}
	snapshotLists := c.ModelSnapshot.DependencyLists()
	currentLists := c.DependencyLists()

	type match struct {
		classIndex int
		record     DependencyRecord
	}
	matches := make([]match, 0, len(ids))
	for _, id := range ids {
		found := false
		for classIndex, list := range snapshotLists {
			if record := list.Get(id); record != nil {
				matches = append(matches, match{classIndex: classIndex, record: record.Clone()})
				found = true
				break
			}
		}
		if !found {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("dependency " + id + " of " + c.ID().String() + " is missing from the model snapshot")
		}
	}
	for _, m := range matches {
		currentLists[m.classIndex].Add(m.record)
	}
	return nil
}

// ComponentLoader resolves a flattened dependency identity into a full
// component, either from the live workspace or read-only from the
// persisted store.
type ComponentLoader interface {
	HasExactVersion(id types.ComponentID) bool
	LoadFromWorkspace(ctx context.Context, id types.ComponentID) (*Component, error)
	LoadFromStore(ctx context.Context, id types.ComponentID) (*Component, error)
}

// ComponentWithDependencies is a component plus every flattened
// dependency resolved to a full component, per class.
type ComponentWithDependencies struct {
	Component            *Component
	Dependencies         []*Component
	DevDependencies      []*Component
	CompilerDependencies []*Component
	TesterDependencies   []*Component
}

// AllResolved concatenates the resolved dependencies of all four
// classes in canonical class order.
func (cwd ComponentWithDependencies) AllResolved() []*Component {
	var all []*Component
	all = append(all, cwd.Dependencies...)
	all = append(all, cwd.DevDependencies...)
	all = append(all, cwd.CompilerDependencies...)
	all = append(all, cwd.TesterDependencies...)
	return all
}

const resolveWorkers = 8

// WithDependencies resolves every flattened identity across the four
// classes. A workspace-local load is preferred when the workspace map
// has the exact identity and version; otherwise the component is
// loaded read-only from the store, and the first such fallback flips
// DependenciesSavedAsComponents to false. Classes resolve
// independently in parallel; within a class the output preserves the
// flattened list's order.
func (c *Component) WithDependencies(ctx context.Context, loader ComponentLoader) (ComponentWithDependencies, error) {
	result := ComponentWithDependencies{Component: c}
	targets := []struct {
		ids []types.ComponentID
		out *[]*Component
	}{
		{c.Dependencies.Flattened, &result.Dependencies},
		{c.DevDependencies.Flattened, &result.DevDependencies},
		{c.CompilerDependencies.Flattened, &result.CompilerDependencies},
		{c.TesterDependencies.Flattened, &result.TesterDependencies},
	}

	var storeMu sync.Mutex
	markStoreFallback := func() {
		storeMu.Lock()
		c.DependenciesSavedAsComponents = false
		storeMu.Unlock()
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, resolveWorkers)
	var errMu sync.Mutex
	var firstErr error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, target := range targets {
		resolved := make([]*Component, len(target.ids))
		*target.out = resolved
		for i, id := range target.ids {
			i, id := i, id
			wg.Add(1)
			go func() {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				if ctx.Err() != nil {
					return
				}
				var dep *Component
				var err error
				if loader.HasExactVersion(id) {
					dep, err = loader.LoadFromWorkspace(ctx, id)
				} else {
					dep, err = loader.LoadFromStore(ctx, id)
					if err == nil {
						markStoreFallback()
					}
				}
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					errMu.Unlock()
					return
				}
				resolved[i] = dep
			}()
		}
	}
	wg.Wait()
	if firstErr != nil {
		return ComponentWithDependencies{}, firstErr
	}
	return result, nil
}
