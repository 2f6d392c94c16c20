package core

import (
	"encoding/json"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"compkit/internal/types"
)

// ToDocument produces the component's stable serialized snapshot. Docs
// are carried through when already computed; otherwise they are left
// out and recomputed on the next load.
func (c *Component) ToDocument() types.ComponentDocument {
	doc := types.ComponentDocument{
		Name:          c.Name,
		Version:       c.Version,
		Scope:         c.Scope,
		Lang:          c.Lang,
		BindingPrefix: c.BindingPrefix,
		MainFile:      c.MainFile,
		Compiler:      c.Compiler,
		Tester:        c.Tester,

		DetachedCompiler: c.DetachedCompiler,
		DetachedTester:   c.DetachedTester,

		Dependencies:         dependencyDocuments(c.Dependencies),
		DevDependencies:      dependencyDocuments(c.DevDependencies),
		CompilerDependencies: dependencyDocuments(c.CompilerDependencies),
		TesterDependencies:   dependencyDocuments(c.TesterDependencies),

		FlattenedDependencies:         c.Dependencies.Flattened,
		FlattenedDevDependencies:      c.DevDependencies.Flattened,
		FlattenedCompilerDependencies: c.CompilerDependencies.Flattened,
		FlattenedTesterDependencies:   c.TesterDependencies.Flattened,

		PackageDependencies:         c.Dependencies.Packages.Prod,
		DevPackageDependencies:      c.Dependencies.Packages.Dev,
		PeerPackageDependencies:     c.Dependencies.Packages.Peer,
		CompilerPackageDependencies: c.CompilerDependencies.Packages.Prod,
		TesterPackageDependencies:   c.TesterDependencies.Packages.Prod,

		CustomResolvedPaths: c.CustomResolvedPaths,
		SpecsResults:        c.SpecsResults,
		License:             c.License,
		Log:                 c.Log,
		Deprecated:          c.Deprecated,
		OriginallySharedDir: c.OriginallySharedDir,
	}
	if c.docsComputed {
		doc.Docs = c.docs
	}
	doc.Files = make([]types.FileDocument, 0, len(c.Files()))
	for _, f := range c.Files() {
		doc.Files = append(doc.Files, types.FileDocument{
			RelativePath: f.RelativePath,
			Name:         f.Name,
			Test:         f.Test,
			Contents:     f.Contents,
		})
	}
	if c.Dists != nil {
		field := &types.DistsField{Dists: make([]types.DistDocument, 0, len(c.Dists))}
		for _, d := range c.Dists {
			field.Dists = append(field.Dists, types.DistDocument{
				RelativePath: d.RelativePath,
				Name:         d.Name,
				Test:         d.Test,
				Contents:     d.Contents,
			})
		}
		doc.Dists = field
	}
	return doc
}

func dependencyDocuments(list *DependencyList) []types.DependencyDocument {
	if list == nil || len(list.Records) == 0 {
		return nil
	}
	docs := make([]types.DependencyDocument, 0, len(list.Records))
	for _, record := range list.Records {
		docs = append(docs, types.DependencyDocument{
			ID:            record.ID,
			RelativePaths: record.RelativePaths,
		})
	}
	return docs
}

// FromDocument reconstructs a component from its serialized snapshot.
// Deprecated defaults to false when absent; compiler and tester are
// rebuilt from their descriptors.
func FromDocument(doc types.ComponentDocument) (*Component, error) {
	component, err := NewComponent(NewComponentParams{
		Name:          doc.Name,
		Scope:         doc.Scope,
		Version:       doc.Version,
		Lang:          doc.Lang,
		BindingPrefix: doc.BindingPrefix,
		MainFile:      doc.MainFile,
		Compiler:      doc.Compiler,
		Tester:        doc.Tester,
	})
	if err != nil {
		return nil, err
	}
	component.DetachedCompiler = doc.DetachedCompiler
	component.DetachedTester = doc.DetachedTester
	component.Deprecated = doc.Deprecated
	component.License = doc.License
	component.Log = doc.Log
	component.SpecsResults = doc.SpecsResults
	component.CustomResolvedPaths = doc.CustomResolvedPaths
	if doc.OriginallySharedDir != "" {
		component.RestoreSharedDir(doc.OriginallySharedDir)
	}

	component.Dependencies = documentDependencies(types.ClassRuntime, doc.Dependencies, doc.FlattenedDependencies)
	component.DevDependencies = documentDependencies(types.ClassDev, doc.DevDependencies, doc.FlattenedDevDependencies)
	component.CompilerDependencies = documentDependencies(types.ClassCompiler, doc.CompilerDependencies, doc.FlattenedCompilerDependencies)
	component.TesterDependencies = documentDependencies(types.ClassTester, doc.TesterDependencies, doc.FlattenedTesterDependencies)

	component.Dependencies.Packages.Prod = doc.PackageDependencies
	component.Dependencies.Packages.Dev = doc.DevPackageDependencies
	component.Dependencies.Packages.Peer = doc.PeerPackageDependencies
	component.CompilerDependencies.Packages.Prod = doc.CompilerPackageDependencies
	component.TesterDependencies.Packages.Prod = doc.TesterPackageDependencies

	// Files stay in their raw document shape until the first access.
	component.files = nil
	component.rawFiles = doc.Files

	if len(doc.Docs) > 0 {
		component.docs = doc.Docs
		component.docsComputed = true
	}
	if doc.Dists != nil {
		component.Dists = make([]types.Dist, 0, len(doc.Dists.Dists))
		for _, d := range doc.Dists.Dists {
			component.Dists = append(component.Dists, types.Dist{
				RelativePath: d.RelativePath,
				Name:         d.Name,
				Test:         d.Test,
				Contents:     d.Contents,
			})
		}
	}
	return component, nil
}

func documentDependencies(class types.DependencyClass, docs []types.DependencyDocument, flattened []types.ComponentID) *DependencyList {
	list := NewDependencyList(class)
	for _, doc := range docs {
		list.Records = append(list.Records, DependencyRecord{
			ID:            doc.ID,
			RelativePaths: doc.RelativePaths,
		})
	}
	list.Flattened = flattened
	return list
}

// FromJSON parses a serialized component document. The dists field is
// accepted both as a legacy bare array and as the current wrapped
// object; both produce identical dist lists.
func FromJSON(data []byte) (*Component, error) {
	var doc types.ComponentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse component document").
			WithCause(err)
	}
	return FromDocument(doc)
}

// ToJSON renders the component's document as JSON.
func (c *Component) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(c.ToDocument(), "", "  ")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal component document").
			WithCause(err)
	}
	return data, nil
}
