package types

import (
	"encoding/json"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// EnvDescriptor is the serialized form of a compiler or tester
// reference: which plugin implements it plus its configuration blobs.
type EnvDescriptor struct {
	Name          string            `json:"name" yaml:"name"`
	RawConfig     map[string]any    `json:"rawConfig,omitempty" yaml:"rawConfig,omitempty"`
	DynamicConfig map[string]any    `json:"dynamicConfig,omitempty" yaml:"dynamicConfig,omitempty"`
	// FileConfig holds per-source-file overrides, keyed by the file's
	// component-relative path.
	FileConfig map[string]map[string]any `json:"fileConfig,omitempty" yaml:"fileConfig,omitempty"`
	Files      map[string]string         `json:"files,omitempty" yaml:"files,omitempty"`
}

// DependencyDocument is the serialized form of one dependency record.
type DependencyDocument struct {
	ID            ComponentID      `json:"id"`
	RelativePaths []DependencyPath `json:"relativePaths,omitempty"`
}

// FileDocument is the serialized form of a source file. Contents are
// carried base64-encoded by encoding/json.
type FileDocument struct {
	RelativePath string `json:"relativePath"`
	Name         string `json:"name,omitempty"`
	Test         bool   `json:"test,omitempty"`
	Contents     []byte `json:"contents,omitempty"`
}

// DistDocument is the serialized form of a build artifact.
type DistDocument struct {
	RelativePath string `json:"relativePath"`
	Name         string `json:"name,omitempty"`
	Test         bool   `json:"test,omitempty"`
	Contents     []byte `json:"contents,omitempty"`
}

// DistsField accepts both serialized shapes of the dists field: the
// legacy bare array and the current {"dists": [...]} wrapper. Both
// deserialize identically; marshaling always emits the wrapper.
type DistsField struct {
	Dists []DistDocument
}

func (d DistsField) MarshalJSON() ([]byte, error) {
	if d.Dists == nil {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Dists []DistDocument `json:"dists"`
	}{Dists: d.Dists})
}

func (d *DistsField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		d.Dists = nil
		return nil
	}
	var bare []DistDocument
	if err := json.Unmarshal(data, &bare); err == nil {
		d.Dists = bare
		return nil
	}
	var wrapped struct {
		Dists []DistDocument `json:"dists"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dists field is neither an array nor a dists wrapper").
			WithCause(err)
	}
	d.Dists = wrapped.Dists
	return nil
}

// ComponentDocument is the stable serialized component shape exchanged
// with the model store. The field set is fixed by contract.
type ComponentDocument struct {
	Name          string         `json:"name"`
	Version       string         `json:"version,omitempty"`
	Scope         string         `json:"scope,omitempty"`
	Lang          string         `json:"lang,omitempty"`
	BindingPrefix string         `json:"bindingPrefix,omitempty"`
	MainFile      string         `json:"mainFile"`
	Compiler      *EnvDescriptor `json:"compiler,omitempty"`
	Tester        *EnvDescriptor `json:"tester,omitempty"`

	DetachedCompiler bool `json:"detachedCompiler,omitempty"`
	DetachedTester   bool `json:"detachedTester,omitempty"`

	Dependencies         []DependencyDocument `json:"dependencies,omitempty"`
	DevDependencies      []DependencyDocument `json:"devDependencies,omitempty"`
	CompilerDependencies []DependencyDocument `json:"compilerDependencies,omitempty"`
	TesterDependencies   []DependencyDocument `json:"testerDependencies,omitempty"`

	FlattenedDependencies         []ComponentID `json:"flattenedDependencies,omitempty"`
	FlattenedDevDependencies      []ComponentID `json:"flattenedDevDependencies,omitempty"`
	FlattenedCompilerDependencies []ComponentID `json:"flattenedCompilerDependencies,omitempty"`
	FlattenedTesterDependencies   []ComponentID `json:"flattenedTesterDependencies,omitempty"`

	PackageDependencies         map[string]string `json:"packageDependencies,omitempty"`
	DevPackageDependencies      map[string]string `json:"devPackageDependencies,omitempty"`
	PeerPackageDependencies     map[string]string `json:"peerPackageDependencies,omitempty"`
	CompilerPackageDependencies map[string]string `json:"compilerPackageDependencies,omitempty"`
	TesterPackageDependencies   map[string]string `json:"testerPackageDependencies,omitempty"`

	Files               []FileDocument       `json:"files"`
	Docs                []Doclet             `json:"docs,omitempty"`
	Dists               *DistsField          `json:"dists,omitempty"`
	CustomResolvedPaths []CustomResolvedPath `json:"customResolvedPaths,omitempty"`
	SpecsResults        []SpecResult         `json:"specsResults,omitempty"`
	License             string               `json:"license,omitempty"`
	Log                 *LogEntry            `json:"log,omitempty"`
	Deprecated          bool                 `json:"deprecated,omitempty"`
	OriginallySharedDir string               `json:"originallySharedDir,omitempty"`
}

// LogEntry records who persisted a component version, and when.
type LogEntry struct {
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Date     string `json:"date,omitempty" yaml:"date,omitempty"`
}
