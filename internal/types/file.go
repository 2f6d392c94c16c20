package types

import "strings"

// SourceFile is one of a component's own files, source or test.
// RelativePath is slash-delimited and relative to the component root.
type SourceFile struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Test         bool   `json:"test,omitempty" yaml:"test,omitempty"`
	Contents     []byte `json:"-" yaml:"-"`
}

// BaseName returns the recorded name, falling back to the last path
// segment when no name was recorded.
func (f SourceFile) BaseName() string {
	if f.Name != "" {
		return f.Name
	}
	if idx := strings.LastIndex(f.RelativePath, "/"); idx >= 0 {
		return f.RelativePath[idx+1:]
	}
	return f.RelativePath
}

// Dist is a compiled build artifact derived from a source file.
type Dist struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"`
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Test         bool   `json:"test,omitempty" yaml:"test,omitempty"`
	Contents     []byte `json:"-" yaml:"-"`
}

// DependencyPath records one relative source path through which a
// dependency is referenced, optionally with an import-specifier
// rewrite destination.
type DependencyPath struct {
	SourceRelativePath string `json:"sourceRelativePath" yaml:"sourceRelativePath"`
	DestinationPath    string `json:"destinationRelativePath,omitempty" yaml:"destinationRelativePath,omitempty"`
}

// CustomResolvedPath maps an import alias to a destination path inside
// the component tree.
type CustomResolvedPath struct {
	ImportSource    string `json:"importSource" yaml:"importSource"`
	DestinationPath string `json:"destinationPath" yaml:"destinationPath"`
}

// Doclet is one extracted documentation block, derived lazily from a
// source file's contents.
type Doclet struct {
	FilePath    string   `json:"filePath"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Args        []string `json:"args,omitempty"`
}
