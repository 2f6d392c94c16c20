package types

// IndexFile is one tracked file entry inside a workspace map record.
type IndexFile struct {
	RelativePath string `yaml:"relativePath"`
	Name         string `yaml:"name,omitempty"`
	Test         bool   `yaml:"test,omitempty"`
}

// IndexRecord is the workspace map's per-component record: where the
// component lives on disk and which files belong to it. The record is
// owned by the workspace map, never by the component; components
// mutate it only through the map's defined operations.
type IndexRecord struct {
	ID                  ComponentID     `yaml:"id"`
	Origin              ComponentOrigin `yaml:"origin"`
	RootDir             string          `yaml:"rootDir"`
	ConfigDir           string          `yaml:"configDir,omitempty"`
	MainFile            string          `yaml:"mainFile"`
	Files               []IndexFile     `yaml:"files"`
	DetachedCompiler    bool            `yaml:"detachedCompiler,omitempty"`
	DetachedTester      bool            `yaml:"detachedTester,omitempty"`
	OriginallySharedDir string          `yaml:"originallySharedDir,omitempty"`
	Parent              *ComponentID    `yaml:"parent,omitempty"`
	ExportPending       bool            `yaml:"exportPending,omitempty"`
}

// TrackDir returns the directory whose changes are tracked for this
// record: the root dir when set, otherwise the main file's directory.
func (r IndexRecord) TrackDir() string {
	if r.RootDir != "" {
		return r.RootDir
	}
	return dirOf(r.MainFile)
}

// BaseConfigDir returns the directory holding the record's own
// configuration, falling back to the track dir when the component is
// not detached from workspace defaults.
func (r IndexRecord) BaseConfigDir() string {
	if r.ConfigDir != "" {
		return r.ConfigDir
	}
	return r.TrackDir()
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// AddRecordRequest carries everything the workspace map needs to
// create or replace a component record.
type AddRecordRequest struct {
	ID                  ComponentID
	Origin              ComponentOrigin
	RootDir             string
	ConfigDir           string
	MainFile            string
	Files               []IndexFile
	DetachedCompiler    bool
	DetachedTester      bool
	OriginallySharedDir string
	Parent              *ComponentID
	Override            bool
}
