package adapters

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"compkit/internal/types"
)

const mapRelativePath = ".compkit/map.yaml"

type componentMapFile struct {
	Version    int                 `yaml:"version"`
	Components []types.IndexRecord `yaml:"components"`
}

// ComponentMapAdapter is the YAML-persisted workspace component map.
// Mutations happen synchronously in memory; Persist writes the file.
type ComponentMapAdapter struct {
	workspaceRoot string
	path          string
	records       []*types.IndexRecord

	// loadedAt anchors change tracking: a tracked file modified after
	// the map was last written counts as a change.
	loadedAt time.Time
}

// NewComponentMapAdapter loads the workspace map, starting empty when
// the map file does not exist yet.
func NewComponentMapAdapter(workspaceRoot string) (*ComponentMapAdapter, error) {
	adapter := &ComponentMapAdapter{
		workspaceRoot: workspaceRoot,
		path:          filepath.Join(workspaceRoot, mapRelativePath),
		loadedAt:      time.Now(),
	}
	data, err := os.ReadFile(adapter.path)
	if os.IsNotExist(err) {
		return adapter, nil
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read workspace map").
			WithCause(err)
	}
	var file componentMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("workspace map is not valid yaml").
			WithCause(err)
	}
	for i := range file.Components {
		record := file.Components[i]
		adapter.records = append(adapter.records, &record)
	}
	if info, err := os.Stat(adapter.path); err == nil {
		adapter.loadedAt = info.ModTime()
	}
	return adapter, nil
}

// Records exposes every tracked record, for status-style walks.
func (a *ComponentMapAdapter) Records() []*types.IndexRecord {
	return a.records
}

func (a *ComponentMapAdapter) Find(id types.ComponentID) *types.IndexRecord {
	for _, record := range a.records {
		if !record.ID.SameIgnoringVersion(id) {
			continue
		}
		if id.HasVersion() && record.ID.Version != id.Version {
			continue
		}
		return record
	}
	return nil
}

func (a *ComponentMapAdapter) HasExactVersion(id types.ComponentID) bool {
	for _, record := range a.records {
		if record.ID.Equal(id) {
			return true
		}
	}
	return false
}

func (a *ComponentMapAdapter) Add(req types.AddRecordRequest) (*types.IndexRecord, error) {
	existing := a.Find(req.ID)
	if existing != nil && !req.Override {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeAlreadyExists).
			WithMsg("component " + req.ID.String() + " is already tracked")
	}
	record := &types.IndexRecord{
		ID:                  req.ID,
		Origin:              req.Origin,
		RootDir:             req.RootDir,
		ConfigDir:           req.ConfigDir,
		MainFile:            req.MainFile,
		Files:               req.Files,
		DetachedCompiler:    req.DetachedCompiler,
		DetachedTester:      req.DetachedTester,
		OriginallySharedDir: req.OriginallySharedDir,
		Parent:              req.Parent,
	}
	if existing != nil {
		if err := a.Remove(existing.ID); err != nil {
			return nil, err
		}
	}
	a.records = append(a.records, record)
	return record, nil
}

func (a *ComponentMapAdapter) Remove(id types.ComponentID) error {
	for i, record := range a.records {
		if record.ID.SameIgnoringVersion(id) {
			a.records = append(a.records[:i], a.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (a *ComponentMapAdapter) SetConfigDir(id types.ComponentID, configDir string) error {
	record := a.Find(id)
	if record == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + id.String() + " is not tracked in the workspace map")
	}
	record.ConfigDir = configDir
	return nil
}

func (a *ComponentMapAdapter) MarkExportPending(id types.ComponentID, pending bool) error {
	record := a.Find(id)
	if record == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("component " + id.String() + " is not tracked in the workspace map")
	}
	record.ExportPending = pending
	return nil
}

// TrackDirectoryChanges reports whether the record's tracked files
// changed since the map was last written: a tracked file missing from
// disk, a new file in the track dir, or a tracked file with a newer
// modification time all count.
func (a *ComponentMapAdapter) TrackDirectoryChanges(record *types.IndexRecord) (bool, error) {
	trackDir := filepath.Join(a.workspaceRoot, record.TrackDir())
	onDisk := map[string]struct{}{}
	err := filepath.Walk(trackDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(a.workspaceRoot, path)
		if err != nil {
			return err
		}
		onDisk[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan track dir for " + record.ID.String()).
			WithCause(err)
	}
	tracked := map[string]struct{}{}
	for _, f := range record.Files {
		tracked[f.RelativePath] = struct{}{}
		path := filepath.Join(a.workspaceRoot, filepath.FromSlash(f.RelativePath))
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return true, nil
		}
		if err != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to stat tracked file " + f.RelativePath).
				WithCause(err)
		}
		if info.ModTime().After(a.loadedAt) {
			return true, nil
		}
	}
	for path := range onDisk {
		if _, ok := tracked[path]; !ok {
			return true, nil
		}
	}
	return false, nil
}

func (a *ComponentMapAdapter) RemoveFiles(record *types.IndexRecord, relativePaths []string) error {
	drop := map[string]struct{}{}
	for _, path := range relativePaths {
		drop[path] = struct{}{}
	}
	kept := record.Files[:0]
	for _, f := range record.Files {
		if _, ok := drop[f.RelativePath]; !ok {
			kept = append(kept, f)
		}
	}
	record.Files = kept
	return nil
}

func (a *ComponentMapAdapter) Persist() error {
	file := componentMapFile{Version: 1}
	for _, record := range a.records {
		file.Components = append(file.Components, *record)
	}
	sort.Slice(file.Components, func(i, j int) bool {
		return file.Components[i].ID.String() < file.Components[j].ID.String()
	})
	data, err := yaml.Marshal(file)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to marshal workspace map").
			WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create workspace map directory").
			WithCause(err)
	}
	if err := os.WriteFile(a.path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write workspace map").
			WithCause(err)
	}
	a.loadedAt = time.Now()
	return nil
}
