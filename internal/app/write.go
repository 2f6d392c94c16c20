package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"compkit/internal/core"
	"compkit/internal/policies"
	"compkit/internal/types"
)

const writeWorkers = 8

// WriteComponent reconciles a component's on-disk layout and its
// workspace map record. Imported components are stripped of their
// shared directory before anything touches the disk, and gain any
// dependency detail a prior local snapshot recorded for them. Dists
// are written after map reconciliation, so their target resolves
// through the record even for components arriving without one.
func (s Service) WriteComponent(ctx context.Context, component *core.Component) (WriteResult, error) {
	if component.Origin == types.OriginImported {
		component.StripSharedDir()
		s.enrichDependenciesFromPrior(ctx, component)
	}
	rootDir := s.componentRootDir(component)
	if err := s.writeFiles(component, rootDir); err != nil {
		return WriteResult{}, err
	}
	if err := s.reconcileMapRecord(ctx, component, rootDir); err != nil {
		return WriteResult{}, err
	}
	if len(component.Dists) > 0 {
		if err := s.writeDists(component); err != nil {
			return WriteResult{}, err
		}
	}
	if err := s.Workspace.Map.Persist(); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{ID: component.ID(), WrittenFiles: len(component.Files())}, nil
}

// enrichDependenciesFromPrior merges dependency detail recorded by a
// prior local snapshot into an arriving component. The arriving data
// always wins; the prior snapshot only fills missing relative paths
// and package entries.
func (s Service) enrichDependenciesFromPrior(ctx context.Context, component *core.Component) {
	// Versionless lookup: the latest stored snapshot carries the most
	// recent locally recorded dependency detail.
	id := component.ID()
	id.Version = ""
	prior := s.loadModelSnapshot(ctx, id)
	if prior == nil {
		return
	}
	priorLists := prior.DependencyLists()
	for i, list := range component.DependencyLists() {
		list.MergeFromSnapshot(priorLists[i])
	}
}

func (s Service) componentRootDir(component *core.Component) string {
	if component.MapRecord != nil {
		return component.MapRecord.TrackDir()
	}
	base := s.Workspace.Config.ComponentsDir
	if base == "" {
		base = "components"
	}
	return filepath.ToSlash(filepath.Join(base, component.Name))
}

// writeFiles fans the component's own files out to disk. The writes
// are independent, so they run in parallel with first-error capture.
func (s Service) writeFiles(component *core.Component, rootDir string) error {
	files := component.Files()
	var wg sync.WaitGroup
	sem := make(chan struct{}, writeWorkers)
	var errMu sync.Mutex
	var firstErr error
	for _, f := range files {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			path := joinComponentPath(rootDir, f.RelativePath, component.Origin)
			if err := s.writeOne(path, f.Contents); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func (s Service) writeDists(component *core.Component) error {
	distRoot := s.distRoot(s.Workspace, component)
	for _, dist := range component.Dists {
		path := filepath.Join(distRoot, filepath.FromSlash(dist.RelativePath))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create dist directory").
				WithCause(err)
		}
		if err := os.WriteFile(path, dist.Contents, 0644); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to write dist " + dist.RelativePath).
				WithCause(err)
		}
	}
	return nil
}

func (s Service) writeOne(relativePath string, contents []byte) error {
	path := filepath.Join(s.Workspace.RootDir, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create component directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + relativePath).
			WithCause(err)
	}
	return nil
}

// reconcileMapRecord applies the origin policy verdict to the
// workspace map. Shared-dir changes always remove and re-add, because
// the value affects every recorded relative path.
func (s Service) reconcileMapRecord(ctx context.Context, component *core.Component, rootDir string) error {
	policy := policies.NewOriginPolicy()
	existing := s.Workspace.Map.Find(component.ID())
	action := policy.Reconcile(existing, component.Origin, component.OriginallySharedDir)
	log.Ctx(ctx).Debug().
		Str("component", component.ID().String()).
		Str("action", string(action)).
		Msg("reconciling workspace map record")

	switch action {
	case policies.ReconcileKeep:
		component.MapRecord = existing
		return nil
	case policies.ReconcileRemoveThenAdd:
		if err := s.Workspace.Map.Remove(existing.ID); err != nil {
			return err
		}
	case policies.ReconcileAdd, policies.ReconcileReplace:
		// Add handles both through Override.
	}

	record, err := s.Workspace.Map.Add(types.AddRecordRequest{
		ID:                  component.ID(),
		Origin:              component.Origin,
		RootDir:             rootDir,
		ConfigDir:           configDirFor(existing),
		MainFile:            joinComponentPath(rootDir, component.MainFile, component.Origin),
		Files:               indexFilesFor(component, rootDir),
		DetachedCompiler:    component.DetachedCompiler,
		DetachedTester:      component.DetachedTester,
		OriginallySharedDir: component.OriginallySharedDir,
		Override:            true,
	})
	if err != nil {
		return err
	}
	component.MapRecord = record
	return nil
}

func configDirFor(existing *types.IndexRecord) string {
	if existing == nil {
		return ""
	}
	return existing.ConfigDir
}

// joinComponentPath resolves a component-relative path into a
// workspace-relative one. Authored components track paths relative to
// the workspace root already.
func joinComponentPath(rootDir string, relativePath string, origin types.ComponentOrigin) string {
	if origin == types.OriginAuthored {
		return relativePath
	}
	return filepath.ToSlash(filepath.Join(rootDir, relativePath))
}

func indexFilesFor(component *core.Component, rootDir string) []types.IndexFile {
	files := component.Files()
	entries := make([]types.IndexFile, 0, len(files))
	for _, f := range files {
		entries = append(entries, types.IndexFile{
			RelativePath: joinComponentPath(rootDir, f.RelativePath, component.Origin),
			Name:         f.BaseName(),
			Test:         f.Test,
		})
	}
	return entries
}
