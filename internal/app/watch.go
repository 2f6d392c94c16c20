package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"compkit/internal/types"
)

const defaultWatchDebounce = 250 * time.Millisecond

// Watch rebuilds components whose tracked files change, until the
// context is canceled. Events are debounced so one save burst
// triggers one rebuild per component.
func (s Service) Watch(ctx context.Context, req WatchRequest) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create filesystem watcher").
			WithCause(err)
	}
	defer watcher.Close()

	if err := s.watchWorkspaceDirs(watcher); err != nil {
		return err
	}

	debounce := defaultWatchDebounce
	if req.DebounceMillis > 0 {
		debounce = time.Duration(req.DebounceMillis) * time.Millisecond
	}

	pending := map[string]types.ComponentID{}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	log.Ctx(ctx).Info().Str("root", s.Workspace.RootDir).Msg("watching workspace")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, found := s.componentForPath(event.Name)
			if !found {
				continue
			}
			pending[id.String()] = id
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Ctx(ctx).Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			for _, id := range pending {
				if _, err := s.Build(ctx, BuildRequest{ID: id}); err != nil {
					log.Ctx(ctx).Error().
						Str("component", id.String()).
						Err(err).
						Msg("rebuild failed")
				}
			}
			pending = map[string]types.ComponentID{}
		}
	}
}

// watchWorkspaceDirs registers every directory under the workspace
// root, skipping the workspace's own state and output directories.
func (s Service) watchWorkspaceDirs(watcher *fsnotify.Watcher) error {
	err := filepath.Walk(s.Workspace.RootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if name == ".compkit" || name == ".git" || name == "node_modules" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to register workspace directories").
			WithCause(err)
	}
	return nil
}

// componentForPath maps a changed file to the component whose track
// dir contains it.
func (s Service) componentForPath(path string) (types.ComponentID, bool) {
	rel, err := filepath.Rel(s.Workspace.RootDir, path)
	if err != nil {
		return types.ComponentID{}, false
	}
	rel = filepath.ToSlash(rel)
	for _, record := range s.trackedRecords() {
		trackDir := record.TrackDir()
		if rel == trackDir || strings.HasPrefix(rel, trackDir+"/") {
			return record.ID, true
		}
	}
	return types.ComponentID{}, false
}
