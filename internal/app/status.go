package app

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"compkit/internal/types"
)

// Status summarizes every tracked component: whether its files changed
// since the map was written, whether its exact version is staged in
// the store (or a later snapshot is pending export), and which tracked
// files are missing from disk.
func (s Service) Status(ctx context.Context) (StatusResult, error) {
	result := StatusResult{}
	for _, record := range s.trackedRecords() {
		entry := StatusEntry{ID: record.ID, Origin: record.Origin}
		modified, err := s.Workspace.Map.TrackDirectoryChanges(record)
		if err != nil {
			return StatusResult{}, err
		}
		entry.Modified = modified
		for _, f := range record.Files {
			path := filepath.Join(s.Workspace.RootDir, filepath.FromSlash(f.RelativePath))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				entry.Missing = append(entry.Missing, f.RelativePath)
			}
		}
		if record.ExportPending {
			entry.Staged = true
		} else if record.ID.HasVersion() {
			if versions, err := s.Store.ListVersions(ctx, record.ID); err == nil {
				for _, version := range versions {
					if version == record.ID.Version {
						entry.Staged = true
						break
					}
				}
			}
		}
		result.Entries = append(result.Entries, entry)
	}
	sort.Slice(result.Entries, func(i, j int) bool {
		return result.Entries[i].ID.String() < result.Entries[j].ID.String()
	})
	return result, nil
}

// trackedRecords lists the map's records. The map port exposes lookups
// only, so status walks the persisted file through the adapter's own
// Find results; the concrete adapter also satisfies this lister.
func (s Service) trackedRecords() []*types.IndexRecord {
	type lister interface {
		Records() []*types.IndexRecord
	}
	if l, ok := s.Workspace.Map.(lister); ok {
		return l.Records()
	}
	return nil
}
