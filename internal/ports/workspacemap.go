package ports

import "compkit/internal/types"

// WorkspaceMapPort is the persistent workspace index: the record of
// which components exist on disk, where, and with which files. The map
// is mutated synchronously in memory; persisting it belongs to the map
// owner, not to callers.
type WorkspaceMapPort interface {
	// Find returns the record for the identity, matching by scope and
	// name (and version when the identity carries one), or nil.
	Find(id types.ComponentID) *types.IndexRecord

	// HasExactVersion reports whether a record exists for this exact
	// identity including its version.
	HasExactVersion(id types.ComponentID) bool

	// Add creates or replaces a component record.
	Add(req types.AddRecordRequest) (*types.IndexRecord, error)

	// Remove deletes the record for the identity. Removing an absent
	// record is not an error.
	Remove(id types.ComponentID) error

	// SetConfigDir records where a component's detached configuration
	// lives.
	SetConfigDir(id types.ComponentID, configDir string) error

	// MarkExportPending flags a component as snapshotted into the local
	// store under a version its record does not track yet.
	MarkExportPending(id types.ComponentID, pending bool) error

	// TrackDirectoryChanges re-scans a record's track dir and reports
	// whether any tracked file changed since the record was last
	// written.
	TrackDirectoryChanges(record *types.IndexRecord) (bool, error)

	// RemoveFiles prunes tracked file entries from a record.
	RemoveFiles(record *types.IndexRecord, relativePaths []string) error

	// Persist writes the map to stable storage.
	Persist() error
}
