package app

import "compkit/internal/types"

type BuildRequest struct {
	ID          types.ComponentID
	NoCache     bool
	KeepCapsule bool
}

type BuildResult struct {
	ID          types.ComponentID
	Dists       []types.Dist
	Rebuilt     bool
	CapsulePath string
}

type SpecsRequest struct {
	ID              types.ComponentID
	RejectOnFailure bool
	Verbose         bool
	Save            bool
	Isolated        bool
	KeepCapsule     bool
}

type SpecsResult struct {
	ID      types.ComponentID
	Results []types.SpecResult
	Pass    bool
}

type WriteResult struct {
	ID           types.ComponentID
	WrittenFiles int
}

type EjectConfigRequest struct {
	ID        types.ComponentID
	TargetDir string
}

type InjectConfigRequest struct {
	ID types.ComponentID
}

type StatusEntry struct {
	ID       types.ComponentID
	Origin   types.ComponentOrigin
	Modified bool
	Staged   bool
	Missing  []string
}

type StatusResult struct {
	Entries []StatusEntry
}

type ShowRequest struct {
	ID       types.ComponentID
	FromJSON []byte
}

type WatchRequest struct {
	DebounceMillis int
}
