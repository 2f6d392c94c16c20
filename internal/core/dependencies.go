package core

import (
	"strings"

	"compkit/internal/types"
)

// DependencyRecord is one direct component dependency: the target
// identity plus the relative source paths that reference it.
type DependencyRecord struct {
	ID            types.ComponentID
	RelativePaths []types.DependencyPath
}

// Clone returns a deep copy of the record.
func (r DependencyRecord) Clone() DependencyRecord {
	paths := make([]types.DependencyPath, len(r.RelativePaths))
	copy(paths, r.RelativePaths)
	return DependencyRecord{ID: r.ID, RelativePaths: paths}
}

// PackageDependencies holds the non-component package dependencies of
// one class, in the three package-manager variants.
type PackageDependencies struct {
	Prod map[string]string
	Dev  map[string]string
	Peer map[string]string
}

func (p PackageDependencies) clone() PackageDependencies {
	return PackageDependencies{
		Prod: cloneStringMap(p.Prod),
		Dev:  cloneStringMap(p.Dev),
		Peer: cloneStringMap(p.Peer),
	}
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DependencyList is one of the four dependency classes of a component.
// Records hold the direct dependencies in insertion order; Flattened is
// the transitively resolved, deduplicated closure of the class and is
// always a superset of the direct records' identities.
type DependencyList struct {
	Class     types.DependencyClass
	Records   []DependencyRecord
	Flattened []types.ComponentID
	Packages  PackageDependencies
}

// NewDependencyList creates an empty list for the class.
func NewDependencyList(class types.DependencyClass) *DependencyList {
	return &DependencyList{Class: class}
}

// Clone returns a deep copy of the whole list.
func (l *DependencyList) Clone() *DependencyList {
	if l == nil {
		return nil
	}
	out := &DependencyList{Class: l.Class, Packages: l.Packages.clone()}
	out.Records = make([]DependencyRecord, 0, len(l.Records))
	for _, record := range l.Records {
		out.Records = append(out.Records, record.Clone())
	}
	out.Flattened = make([]types.ComponentID, len(l.Flattened))
	copy(out.Flattened, l.Flattened)
	return out
}

// Get returns the record whose identity string equals id, or nil.
func (l *DependencyList) Get(id string) *DependencyRecord {
	for i := range l.Records {
		if l.Records[i].ID.String() == id {
			return &l.Records[i]
		}
	}
	return nil
}

// Add appends a record, replacing an existing record with the same
// identity instead of duplicating it.
func (l *DependencyList) Add(record DependencyRecord) {
	for i := range l.Records {
		if l.Records[i].ID.Equal(record.ID) {
			l.Records[i] = record
			return
		}
	}
	l.Records = append(l.Records, record)
}

// MergeFromSnapshot enriches this list from a prior model snapshot:
// records matching by identity (ignoring version) gain the snapshot's
// relative paths when they have none of their own, and package maps
// gain snapshot entries for keys not present locally. Existing local
// data always wins.
func (l *DependencyList) MergeFromSnapshot(snapshot *DependencyList) {
	if snapshot == nil {
		return
	}
	for i := range l.Records {
		if len(l.Records[i].RelativePaths) > 0 {
			continue
		}
		for _, prior := range snapshot.Records {
			if prior.ID.SameIgnoringVersion(l.Records[i].ID) {
				l.Records[i].RelativePaths = prior.Clone().RelativePaths
				break
			}
		}
	}
	l.Packages.Prod = mergeMissing(l.Packages.Prod, snapshot.Packages.Prod)
	l.Packages.Dev = mergeMissing(l.Packages.Dev, snapshot.Packages.Dev)
	l.Packages.Peer = mergeMissing(l.Packages.Peer, snapshot.Packages.Peer)
}

func mergeMissing(local, prior map[string]string) map[string]string {
	if len(prior) == 0 {
		return local
	}
	if local == nil {
		local = map[string]string{}
	}
	for k, v := range prior {
		if _, ok := local[k]; !ok {
			local[k] = v
		}
	}
	return local
}

// StripSharedPrefix removes the shared directory segment from every
// recorded source path and custom destination in this class.
func (l *DependencyList) StripSharedPrefix(sharedDir string) {
	if sharedDir == "" {
		return
	}
	for i := range l.Records {
		for j := range l.Records[i].RelativePaths {
			p := &l.Records[i].RelativePaths[j]
			p.SourceRelativePath = stripPathPrefix(p.SourceRelativePath, sharedDir)
			if p.DestinationPath != "" {
				p.DestinationPath = stripPathPrefix(p.DestinationPath, sharedDir)
			}
		}
	}
}

// SourcePaths returns every recorded relative source path in the class.
func (l *DependencyList) SourcePaths() []string {
	var paths []string
	for _, record := range l.Records {
		for _, p := range record.RelativePaths {
			paths = append(paths, p.SourceRelativePath)
		}
	}
	return paths
}

func stripPathPrefix(path string, prefix string) string {
	if path == prefix {
		return ""
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix)+1:]
	}
	return path
}
