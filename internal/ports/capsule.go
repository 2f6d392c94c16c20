package ports

import "compkit/internal/types"

// Capsule is a disposable, self-contained filesystem sandbox used to
// materialize a component and its dependencies for building or testing
// without touching the live workspace. Destroy must be attempted on
// every exit path unless the caller asked to keep the capsule.
type Capsule interface {
	Path() string
	WriteFiles(rootDir string, files []types.SourceFile) error
	WriteDists(rootDir string, dists []types.Dist) error
	Destroy() error
}

// CapsuleFactory creates capsules.
type CapsuleFactory interface {
	Create(prefix string) (Capsule, error)
}
