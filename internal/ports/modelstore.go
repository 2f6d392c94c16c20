package ports

import (
	"context"

	"compkit/internal/types"
)

// ModelStorePort is the persisted component store. Documents are the
// stable serialized component shape; the core reconstructs aggregates
// from them. An identity without a version resolves to the latest
// persisted version.
type ModelStorePort interface {
	LoadComponent(ctx context.Context, id types.ComponentID) (*types.ComponentDocument, error)
	PutComponent(ctx context.Context, doc types.ComponentDocument) error
	ModifySpecsResults(ctx context.Context, id types.ComponentID, results []types.SpecResult) error
	UpdateDist(ctx context.Context, id types.ComponentID, dists []types.DistDocument) error
	ListVersions(ctx context.Context, id types.ComponentID) ([]string, error)
}
