package app

import (
	"context"

	"compkit/internal/core"
	"compkit/internal/types"
)

// Show renders a component's document, either from the workspace or
// from a raw serialized document handed in directly.
func (s Service) Show(ctx context.Context, req ShowRequest) (types.ComponentDocument, error) {
	if len(req.FromJSON) > 0 {
		component, err := core.FromJSON(req.FromJSON)
		if err != nil {
			return types.ComponentDocument{}, err
		}
		return component.ToDocument(), nil
	}
	component, err := s.LoadComponent(ctx, req.ID)
	if err != nil {
		return types.ComponentDocument{}, err
	}
	// Docs are a derived field: compute them so the rendered document
	// is complete.
	component.Docs()
	return component.ToDocument(), nil
}
