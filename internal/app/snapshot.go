package app

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"compkit/internal/types"
)

type SnapshotRequest struct {
	ID       types.ComponentID
	Version  string
	Message  string
	Username string
	Email    string
}

type SnapshotResult struct {
	ID types.ComponentID
}

// Snapshot persists a component's current state into the model store
// under an explicit version, recording a creation log entry. The
// component is built first so the stored document carries its dists.
func (s Service) Snapshot(ctx context.Context, req SnapshotRequest) (SnapshotResult, error) {
	if req.Version == "" {
		return SnapshotResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("a version is required to snapshot a component")
	}
	component, err := s.LoadComponent(ctx, req.ID)
	if err != nil {
		return SnapshotResult{}, err
	}
	if _, err := s.buildComponent(ctx, component, buildOptions{}); err != nil {
		return SnapshotResult{}, err
	}
	component.Version = req.Version
	component.Log = &types.LogEntry{
		Message:  req.Message,
		Username: req.Username,
		Email:    req.Email,
		Date:     s.Clock().UTC().Format(time.RFC3339),
	}
	if err := s.Store.PutComponent(ctx, component.ToDocument()); err != nil {
		return SnapshotResult{}, err
	}
	if component.MapRecord != nil && component.MapRecord.ID.Version != req.Version {
		// The record still tracks the old version; flag it so status
		// reports the new snapshot as staged.
		if err := s.Workspace.Map.MarkExportPending(component.MapRecord.ID, true); err != nil {
			return SnapshotResult{}, err
		}
		if err := s.Workspace.Map.Persist(); err != nil {
			return SnapshotResult{}, err
		}
	}
	log.Ctx(ctx).Info().
		Str("component", component.ID().String()).
		Msg("component snapshot stored")
	return SnapshotResult{ID: component.ID()}, nil
}
