package app

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"compkit/internal/types"
)

func TestSnapshotRequiresVersion(t *testing.T) {
	service, _, _ := newTestService(t, fakePluginLoader{})

	_, err := service.Snapshot(t.Context(), SnapshotRequest{ID: buttonID})
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	require.Contains(t, err.Error(), "version is required")
}

func TestSnapshotStoresDocumentWithLogEntry(t *testing.T) {
	service, _, store := newTestService(t, fakePluginLoader{})

	result, err := service.Snapshot(t.Context(), SnapshotRequest{
		ID:       buttonID,
		Version:  "2.0.0",
		Message:  "extract render helper",
		Username: "dev",
		Email:    "dev@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "2.0.0", result.ID.Version)

	doc, err := store.LoadComponent(t.Context(), types.ComponentID{Scope: "ui", Name: "button", Version: "2.0.0"})
	require.NoError(t, err)
	require.Equal(t, "button", doc.Name)
	require.Len(t, doc.Files, 3)
	require.NotNil(t, doc.Log)
	require.Equal(t, "extract render helper", doc.Log.Message)
	require.Equal(t, "dev", doc.Log.Username)
	require.Equal(t, "2026-08-30T12:00:00Z", doc.Log.Date)
}

func TestSnapshotAtNewVersionMarksStaged(t *testing.T) {
	service, _, _ := newTestService(t, fakePluginLoader{})

	_, err := service.Snapshot(t.Context(), SnapshotRequest{ID: buttonID, Version: "2.0.0"})
	require.NoError(t, err)

	// The record still tracks 1.0.0; the pending flag carries the
	// staged state until the record catches up.
	record := service.Workspace.Map.Find(buttonID)
	require.NotNil(t, record)
	require.True(t, record.ExportPending)

	status, err := service.Status(t.Context())
	require.NoError(t, err)
	require.Len(t, status.Entries, 1)
	require.True(t, status.Entries[0].Staged)
}

func TestSnapshotLatestWinsOnVersionlessLoad(t *testing.T) {
	service, _, store := newTestService(t, fakePluginLoader{})

	for _, version := range []string{"1.0.0", "2.0.0"} {
		_, err := service.Snapshot(t.Context(), SnapshotRequest{ID: buttonID, Version: version})
		require.NoError(t, err)
	}

	doc, err := store.LoadComponent(t.Context(), types.ComponentID{Scope: "ui", Name: "button"})
	require.NoError(t, err)
	require.Equal(t, "2.0.0", doc.Version)
}
