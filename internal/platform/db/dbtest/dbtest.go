// Package dbtest opens throwaway SQLite databases with the application schema.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"AMS-backend/internal/platform/db"
)

func Open(t testing.TB) *db.Handle {
	t.Helper()
	h, err := db.OpenSQLite(filepath.Join(t.TempDir(), "ams_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, db.Migrate(context.Background(), h))
	return h
}

func SeedEmployee(t testing.TB, h *db.Handle, name string, active bool) int64 {
	t.Helper()
	res, err := h.Exec(`INSERT INTO employees (name, is_active) VALUES (?, ?)`, name, active)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func SeedCategory(t testing.TB, h *db.Handle, name, code string, active bool) int64 {
	t.Helper()
	res, err := h.Exec(`INSERT INTO categories (name, code, is_active) VALUES (?, ?, ?)`, name, code, active)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// Count runs a COUNT(*) style query and returns the single integer result.
func Count(t testing.TB, h *db.Handle, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, h.QueryRow(query, args...).Scan(&n))
	return n
}

// SeedAsset inserts an asset row directly, bypassing the registry.
func SeedAsset(t testing.TB, h *db.Handle, tag, status string) int64 {
	t.Helper()
	now := db.NewTimestamp(time.Now())
	res, err := h.Exec(`INSERT INTO assets (name, asset_tag, status, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`, "seed "+tag, tag, status, now, now)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// AssetStatus reads the stored status column.
func AssetStatus(t testing.TB, h *db.Handle, assetID int64) string {
	t.Helper()
	var s string
	require.NoError(t, h.QueryRow(`SELECT status FROM assets WHERE id = ?`, assetID).Scan(&s))
	return s
}

// OpenAssignments counts assignment rows still in the assigned state for the asset.
func OpenAssignments(t testing.TB, h *db.Handle, assetID int64) int {
	t.Helper()
	return Count(t, h, `SELECT COUNT(*) FROM assignments WHERE asset_id = ? AND status = 'assigned'`, assetID)
}

// RequireInvariant checks status == assigned iff exactly one open assignment exists.
func RequireInvariant(t testing.TB, h *db.Handle, assetID int64) {
	t.Helper()
	open := OpenAssignments(t, h, assetID)
	status := AssetStatus(t, h, assetID)
	require.LessOrEqual(t, open, 1, "more than one open assignment")
	require.Equal(t, status == "assigned", open == 1, "status=%s open=%d", status, open)
}
