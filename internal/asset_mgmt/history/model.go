package history

import (
	"database/sql"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/db"
)

// Entry は asset_history テーブルの1行を表す（追記のみ）
type Entry struct {
	ID          int64
	ULID        string
	AssetID     int64
	EmployeeID  sql.NullInt64
	PerformedBy sql.NullInt64
	ActionType  lifecycle.ActionType
	ActionDate  db.Timestamp
	Notes       sql.NullString
	OldValue    sql.NullString
	NewValue    sql.NullString
}
