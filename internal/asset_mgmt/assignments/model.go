package assignments

import (
	"database/sql"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/db"
)

// Assignment は assignments テーブルの1行を表す
type Assignment struct {
	ID              int64
	ULID            string
	AssetID         int64
	EmployeeID      int64
	AssignedBy      int64
	AssignedDate    db.Date
	ReturnDate      db.Date
	Status          lifecycle.AssignmentStatus
	ReturnCondition sql.NullString
	Notes           sql.NullString
	CreatedAt       db.Timestamp
	UpdatedAt       db.Timestamp
}

// AssetState はロック時に読む資産側の最小情報
type AssetState struct {
	ID     int64
	Tag    string
	Status lifecycle.AssetStatus
}

// 一覧の検索条件。nil のフィールドは条件に入れない。
type Filter struct {
	AssetID    *int64
	EmployeeID *int64
	Status     *lifecycle.AssignmentStatus
	OpenOnly   bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
