package assets

import (
	"database/sql"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/db"
)

// Asset は assets テーブルの1行を表す
type Asset struct {
	ID             int64
	Name           string
	Tag            string
	CategoryID     sql.NullInt64
	SerialNumber   sql.NullString
	Model          sql.NullString
	Manufacturer   sql.NullString
	Description    sql.NullString
	Location       sql.NullString
	Branch         sql.NullString
	PurchaseDate   db.Date
	PurchaseCost   sql.NullFloat64
	WarrantyExpiry db.Date
	Notes          sql.NullString
	Status         lifecycle.AssetStatus
	IsActive       bool
	CreatedAt      db.Timestamp
	UpdatedAt      db.Timestamp
}

// 一覧の検索条件。各フィールドは独立に WHERE 句へ変換する。
// IncludeInactive=false のときは is_active=1 のみ。
type Filter struct {
	CategoryID      *int64
	Status          *lifecycle.AssetStatus
	Branch          *string
	IncludeInactive bool
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}
