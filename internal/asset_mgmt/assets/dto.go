package assets

import (
	"database/sql"
	"strings"
	"time"

	"AMS-backend/internal/asset_mgmt/assignments"
)

// ===== Requests =====

type CreateAssetRequest struct {
	Name           string   `json:"name"`
	AssetTag       *string  `json:"asset_tag,omitempty"` // 空なら ASTnnnn を採番
	CategoryID     *int64   `json:"category_id,omitempty"`
	SerialNumber   *string  `json:"serial_number,omitempty"`
	Model          *string  `json:"model,omitempty"`
	Manufacturer   *string  `json:"manufacturer,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Branch         *string  `json:"branch,omitempty"`
	PurchaseDate   *string  `json:"purchase_date,omitempty"`
	PurchaseCost   *float64 `json:"purchase_cost,omitempty"`
	WarrantyExpiry *string  `json:"warranty_expiry,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Status         *string  `json:"status,omitempty"` // available | maintenance | assigned

	// status=assigned の初期貸出
	EmployeeID   *int64  `json:"employee_id,omitempty"`
	AssignedBy   *int64  `json:"assigned_by,omitempty"`
	AssignedDate *string `json:"assigned_date,omitempty"`

	PerformedBy *int64 `json:"-"`
}

// asset_tag は変更不可。送られてきたら Validation で返す。
type UpdateAssetRequest struct {
	Name           *string  `json:"name,omitempty"`
	AssetTag       *string  `json:"asset_tag,omitempty"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	SerialNumber   *string  `json:"serial_number,omitempty"`
	Model          *string  `json:"model,omitempty"`
	Manufacturer   *string  `json:"manufacturer,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Branch         *string  `json:"branch,omitempty"`
	PurchaseDate   *string  `json:"purchase_date,omitempty"`
	PurchaseCost   *float64 `json:"purchase_cost,omitempty"`
	WarrantyExpiry *string  `json:"warranty_expiry,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Status         *string  `json:"status,omitempty"` // available | maintenance | retired
	IsActive       *bool    `json:"is_active,omitempty"`

	PerformedBy *int64 `json:"-"`
}

// ===== Responses =====

type AssetResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	AssetTag       string    `json:"asset_tag"`
	CategoryID     *int64    `json:"category_id,omitempty"`
	SerialNumber   *string   `json:"serial_number,omitempty"`
	Model          *string   `json:"model,omitempty"`
	Manufacturer   *string   `json:"manufacturer,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Location       *string   `json:"location,omitempty"`
	Branch         *string   `json:"branch,omitempty"`
	PurchaseDate   *string   `json:"purchase_date,omitempty"`
	PurchaseCost   *float64  `json:"purchase_cost,omitempty"`
	WarrantyExpiry *string   `json:"warranty_expiry,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	Status         string    `json:"status"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// 取得時のみ。貸出中レコードから導出する
	CurrentAssignment *assignments.AssignmentResponse `json:"current_assignment,omitempty"`
}

type ListResponse struct {
	Items      []AssetResponse `json:"items"`
	Total      int64           `json:"total"`
	NextOffset int             `json:"next_offset"`
}

func ToResponse(a *Asset) AssetResponse {
	r := AssetResponse{
		ID:             a.ID,
		Name:           a.Name,
		AssetTag:       a.Tag,
		SerialNumber:   strPtr(a.SerialNumber),
		Model:          strPtr(a.Model),
		Manufacturer:   strPtr(a.Manufacturer),
		Description:    strPtr(a.Description),
		Location:       strPtr(a.Location),
		Branch:         strPtr(a.Branch),
		PurchaseDate:   a.PurchaseDate.Ptr(),
		WarrantyExpiry: a.WarrantyExpiry.Ptr(),
		Notes:          strPtr(a.Notes),
		Status:         string(a.Status),
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt.Time,
		UpdatedAt:      a.UpdatedAt.Time,
	}
	if a.CategoryID.Valid {
		v := a.CategoryID.Int64
		r.CategoryID = &v
	}
	if a.PurchaseCost.Valid {
		v := a.PurchaseCost.Float64
		r.PurchaseCost = &v
	}
	return r
}

// 履歴の old/new スナップショット（時刻は含めない）
type snapshot struct {
	Name           string   `json:"name"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	SerialNumber   *string  `json:"serial_number,omitempty"`
	Model          *string  `json:"model,omitempty"`
	Manufacturer   *string  `json:"manufacturer,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Branch         *string  `json:"branch,omitempty"`
	PurchaseDate   *string  `json:"purchase_date,omitempty"`
	PurchaseCost   *float64 `json:"purchase_cost,omitempty"`
	WarrantyExpiry *string  `json:"warranty_expiry,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Status         string   `json:"status"`
	IsActive       bool     `json:"is_active"`
}

func snapshotOf(a *Asset) snapshot {
	r := ToResponse(a)
	return snapshot{
		Name:           r.Name,
		CategoryID:     r.CategoryID,
		SerialNumber:   r.SerialNumber,
		Model:          r.Model,
		Manufacturer:   r.Manufacturer,
		Description:    r.Description,
		Location:       r.Location,
		Branch:         r.Branch,
		PurchaseDate:   r.PurchaseDate,
		PurchaseCost:   r.PurchaseCost,
		WarrantyExpiry: r.WarrantyExpiry,
		Notes:          r.Notes,
		Status:         r.Status,
		IsActive:       r.IsActive,
	}
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	s := strings.TrimSpace(*p)
	return sql.NullString{String: s, Valid: s != ""}
}
