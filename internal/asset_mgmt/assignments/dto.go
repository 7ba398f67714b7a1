package assignments

import (
	"time"

	"AMS-backend/internal/platform/db"
)

// ===== Requests =====

// 必須チェックは service 側で項目別に行うので binding:"required" は付けない
type CreateAssignmentRequest struct {
	AssetID      *int64  `json:"asset_id"`
	EmployeeID   *int64  `json:"employee_id"`
	AssignedBy   *int64  `json:"assigned_by,omitempty"`   // 未指定ならトークンの従業員
	AssignedDate *string `json:"assigned_date,omitempty"` // YYYY-MM-DD, 既定は当日
	Notes        *string `json:"notes,omitempty"`
}

type ReturnAssetRequest struct {
	EmployeeID  *int64  `json:"employee_id"`
	AssetID     *int64  `json:"asset_id"`
	ReturnDate  *string `json:"return_date"`
	Condition   *string `json:"condition"`
	Notes       *string `json:"notes,omitempty"`
	ProcessedBy *int64  `json:"processed_by,omitempty"`
}

type UpdateAssignmentRequest struct {
	Status          *string `json:"status,omitempty"`
	AssignedDate    *string `json:"assigned_date,omitempty"`
	ReturnDate      *string `json:"return_date,omitempty"`
	ReturnCondition *string `json:"return_condition,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	PerformedBy     *int64  `json:"performed_by,omitempty"`
}

// AssignParams は tx 内で使う検証済みの入力
type AssignParams struct {
	AssetID      int64
	EmployeeID   int64
	AssignedBy   int64
	AssignedDate db.Date
	Notes        string
}

// ===== Responses =====

type AssignmentResponse struct {
	ID              int64     `json:"id"`
	AssignmentULID  string    `json:"assignment_ulid"`
	AssetID         int64     `json:"asset_id"`
	EmployeeID      int64     `json:"employee_id"`
	AssignedBy      int64     `json:"assigned_by"`
	AssignedDate    string    `json:"assigned_date"`
	ReturnDate      *string   `json:"return_date,omitempty"`
	Status          string    `json:"status"`
	ReturnCondition *string   `json:"return_condition,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Total      int64                `json:"total"`
	NextOffset int                  `json:"next_offset"`
}

func ToResponse(a *Assignment) AssignmentResponse {
	r := AssignmentResponse{
		ID:             a.ID,
		AssignmentULID: a.ULID,
		AssetID:        a.AssetID,
		EmployeeID:     a.EmployeeID,
		AssignedBy:     a.AssignedBy,
		AssignedDate:   a.AssignedDate.String(),
		ReturnDate:     a.ReturnDate.Ptr(),
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt.Time,
		UpdatedAt:      a.UpdatedAt.Time,
	}
	if a.ReturnCondition.Valid {
		v := a.ReturnCondition.String
		r.ReturnCondition = &v
	}
	if a.Notes.Valid {
		v := a.Notes.String
		r.Notes = &v
	}
	return r
}

// 履歴の old/new スナップショット用
type snapshot struct {
	Status          string  `json:"status"`
	AssignedDate    string  `json:"assigned_date"`
	ReturnDate      *string `json:"return_date,omitempty"`
	ReturnCondition *string `json:"return_condition,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

func snapshotOf(a *Assignment) snapshot {
	r := ToResponse(a)
	return snapshot{
		Status:          r.Status,
		AssignedDate:    r.AssignedDate,
		ReturnDate:      r.ReturnDate,
		ReturnCondition: r.ReturnCondition,
		Notes:           r.Notes,
	}
}
