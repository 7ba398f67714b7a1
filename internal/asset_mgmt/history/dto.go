package history

import (
	"time"

	"AMS-backend/internal/asset_mgmt/lifecycle"
)

// Input は Record の引数。EmployeeID/PerformedBy は任意。
type Input struct {
	AssetID     int64
	ActionType  lifecycle.ActionType
	EmployeeID  *int64
	PerformedBy *int64
	Notes       string
	ActionDate  time.Time // ゼロ値なら Clock.Now()
	OldValue    any       // JSON にして old_value へ
	NewValue    any
}

type EntryResponse struct {
	ID          int64     `json:"id"`
	HistoryULID string    `json:"history_ulid"`
	AssetID     int64     `json:"asset_id"`
	EmployeeID  *int64    `json:"employee_id,omitempty"`
	PerformedBy *int64    `json:"performed_by,omitempty"`
	ActionType  string    `json:"action_type"`
	ActionDate  time.Time `json:"action_date"`
	Notes       *string   `json:"notes,omitempty"`
	OldValue    *string   `json:"old_value,omitempty"`
	NewValue    *string   `json:"new_value,omitempty"`
}

func toResponse(e Entry) EntryResponse {
	r := EntryResponse{
		ID:          e.ID,
		HistoryULID: e.ULID,
		AssetID:     e.AssetID,
		ActionType:  string(e.ActionType),
		ActionDate:  e.ActionDate.Time,
	}
	if e.EmployeeID.Valid {
		r.EmployeeID = &e.EmployeeID.Int64
	}
	if e.PerformedBy.Valid {
		r.PerformedBy = &e.PerformedBy.Int64
	}
	if e.Notes.Valid {
		r.Notes = &e.Notes.String
	}
	if e.OldValue.Valid {
		r.OldValue = &e.OldValue.String
	}
	if e.NewValue.Valid {
		r.NewValue = &e.NewValue.String
	}
	return r
}
