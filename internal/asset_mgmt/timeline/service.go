package timeline

import (
	"context"
	"database/sql"
	"errors"

	"AMS-backend/internal/asset_mgmt/assignments"
	"AMS-backend/internal/asset_mgmt/employees"
	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/platform/apperr"
)

type Builder struct {
	db      *sql.DB
	assigns *assignments.Store
	rec     *history.Recorder
}

func NewBuilder(conn *sql.DB, assigns *assignments.Store, rec *history.Recorder) *Builder {
	return &Builder{db: conn, assigns: assigns, rec: rec}
}

type Response struct {
	AssetID  int64   `json:"asset_id"`
	AssetTag string  `json:"asset_tag"`
	Entries  []Entry `json:"entries"`
}

// Build は副作用なし。書き込みと同時に呼ばれた場合は少し古い内容でもよい。
func (b *Builder) Build(ctx context.Context, assetID int64) (*Response, error) {
	var tag string
	err := b.db.QueryRowContext(ctx, `SELECT asset_tag FROM assets WHERE id = ?`, assetID).Scan(&tag)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("asset not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	rows, err := b.assigns.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hist, err := b.rec.Entries(ctx, assetID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// 表示用の従業員名をまとめて引く
	ids := []int64{}
	for _, a := range rows {
		ids = append(ids, a.EmployeeID, a.AssignedBy)
	}
	for _, h := range hist {
		if h.EmployeeID.Valid {
			ids = append(ids, h.EmployeeID.Int64)
		}
		if h.PerformedBy.Valid {
			ids = append(ids, h.PerformedBy.Int64)
		}
	}
	names, err := employees.Names(ctx, b.db, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ar := make([]AssignmentRecord, 0, len(rows))
	for _, a := range rows {
		ar = append(ar, AssignmentRecord{
			ID:              a.ID,
			ULID:            a.ULID,
			EmployeeID:      a.EmployeeID,
			EmployeeName:    names[a.EmployeeID],
			AssignedBy:      a.AssignedBy,
			AssignedByName:  names[a.AssignedBy],
			AssignedDate:    a.AssignedDate,
			ReturnDate:      a.ReturnDate,
			Status:          a.Status,
			ReturnCondition: a.ReturnCondition.String,
			Notes:           a.Notes.String,
		})
	}
	hr := make([]HistoryRecord, 0, len(hist))
	for _, h := range hist {
		r := HistoryRecord{
			ID:         h.ID,
			ULID:       h.ULID,
			ActionType: h.ActionType,
			ActionDate: h.ActionDate,
			Notes:      h.Notes.String,
			OldValue:   h.OldValue.String,
			NewValue:   h.NewValue.String,
		}
		if h.EmployeeID.Valid {
			id := h.EmployeeID.Int64
			r.EmployeeID, r.EmployeeName = &id, names[id]
		}
		if h.PerformedBy.Valid {
			id := h.PerformedBy.Int64
			r.PerformedBy, r.PerformedByName = &id, names[id]
		}
		hr = append(hr, r)
	}

	return &Response{AssetID: assetID, AssetTag: tag, Entries: Merge(ar, hr)}, nil
}
