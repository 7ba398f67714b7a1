package assignments

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"AMS-backend/internal/asset_mgmt/employees"
	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
	"AMS-backend/internal/platform/logger"
	"AMS-backend/internal/platform/metrics"
)

const conflictOpenAssignment = "asset already has an open assignment"

// Manager は貸出レコードと資産ステータスを同じ tx で動かす。
// 「資産が assigned ⇔ 貸出中レコードがちょうど1件」を全操作で保つ。
type Manager struct {
	db    *sql.DB
	store *Store
	rec   *history.Recorder
	clock history.Clock
	id    history.IDGen
}

func NewManager(h *db.Handle, rec *history.Recorder) *Manager {
	return &Manager{
		db:    h.DB,
		store: NewStore(h),
		rec:   rec,
		clock: rec.Clock(),
		id:    rec.IDs(),
	}
}

func (m *Manager) Store() *Store { return m.store }

// ===== 貸出登録 =====

func (m *Manager) CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (res *AssignmentResponse, err error) {
	defer metrics.Observe("create_assignment", time.Now(), &err)

	f := apperr.FieldErrors{}
	requireID(f, "asset_id", req.AssetID)
	requireID(f, "employee_id", req.EmployeeID)
	requireID(f, "assigned_by", req.AssignedBy)
	assigned := m.today()
	if req.AssignedDate != nil && strings.TrimSpace(*req.AssignedDate) != "" {
		d, perr := db.ParseDate(*req.AssignedDate)
		if perr != nil {
			f.Add("assigned_date", "must be YYYY-MM-DD")
		}
		assigned = d
	}
	if err := f.Err(); err != nil {
		return nil, err
	}

	p := AssignParams{
		AssetID:      *req.AssetID,
		EmployeeID:   *req.EmployeeID,
		AssignedBy:   *req.AssignedBy,
		AssignedDate: assigned,
		Notes:        deref(req.Notes),
	}

	var out *Assignment
	err = db.RunInTx(ctx, m.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := m.AssignTx(ctx, tx, p)
		out = a
		return err
	})
	if err != nil {
		return nil, apperr.FromStorage(err, conflictOpenAssignment)
	}

	logger.L().Info("asset assigned",
		zap.Int64("asset_id", out.AssetID),
		zap.Int64("employee_id", out.EmployeeID),
		zap.String("assignment_ulid", out.ULID),
	)
	r := ToResponse(out)
	return &r, nil
}

// AssignTx は呼び出し側の tx 内で貸出を作る。資産登録時の初期貸出もここを通る。
func (m *Manager) AssignTx(ctx context.Context, tx db.DBTX, p AssignParams) (*Assignment, error) {
	// 1. NotFound 系を先に確定させる
	asset, err := m.store.LockAssetTx(ctx, tx, p.AssetID)
	if err != nil {
		return nil, err
	}
	emp, err := employees.Get(ctx, tx, p.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, apperr.NotFound("employee not found")
	}
	if p.AssignedBy != p.EmployeeID {
		by, err := employees.Get(ctx, tx, p.AssignedBy)
		if err != nil {
			return nil, err
		}
		if by == nil {
			return nil, apperr.NotFound("assigned_by employee not found")
		}
	}

	// 2. 状態チェック
	if asset.Status != lifecycle.AssetAvailable {
		return nil, apperr.Conflict(fmt.Sprintf("asset %s is not available (status: %s)", asset.Tag, asset.Status))
	}
	if !emp.IsActive {
		return nil, apperr.Conflict("employee is not active")
	}
	if !p.AssignedDate.Valid {
		p.AssignedDate = m.today()
	}

	// 3. 貸出行 INSERT（部分ユニーク制約がここで最終防衛線になる）
	aid, err := m.id.New()
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	a := &Assignment{
		ULID:         aid,
		AssetID:      p.AssetID,
		EmployeeID:   p.EmployeeID,
		AssignedBy:   p.AssignedBy,
		AssignedDate: p.AssignedDate,
		Status:       lifecycle.AssignmentAssigned,
		Notes:        nullString(p.Notes),
		CreatedAt:    db.NewTimestamp(now),
		UpdatedAt:    db.NewTimestamp(now),
	}
	if err := m.store.InsertTx(ctx, tx, a); err != nil {
		return nil, err
	}

	// 4. 資産ステータス
	if err := m.store.SetAssetStatusTx(ctx, tx, p.AssetID, lifecycle.AssetAssigned, now); err != nil {
		return nil, err
	}

	// 5. 履歴
	note := "assigned to " + emp.Name
	if p.Notes != "" {
		note += ": " + p.Notes
	}
	if _, err := m.rec.Record(ctx, tx, history.Input{
		AssetID:     p.AssetID,
		ActionType:  lifecycle.ActionAssigned,
		EmployeeID:  &p.EmployeeID,
		PerformedBy: &p.AssignedBy,
		Notes:       note,
		ActionDate:  now,
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// ===== 返却 =====

func (m *Manager) ReturnAsset(ctx context.Context, req ReturnAssetRequest) (res *AssignmentResponse, err error) {
	defer metrics.Observe("return_asset", time.Now(), &err)

	f := apperr.FieldErrors{}
	requireID(f, "employee_id", req.EmployeeID)
	requireID(f, "asset_id", req.AssetID)
	var returnDate db.Date
	if req.ReturnDate == nil || strings.TrimSpace(*req.ReturnDate) == "" {
		f.Add("return_date", "is required")
	} else if returnDate, err = db.ParseDate(*req.ReturnDate); err != nil {
		f.Add("return_date", "must be YYYY-MM-DD")
	}
	var cond lifecycle.ReturnCondition
	if req.Condition == nil || strings.TrimSpace(*req.Condition) == "" {
		f.Add("condition", "is required")
	} else if cond, err = lifecycle.ParseReturnCondition(*req.Condition); err != nil {
		f.Add("condition", "must be one of good poor damaged lost stolen")
	}
	if err := f.Err(); err != nil {
		return nil, err
	}
	employeeID, assetID := *req.EmployeeID, *req.AssetID
	notes := deref(req.Notes)

	var out *Assignment
	err = db.RunInTx(ctx, m.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := m.store.LockAssetTx(ctx, tx, assetID); err != nil {
			return err
		}
		open, err := m.store.OpenByAssetTx(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if open == nil || open.EmployeeID != employeeID {
			return apperr.NotFound("no open assignment for this asset and employee")
		}
		if returnDate.Time.Before(open.AssignedDate.Time) {
			return apperr.FieldErrors{"return_date": "must not be before assigned_date"}.Err()
		}

		now := m.clock.Now()
		open.Status = lifecycle.AssignmentReturned
		open.ReturnDate = returnDate
		open.ReturnCondition = nullString(string(cond))
		if notes != "" {
			open.Notes = nullString(notes)
		}
		open.UpdatedAt = db.NewTimestamp(now)
		if err := m.store.UpdateTx(ctx, tx, open); err != nil {
			return err
		}
		if err := m.store.SetAssetStatusTx(ctx, tx, assetID, lifecycle.AssetAvailable, now); err != nil {
			return err
		}

		note := fmt.Sprintf("returned in %s condition", cond)
		if notes != "" {
			note += ": " + notes
		}
		if _, err := m.rec.Record(ctx, tx, history.Input{
			AssetID:     assetID,
			ActionType:  lifecycle.ActionReturned,
			EmployeeID:  &employeeID,
			PerformedBy: req.ProcessedBy,
			Notes:       note,
			ActionDate:  now,
		}); err != nil {
			return err
		}
		out = open
		return nil
	})
	if err != nil {
		return nil, apperr.FromStorage(err, conflictOpenAssignment)
	}

	logger.L().Info("asset returned",
		zap.Int64("asset_id", assetID),
		zap.Int64("employee_id", employeeID),
		zap.String("condition", string(cond)),
	)
	r := ToResponse(out)
	return &r, nil
}

// ===== 更新 =====

func (m *Manager) UpdateAssignment(ctx context.Context, id int64, req UpdateAssignmentRequest) (res *AssignmentResponse, err error) {
	defer metrics.Observe("update_assignment", time.Now(), &err)

	// 1. 入力をすべて先に検証
	f := apperr.FieldErrors{}
	var newStatus *lifecycle.AssignmentStatus
	if req.Status != nil {
		if st, perr := lifecycle.ParseAssignmentStatus(*req.Status); perr != nil {
			f.Add("status", "must be one of assigned returned lost stolen damaged")
		} else {
			newStatus = &st
		}
	}
	assignedDate := parseOptionalDate(f, "assigned_date", req.AssignedDate)
	returnDate := parseOptionalDate(f, "return_date", req.ReturnDate)
	var cond *lifecycle.ReturnCondition
	if req.ReturnCondition != nil {
		if c, perr := lifecycle.ParseReturnCondition(*req.ReturnCondition); perr != nil {
			f.Add("return_condition", "must be one of good poor damaged lost stolen")
		} else {
			cond = &c
		}
	}
	if err := f.Err(); err != nil {
		return nil, err
	}

	var out *Assignment
	err = db.RunInTx(ctx, m.db, nil, func(ctx context.Context, tx db.DBTX) error {
		// 2. 資産 → 貸出の順でロック
		assetID, err := m.store.AssetIDOfTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := m.store.LockAssetTx(ctx, tx, assetID); err != nil {
			return err
		}
		a, err := m.store.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		before := snapshotOf(a)
		wasOpen := a.Status.Open()

		// 3. 状態遷移の可否
		if newStatus != nil {
			if !wasOpen && newStatus.Open() {
				return apperr.Conflict("a closed assignment cannot be reopened")
			}
			a.Status = *newStatus
		}
		closing := wasOpen && !a.Status.Open()

		// 4. 項目の反映
		if assignedDate != nil {
			a.AssignedDate = *assignedDate
		}
		if req.Notes != nil {
			a.Notes = nullString(*req.Notes)
		}
		if returnDate != nil || cond != nil {
			if a.Status.Open() {
				return apperr.FieldErrors{"status": "return fields require a closed status"}.Err()
			}
			if returnDate != nil {
				a.ReturnDate = *returnDate
			}
			if cond != nil {
				a.ReturnCondition = nullString(string(*cond))
			}
		}
		if closing {
			if !a.ReturnDate.Valid {
				a.ReturnDate = m.today()
			}
			if !a.ReturnCondition.Valid {
				a.ReturnCondition = nullString(string(defaultCondition(a.Status)))
			}
		}
		if a.ReturnDate.Valid && a.ReturnDate.Time.Before(a.AssignedDate.Time) {
			return apperr.FieldErrors{"return_date": "must not be before assigned_date"}.Err()
		}

		now := m.clock.Now()
		a.UpdatedAt = db.NewTimestamp(now)
		if err := m.store.UpdateTx(ctx, tx, a); err != nil {
			return err
		}

		// 5. 貸出を閉じたら資産も解放する（閉じ方で遷移先が変わる）
		in := history.Input{
			AssetID:     a.AssetID,
			ActionType:  lifecycle.ActionUpdated,
			EmployeeID:  &a.EmployeeID,
			PerformedBy: req.PerformedBy,
			Notes:       "assignment " + a.ULID + " updated",
			ActionDate:  now,
			OldValue:    before,
			NewValue:    snapshotOf(a),
		}
		if closing {
			assetStatus, action := a.Status.ReleasedAssetStatus()
			if err := m.store.SetAssetStatusTx(ctx, tx, a.AssetID, assetStatus, now); err != nil {
				return err
			}
			in.ActionType = action
			in.Notes = fmt.Sprintf("assignment %s closed as %s", a.ULID, a.Status)
		}
		if _, err := m.rec.Record(ctx, tx, in); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, apperr.FromStorage(err, conflictOpenAssignment)
	}
	r := ToResponse(out)
	return &r, nil
}

// ===== 削除（誤登録の訂正用） =====

func (m *Manager) DeleteAssignment(ctx context.Context, id int64, performedBy *int64) (err error) {
	defer metrics.Observe("delete_assignment", time.Now(), &err)

	err = db.RunInTx(ctx, m.db, nil, func(ctx context.Context, tx db.DBTX) error {
		assetID, err := m.store.AssetIDOfTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := m.store.LockAssetTx(ctx, tx, assetID); err != nil {
			return err
		}
		a, err := m.store.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := m.store.DeleteTx(ctx, tx, id); err != nil {
			return err
		}

		now := m.clock.Now()
		if a.Status.Open() {
			if err := m.store.SetAssetStatusTx(ctx, tx, assetID, lifecycle.AssetAvailable, now); err != nil {
				return err
			}
		}
		_, err = m.rec.Record(ctx, tx, history.Input{
			AssetID:     assetID,
			ActionType:  lifecycle.ActionUpdated,
			EmployeeID:  &a.EmployeeID,
			PerformedBy: performedBy,
			Notes:       "assignment " + a.ULID + " deleted",
			ActionDate:  now,
			OldValue:    snapshotOf(a),
		})
		return err
	})
	if err != nil {
		return apperr.FromStorage(err, conflictOpenAssignment)
	}
	logger.L().Info("assignment deleted", zap.Int64("assignment_id", id))
	return nil
}

// ===== 参照 =====

// Get は数値なら id、それ以外は ULID として引く
func (m *Manager) Get(ctx context.Context, key string) (*AssignmentResponse, error) {
	var (
		a   *Assignment
		err error
	)
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
		a, err = m.store.GetByID(ctx, id)
	} else {
		a, err = m.store.GetByULID(ctx, strings.ToUpper(key))
	}
	if err != nil {
		return nil, readErr(err)
	}
	r := ToResponse(a)
	return &r, nil
}

func (m *Manager) List(ctx context.Context, f Filter, p Page) (*ListResponse, error) {
	list, total, err := m.store.List(ctx, f, p)
	if err != nil {
		return nil, readErr(err)
	}
	items := make([]AssignmentResponse, 0, len(list))
	for i := range list {
		items = append(items, ToResponse(&list[i]))
	}
	return &ListResponse{Items: items, Total: total, NextOffset: nextOffset(total, p, len(items))}, nil
}

// ===== helpers =====

func (m *Manager) today() db.Date { return db.NewDate(m.clock.Now()) }

func requireID(f apperr.FieldErrors, field string, v *int64) {
	if v == nil || *v <= 0 {
		f.Add(field, "is required")
	}
}

func parseOptionalDate(f apperr.FieldErrors, field string, v *string) *db.Date {
	if v == nil {
		return nil
	}
	d, err := db.ParseDate(*v)
	if err != nil {
		f.Add(field, "must be YYYY-MM-DD")
		return nil
	}
	return &d
}

func defaultCondition(s lifecycle.AssignmentStatus) lifecycle.ReturnCondition {
	switch s {
	case lifecycle.AssignmentDamaged:
		return lifecycle.ConditionDamaged
	case lifecycle.AssignmentLost:
		return lifecycle.ConditionLost
	case lifecycle.AssignmentStolen:
		return lifecycle.ConditionStolen
	default:
		return lifecycle.ConditionGood
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// AppendNote は既存メモの後ろに1行足す
func AppendNote(cur sql.NullString, add string) sql.NullString {
	if !cur.Valid || cur.String == "" {
		return nullString(add)
	}
	return nullString(cur.String + "\n" + add)
}

func readErr(err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(err)
}

func nextOffset(total int64, p Page, n int) int {
	next := p.Offset + n
	if int64(next) >= total {
		return -1
	}
	return next
}
