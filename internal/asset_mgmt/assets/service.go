package assets

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"AMS-backend/internal/asset_mgmt/assignments"
	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
	"AMS-backend/internal/platform/logger"
	"AMS-backend/internal/platform/metrics"
)

// Registry は資産レコードの登録・更新・削除・参照を持つ。
// ステータスの貸出系遷移は assignments / disposals に任せる。
type Registry struct {
	db     *sql.DB
	store  *Store
	assign *assignments.Manager
	rec    *history.Recorder
	clock  history.Clock
}

func NewRegistry(h *db.Handle, rec *history.Recorder, assign *assignments.Manager) *Registry {
	return &Registry{
		db:     h.DB,
		store:  NewStore(h),
		assign: assign,
		rec:    rec,
		clock:  rec.Clock(),
	}
}

// 登録時に指定できるステータス
var creatableStatuses = map[lifecycle.AssetStatus]bool{
	lifecycle.AssetAvailable:   true,
	lifecycle.AssetMaintenance: true,
	lifecycle.AssetAssigned:    true,
}

// ===== 登録 =====

func (r *Registry) Create(ctx context.Context, in CreateAssetRequest) (res *AssetResponse, err error) {
	defer metrics.Observe("create_asset", time.Now(), &err)

	// ---- validate ----
	f := apperr.FieldErrors{}
	f.Required("name", in.Name)
	status := lifecycle.AssetAvailable
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		st, perr := lifecycle.ParseAssetStatus(*in.Status)
		switch {
		case perr != nil:
			f.Add("status", "must be one of available maintenance assigned")
		case !creatableStatuses[st]:
			f.Add("status", "cannot create an asset as "+string(st))
		default:
			status = st
		}
	}
	a := &Asset{
		Name:         strings.TrimSpace(in.Name),
		SerialNumber: nullString(in.SerialNumber),
		Model:        nullString(in.Model),
		Manufacturer: nullString(in.Manufacturer),
		Description:  nullString(in.Description),
		Location:     nullString(in.Location),
		Branch:       nullString(in.Branch),
		Notes:        nullString(in.Notes),
		IsActive:     true,
	}
	if in.CategoryID != nil {
		a.CategoryID = sql.NullInt64{Int64: *in.CategoryID, Valid: true}
	}
	a.PurchaseDate = parseDateField(f, "purchase_date", in.PurchaseDate)
	a.WarrantyExpiry = parseDateField(f, "warranty_expiry", in.WarrantyExpiry)
	if in.PurchaseCost != nil {
		if *in.PurchaseCost < 0 {
			f.Add("purchase_cost", "must not be negative")
		}
		a.PurchaseCost = sql.NullFloat64{Float64: *in.PurchaseCost, Valid: true}
	}

	var initial *assignments.AssignParams
	if status == lifecycle.AssetAssigned {
		if in.EmployeeID == nil || *in.EmployeeID <= 0 {
			f.Add("employee_id", "is required when status is assigned")
		}
		if in.AssignedBy == nil || *in.AssignedBy <= 0 {
			f.Add("assigned_by", "is required when status is assigned")
		}
		assignedDate := parseDateField(f, "assigned_date", in.AssignedDate)
		if len(f) == 0 {
			initial = &assignments.AssignParams{
				EmployeeID:   *in.EmployeeID,
				AssignedBy:   *in.AssignedBy,
				AssignedDate: assignedDate,
				Notes:        "initial assignment",
			}
		}
	}
	tag := ""
	if in.AssetTag != nil {
		tag = strings.ToUpper(strings.TrimSpace(*in.AssetTag))
		if len(tag) > 50 {
			f.Add("asset_tag", "must be at most 50 characters")
		}
	}
	if err := f.Err(); err != nil {
		return nil, err
	}

	// ---- tx ----
	err = db.RunInTx(ctx, r.db, nil, func(ctx context.Context, tx db.DBTX) error {
		// 1) タグ: 指定があれば重複チェック、無ければ採番
		if tag != "" {
			exists, err := r.store.TagExistsTx(ctx, tx, tag)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Conflict("asset_tag " + tag + " already exists")
			}
		} else {
			next, err := r.store.NextTagTx(ctx, tx)
			if err != nil {
				return err
			}
			tag = next
		}
		a.Tag = tag

		// 2) カテゴリ
		if a.CategoryID.Valid {
			ok, err := r.store.CategoryExistsTx(ctx, tx, a.CategoryID.Int64)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.FieldErrors{"category_id": "does not exist"}.Err()
			}
		}

		// 3) INSERT。初期貸出ありなら available で入れて AssignTx に assigned へ上げさせる
		now := r.clock.Now()
		a.Status = status
		if initial != nil {
			a.Status = lifecycle.AssetAvailable
		}
		a.CreatedAt = db.NewTimestamp(now)
		a.UpdatedAt = db.NewTimestamp(now)
		if err := r.store.InsertTx(ctx, tx, a); err != nil {
			return err
		}

		// 4) 初期貸出 or created 履歴
		if initial != nil {
			initial.AssetID = a.ID
			if _, err := r.assign.AssignTx(ctx, tx, *initial); err != nil {
				return err
			}
			a.Status = lifecycle.AssetAssigned
			return nil
		}
		_, err := r.rec.Record(ctx, tx, history.Input{
			AssetID:     a.ID,
			ActionType:  lifecycle.ActionCreated,
			PerformedBy: in.PerformedBy,
			Notes:       "asset " + a.Tag + " created",
			ActionDate:  now,
			NewValue:    snapshotOf(a),
		})
		return err
	})
	if err != nil {
		return nil, apperr.FromStorage(err, "asset_tag "+tag+" already exists")
	}

	logger.L().Info("asset created",
		zap.Int64("asset_id", a.ID),
		zap.String("asset_tag", a.Tag),
		zap.String("status", string(a.Status)),
	)
	out := ToResponse(a)
	return &out, nil
}

// ===== 更新 =====

func (r *Registry) Update(ctx context.Context, id int64, in UpdateAssetRequest) (res *AssetResponse, err error) {
	defer metrics.Observe("update_asset", time.Now(), &err)

	f := apperr.FieldErrors{}
	if in.AssetTag != nil {
		f.Add("asset_tag", "is immutable")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		f.Add("name", "must not be empty")
	}
	var newStatus *lifecycle.AssetStatus
	if in.Status != nil {
		st, perr := lifecycle.ParseAssetStatus(*in.Status)
		switch {
		case perr != nil:
			f.Add("status", "must be one of available maintenance retired")
		case st == lifecycle.AssetAssigned:
			f.Add("status", "use the assignments endpoints to assign an asset")
		case st == lifecycle.AssetScrapped:
			f.Add("status", "use the scrap endpoint to scrap an asset")
		default:
			newStatus = &st
		}
	}
	if in.PurchaseCost != nil && *in.PurchaseCost < 0 {
		f.Add("purchase_cost", "must not be negative")
	}
	purchaseDate := parseDateField(f, "purchase_date", in.PurchaseDate)
	warranty := parseDateField(f, "warranty_expiry", in.WarrantyExpiry)
	if err := f.Err(); err != nil {
		return nil, err
	}

	var out *Asset
	err = db.RunInTx(ctx, r.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := r.store.GetTx(ctx, tx, id, true)
		if err != nil {
			return err
		}
		before := snapshotOf(a)

		// ステータス変更は貸出の整合を壊さない範囲だけ
		statusChanged := newStatus != nil && *newStatus != a.Status
		if statusChanged {
			if a.Status.Terminal() {
				return apperr.Conflict(fmt.Sprintf("asset is %s and cannot change status", a.Status))
			}
			open, err := r.assign.Store().OpenByAssetTx(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			if open != nil || a.Status == lifecycle.AssetAssigned {
				return apperr.Conflict("asset has an open assignment; return it first")
			}
			a.Status = *newStatus
		}

		if in.Name != nil {
			a.Name = strings.TrimSpace(*in.Name)
		}
		if in.CategoryID != nil {
			ok, err := r.store.CategoryExistsTx(ctx, tx, *in.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.FieldErrors{"category_id": "does not exist"}.Err()
			}
			a.CategoryID = sql.NullInt64{Int64: *in.CategoryID, Valid: true}
		}
		setIf(&a.SerialNumber, in.SerialNumber)
		setIf(&a.Model, in.Model)
		setIf(&a.Manufacturer, in.Manufacturer)
		setIf(&a.Description, in.Description)
		setIf(&a.Location, in.Location)
		setIf(&a.Branch, in.Branch)
		setIf(&a.Notes, in.Notes)
		if in.PurchaseDate != nil {
			a.PurchaseDate = purchaseDate
		}
		if in.WarrantyExpiry != nil {
			a.WarrantyExpiry = warranty
		}
		if in.PurchaseCost != nil {
			a.PurchaseCost = sql.NullFloat64{Float64: *in.PurchaseCost, Valid: true}
		}
		if in.IsActive != nil {
			a.IsActive = *in.IsActive
		}

		now := r.clock.Now()
		a.UpdatedAt = db.NewTimestamp(now)
		if err := r.store.UpdateTx(ctx, tx, a); err != nil {
			return err
		}

		action := lifecycle.ActionUpdated
		note := "asset " + a.Tag + " updated"
		if statusChanged && (a.Status == lifecycle.AssetMaintenance || a.Status == lifecycle.AssetRetired) {
			action = lifecycle.ActionType(a.Status)
			note = fmt.Sprintf("status changed to %s", a.Status)
		}
		if _, err := r.rec.Record(ctx, tx, history.Input{
			AssetID:     a.ID,
			ActionType:  action,
			PerformedBy: in.PerformedBy,
			Notes:       note,
			ActionDate:  now,
			OldValue:    before,
			NewValue:    snapshotOf(a),
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, apperr.FromStorage(err, "asset conflicts with an existing record")
	}
	resp := ToResponse(out)
	return &resp, nil
}

// ===== 削除 =====

// Delete は履歴 → 貸出 → 資産の順に物理削除する。貸出中かどうかは見ない。
func (r *Registry) Delete(ctx context.Context, id int64) (err error) {
	defer metrics.Observe("delete_asset", time.Now(), &err)

	var deleted *Asset
	err = db.RunInTx(ctx, r.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := r.store.GetTx(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := history.DeleteByAssetTx(ctx, tx, id); err != nil {
			return err
		}
		if err := r.assign.Store().DeleteByAssetTx(ctx, tx, id); err != nil {
			return err
		}
		if err := r.store.DeleteTx(ctx, tx, id); err != nil {
			return err
		}
		deleted = a
		return nil
	})
	if err != nil {
		return apperr.FromStorage(err, "asset could not be deleted")
	}

	fields := []zap.Field{zap.Int64("asset_id", id), zap.String("asset_tag", deleted.Tag)}
	if deleted.Status == lifecycle.AssetAssigned {
		logger.L().Warn("asset deleted while assigned", fields...)
	} else {
		logger.L().Info("asset deleted", fields...)
	}
	return nil
}

// ===== 参照 =====

func (r *Registry) GetByID(ctx context.Context, id int64) (*AssetResponse, error) {
	a, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	res := ToResponse(a)
	if a.Status == lifecycle.AssetAssigned {
		open, err := r.assign.Store().OpenByAssetTx(ctx, r.db, id)
		if err != nil {
			return nil, readErr(err)
		}
		if open != nil {
			cur := assignments.ToResponse(open)
			res.CurrentAssignment = &cur
		}
	}
	return &res, nil
}

func (r *Registry) List(ctx context.Context, f Filter, p Page) (*ListResponse, error) {
	list, total, err := r.store.List(ctx, f, p)
	if err != nil {
		return nil, readErr(err)
	}
	items := make([]AssetResponse, 0, len(list))
	for i := range list {
		items = append(items, ToResponse(&list[i]))
	}
	next := p.Offset + len(items)
	if int64(next) >= total {
		next = -1
	}
	return &ListResponse{Items: items, Total: total, NextOffset: next}, nil
}

// ===== helpers =====

func parseDateField(f apperr.FieldErrors, field string, v *string) db.Date {
	if v == nil || strings.TrimSpace(*v) == "" {
		return db.Date{}
	}
	d, err := db.ParseDate(*v)
	if err != nil {
		f.Add(field, "must be YYYY-MM-DD")
		return db.Date{}
	}
	return d
}

func setIf(dst *sql.NullString, v *string) {
	if v != nil {
		*dst = nullString(v)
	}
}

func readErr(err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(err)
}

func fieldErr(field, msg string) error { return apperr.FieldErrors{field: msg}.Err() }
