package disposals

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

// Processor は廃棄（終端遷移）を扱う。貸出中なら貸出を強制クローズしてから廃棄する。
type Processor struct {
	db     *sql.DB
	store  *Store
	assign *assignments.Store
	rec    *history.Recorder
	clock  history.Clock
}

func NewProcessor(h *db.Handle, rec *history.Recorder, assign *assignments.Manager) *Processor {
	return &Processor{
		db:     h.DB,
		store:  NewStore(h.DB),
		assign: assign.Store(),
		rec:    rec,
		clock:  rec.Clock(),
	}
}

func (p *Processor) Scrap(ctx context.Context, assetID int64, in ScrapRequest) (res *ScrapResponse, err error) {
	defer metrics.Observe("scrap_asset", time.Now(), &err)

	// 1. 入力
	f := apperr.FieldErrors{}
	if assetID <= 0 {
		f.Add("asset_id", "is required")
	}
	var scrapDate db.Date
	if in.ScrapDate == nil || strings.TrimSpace(*in.ScrapDate) == "" {
		f.Add("scrap_date", "is required")
	} else if d, perr := db.ParseDate(*in.ScrapDate); perr != nil {
		f.Add("scrap_date", "must be YYYY-MM-DD")
	} else {
		scrapDate = d
	}
	reason, method := trim(in.Reason), trim(in.Method)
	f.Required("reason", reason)
	f.Required("method", method)
	if in.PerformedBy == nil || *in.PerformedBy <= 0 {
		f.Add("performed_by", "is required")
	}
	if err := f.Err(); err != nil {
		return nil, err
	}

	out := &ScrapResponse{
		AssetID:   assetID,
		Status:    string(lifecycle.AssetScrapped),
		ScrapDate: scrapDate.String(),
		Reason:    reason,
		Method:    method,
	}
	err = db.RunInTx(ctx, p.db, nil, func(ctx context.Context, tx db.DBTX) error {
		// 2-3. 存在・状態
		asset, err := p.assign.LockAssetTx(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if asset.Status == lifecycle.AssetScrapped {
			return apperr.Conflict("asset " + asset.Tag + " is already scrapped")
		}
		out.AssetTag = asset.Tag
		now := p.clock.Now()

		// 4. 貸出中なら強制クローズ（returned / damaged）
		detail := scrapDetail{ScrapDate: scrapDate.String(), Reason: reason, Method: method}
		var holder *int64
		if asset.Status == lifecycle.AssetAssigned {
			open, err := p.assign.OpenByAssetTx(ctx, tx, assetID)
			if err != nil {
				return err
			}
			if open != nil {
				open.Status = lifecycle.AssignmentReturned
				open.ReturnDate = scrapDate
				open.ReturnCondition = sql.NullString{String: string(lifecycle.ConditionDamaged), Valid: true}
				open.Notes = assignments.AppendNote(open.Notes, fmt.Sprintf("closed by scrap: %s (%s)", reason, method))
				open.UpdatedAt = db.NewTimestamp(now)
				if err := p.assign.UpdateTx(ctx, tx, open); err != nil {
					return err
				}
				closed := assignments.ToResponse(open)
				out.ClosedAssignment = &closed
				detail.ClosedAssignmentID = &open.ID
				holder = &open.EmployeeID
			}
		}

		// 5. 資産ステータス
		if err := p.assign.SetAssetStatusTx(ctx, tx, assetID, lifecycle.AssetScrapped, now); err != nil {
			return err
		}

		// 6. 履歴
		e, err := p.rec.Record(ctx, tx, history.Input{
			AssetID:     assetID,
			ActionType:  lifecycle.ActionScrapped,
			EmployeeID:  holder,
			PerformedBy: in.PerformedBy,
			Notes:       fmt.Sprintf("scrapped on %s: %s (%s)", scrapDate, reason, method),
			ActionDate:  now,
			OldValue:    map[string]string{"status": string(asset.Status)},
			NewValue:    detail,
		})
		if err != nil {
			return err
		}
		out.HistoryULID = e.ULID
		return nil
	})
	if err != nil {
		return nil, apperr.FromStorage(err, "asset could not be scrapped")
	}

	logger.L().Info("asset scrapped",
		zap.Int64("asset_id", assetID),
		zap.String("asset_tag", out.AssetTag),
		zap.Bool("closed_assignment", out.ClosedAssignment != nil),
	)
	return out, nil
}

func (p *Processor) ListScrapped(ctx context.Context, page Page) (*ListResponse, error) {
	list, total, err := p.store.ListScrapped(ctx, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	next := page.Offset + len(list)
	if int64(next) >= total {
		next = -1
	}
	return &ListResponse{Items: list, Total: total, NextOffset: next}, nil
}

func trim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
