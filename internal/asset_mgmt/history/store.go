package history

import (
	"context"
	"database/sql"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// InsertTx は呼び出し側のトランザクション内で1行追記する
func InsertTx(ctx context.Context, tx db.DBTX, e *Entry) error {
	const q = `
	INSERT INTO asset_history
	(history_ulid, asset_id, employee_id, performed_by, action_type, action_date, notes, old_value, new_value)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		e.ULID,
		e.AssetID,
		e.EmployeeID,
		e.PerformedBy,
		string(e.ActionType),
		e.ActionDate,
		e.Notes,
		e.OldValue,
		e.NewValue,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// DeleteByAssetTx は資産の物理削除（カスケード）からのみ呼ばれる
func DeleteByAssetTx(ctx context.Context, tx db.DBTX, assetID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM asset_history WHERE asset_id = ?`, assetID)
	return err
}

func (s *Store) ListByAsset(ctx context.Context, assetID int64) ([]Entry, error) {
	const q = `
	SELECT id, history_ulid, asset_id, employee_id, performed_by, action_type, action_date, notes, old_value, new_value
	FROM asset_history
	WHERE asset_id = ?
	ORDER BY action_date DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, q, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Entry{}
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(
			&e.ID, &e.ULID, &e.AssetID, &e.EmployeeID, &e.PerformedBy,
			&action, &e.ActionDate, &e.Notes, &e.OldValue, &e.NewValue,
		); err != nil {
			return nil, err
		}
		// 書き込みは Parse 済みの値だけなので、ここで失敗するのは DB を直接いじった時
		if e.ActionType, err = lifecycle.ParseActionType(action); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (s *Store) AssetExists(ctx context.Context, assetID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE id = ?`, assetID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
