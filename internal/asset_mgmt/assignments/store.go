package assignments

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
)

type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(h *db.Handle) *Store { return &Store{db: h.DB, dialect: h.Dialect} }

const selectCols = `
	SELECT id, assignment_ulid, asset_id, employee_id, assigned_by, assigned_date, return_date,
	       status, return_condition, notes, created_at, updated_at
	FROM assignments`

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row scanner) (*Assignment, error) {
	var a Assignment
	var status string
	if err := row.Scan(
		&a.ID, &a.ULID, &a.AssetID, &a.EmployeeID, &a.AssignedBy, &a.AssignedDate, &a.ReturnDate,
		&status, &a.ReturnCondition, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if a.Status, err = lifecycle.ParseAssignmentStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}

// ===== asset row =====

// LockAssetTx は資産行を読んでロックする（MySQL は FOR UPDATE、SQLite は IMMEDIATE tx で直列化済み）
func (s *Store) LockAssetTx(ctx context.Context, tx db.DBTX, assetID int64) (*AssetState, error) {
	q := `SELECT id, asset_tag, status FROM assets WHERE id = ?` + s.dialect.ForUpdate()
	var st AssetState
	var status string
	err := tx.QueryRowContext(ctx, q, assetID).Scan(&st.ID, &st.Tag, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("asset not found")
	}
	if err != nil {
		return nil, err
	}
	if st.Status, err = lifecycle.ParseAssetStatus(status); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SetAssetStatusTx(ctx context.Context, tx db.DBTX, assetID int64, status lifecycle.AssetStatus, now time.Time) error {
	const q = `UPDATE assets SET status = ?, updated_at = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, string(status), db.NewTimestamp(now), assetID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.NotFound("asset not found")
	}
	return nil
}

// ===== assignments (tx) =====

func (s *Store) InsertTx(ctx context.Context, tx db.DBTX, a *Assignment) error {
	const q = `
	INSERT INTO assignments
	(assignment_ulid, asset_id, employee_id, assigned_by, assigned_date, status, notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		a.ULID,
		a.AssetID,
		a.EmployeeID,
		a.AssignedBy,
		a.AssignedDate,
		string(a.Status),
		a.Notes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (s *Store) GetByIDTx(ctx context.Context, tx db.DBTX, id int64) (*Assignment, error) {
	a, err := scanAssignment(tx.QueryRowContext(ctx, selectCols+` WHERE id = ?`+s.dialect.ForUpdate(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("assignment not found")
	}
	return a, err
}

// OpenByAssetTx は資産の貸出中レコードを返す。無ければ nil。
func (s *Store) OpenByAssetTx(ctx context.Context, tx db.DBTX, assetID int64) (*Assignment, error) {
	q := selectCols + ` WHERE asset_id = ? AND status = ?` + s.dialect.ForUpdate()
	a, err := scanAssignment(tx.QueryRowContext(ctx, q, assetID, string(lifecycle.AssignmentAssigned)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// UpdateTx は可変項目をまとめて書き戻す
func (s *Store) UpdateTx(ctx context.Context, tx db.DBTX, a *Assignment) error {
	const q = `
	UPDATE assignments
	SET assigned_date = ?, return_date = ?, status = ?, return_condition = ?, notes = ?, updated_at = ?
	WHERE id = ?`
	res, err := tx.ExecContext(ctx, q,
		a.AssignedDate,
		a.ReturnDate,
		string(a.Status),
		a.ReturnCondition,
		a.Notes,
		a.UpdatedAt,
		a.ID,
	)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.NotFound("assignment not found")
	}
	return nil
}

func (s *Store) DeleteTx(ctx context.Context, tx db.DBTX, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	return err
}

// DeleteByAssetTx は資産の物理削除（カスケード）からのみ呼ばれる
func (s *Store) DeleteByAssetTx(ctx context.Context, tx db.DBTX, assetID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE asset_id = ?`, assetID)
	return err
}

// ===== 参照 =====

func (s *Store) GetByID(ctx context.Context, id int64) (*Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("assignment not found")
	}
	return a, err
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Assignment, error) {
	a, err := scanAssignment(s.db.QueryRowContext(ctx, selectCols+` WHERE assignment_ulid = ?`, ulid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("assignment not found")
	}
	return a, err
}

// ListByAsset はタイムライン用。id 昇順で全件。
func (s *Store) ListByAsset(ctx context.Context, assetID int64) ([]Assignment, error) {
	list, _, err := s.List(ctx, Filter{AssetID: &assetID}, Page{Limit: -1, Order: "asc"})
	return list, err
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Assignment, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE 1=1")

	if f.AssetID != nil {
		where.WriteString(" AND asset_id = ?")
		args = append(args, *f.AssetID)
	}
	if f.EmployeeID != nil {
		where.WriteString(" AND employee_id = ?")
		args = append(args, *f.EmployeeID)
	}
	if f.Status != nil {
		where.WriteString(" AND status = ?")
		args = append(args, string(*f.Status))
	}
	if f.OpenOnly {
		where.WriteString(" AND status = ?")
		args = append(args, string(lifecycle.AssignmentAssigned))
	}

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}

	query := selectCols + where.String() + " ORDER BY id " + order
	listArgs := append([]any{}, args...)
	// Limit < 0 は全件
	if p.Limit >= 0 {
		if p.Limit == 0 {
			p.Limit = 50
		}
		if p.Offset < 0 {
			p.Offset = 0
		}
		query += " LIMIT ? OFFSET ?"
		listArgs = append(listArgs, p.Limit, p.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// AssetIDOfTx はロック順（資産→貸出）を守るために、ロックせずに asset_id だけ引く
func (s *Store) AssetIDOfTx(ctx context.Context, tx db.DBTX, id int64) (int64, error) {
	var assetID int64
	err := tx.QueryRowContext(ctx, `SELECT asset_id FROM assignments WHERE id = ?`, id).Scan(&assetID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFound("assignment not found")
	}
	return assetID, err
}
