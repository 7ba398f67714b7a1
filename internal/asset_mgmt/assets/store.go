package assets

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"strings"

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
	SELECT id, name, asset_tag, category_id, serial_number, model, manufacturer, description,
	       location, branch, purchase_date, purchase_cost, warranty_expiry, notes,
	       status, is_active, created_at, updated_at
	FROM assets`

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*Asset, error) {
	var a Asset
	var status string
	if err := row.Scan(
		&a.ID, &a.Name, &a.Tag, &a.CategoryID, &a.SerialNumber, &a.Model, &a.Manufacturer, &a.Description,
		&a.Location, &a.Branch, &a.PurchaseDate, &a.PurchaseCost, &a.WarrantyExpiry, &a.Notes,
		&status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if a.Status, err = lifecycle.ParseAssetStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}

// ===== 採番 =====

var tagPattern = regexp.MustCompile(`^AST(\d+)$`)

// NextTagTx は既存タグの数値部の最大値 +1 を4桁ゼロ埋めで返す。
// 件数ではなく最大値から出すので、欠番は埋めない（最大の番号が消されていればそれは再利用される）。
func (s *Store) NextTagTx(ctx context.Context, tx db.DBTX) (string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT asset_tag FROM assets WHERE asset_tag LIKE 'AST%'`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return "", err
		}
		m := tagPattern.FindStringSubmatch(tag)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return FormatTag(highest + 1), nil
}

func FormatTag(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 4 {
		s = strings.Repeat("0", 4-len(s)) + s
	}
	return "AST" + s
}

func (s *Store) TagExistsTx(ctx context.Context, tx db.DBTX, tag string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE asset_tag = ?`, tag).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) CategoryExistsTx(ctx context.Context, tx db.DBTX, id int64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ===== assets (tx) =====

func (s *Store) InsertTx(ctx context.Context, tx db.DBTX, a *Asset) error {
	const q = `
	INSERT INTO assets
	(name, asset_tag, category_id, serial_number, model, manufacturer, description, location, branch,
	 purchase_date, purchase_cost, warranty_expiry, notes, status, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		a.Name, a.Tag, a.CategoryID, a.SerialNumber, a.Model, a.Manufacturer, a.Description, a.Location, a.Branch,
		a.PurchaseDate, a.PurchaseCost, a.WarrantyExpiry, a.Notes, string(a.Status), a.IsActive, a.CreatedAt, a.UpdatedAt,
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

// GetTx は lock=true なら行ロック付きで読む
func (s *Store) GetTx(ctx context.Context, tx db.DBTX, id int64, lock bool) (*Asset, error) {
	q := selectCols + ` WHERE id = ?`
	if lock {
		q += s.dialect.ForUpdate()
	}
	a, err := scanAsset(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("asset not found")
	}
	return a, err
}

// UpdateTx は asset_tag 以外を書き戻す
func (s *Store) UpdateTx(ctx context.Context, tx db.DBTX, a *Asset) error {
	const q = `
	UPDATE assets
	SET name = ?, category_id = ?, serial_number = ?, model = ?, manufacturer = ?, description = ?,
	    location = ?, branch = ?, purchase_date = ?, purchase_cost = ?, warranty_expiry = ?, notes = ?,
	    status = ?, is_active = ?, updated_at = ?
	WHERE id = ?`
	res, err := tx.ExecContext(ctx, q,
		a.Name, a.CategoryID, a.SerialNumber, a.Model, a.Manufacturer, a.Description,
		a.Location, a.Branch, a.PurchaseDate, a.PurchaseCost, a.WarrantyExpiry, a.Notes,
		string(a.Status), a.IsActive, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.NotFound("asset not found")
	}
	return nil
}

func (s *Store) DeleteTx(ctx context.Context, tx db.DBTX, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.NotFound("asset not found")
	}
	return nil
}

// ===== 参照 =====

func (s *Store) Get(ctx context.Context, id int64) (*Asset, error) {
	return s.GetTx(ctx, s.db, id, false)
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Asset, int64, error) {
	// --- WHERE句（フィルタ条件）: 指定された項目だけ足す ---
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE 1=1")

	if !f.IncludeInactive {
		where.WriteString(" AND is_active = 1")
	}
	if f.CategoryID != nil {
		where.WriteString(" AND category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Status != nil {
		where.WriteString(" AND status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Branch != nil {
		where.WriteString(" AND branch = ?")
		args = append(args, *f.Branch)
	}

	// --- ORDER BY / LIMIT ---
	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	query := selectCols + where.String() + " ORDER BY id " + order + " LIMIT ? OFFSET ?"
	listArgs := append(append([]any{}, args...), p.Limit, p.Offset)

	rows, err := s.db.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// --- 総件数（同じフィルタ） ---
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
