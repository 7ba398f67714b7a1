package categories

import (
	"context"
	"database/sql"
	"errors"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// GET /categories?include_inactive=1
func (s *Store) List(ctx context.Context, includeInactive bool) ([]Category, error) {
	q := `
		SELECT id, name, code, is_active
		FROM categories
	`
	if !includeInactive {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Category, 0, 16)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.IsActive); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// 見つからなければ nil, nil
func (s *Store) GetByID(ctx context.Context, id int64) (*Category, error) {
	const q = `
		SELECT id, name, code, is_active
		FROM categories
		WHERE id = ?
	`
	var c Category
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Code, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, name, code string) (*Category, error) {
	const q = `
		INSERT INTO categories (name, code, is_active)
		VALUES (?, ?, 1)
	`
	r, err := s.db.ExecContext(ctx, q, name, code)
	if err != nil {
		return nil, err
	}
	id, err := r.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Category{ID: id, Name: name, Code: code, IsActive: true}, nil
}

// 値が変わらない UPDATE は MySQL だと affected=0 になるので、存在確認は呼び出し側で行う
func (s *Store) Update(ctx context.Context, id int64, name, code string, active bool) error {
	const q = `
		UPDATE categories
		SET name = ?, code = ?, is_active = ?
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, q, name, code, active, id)
	return err
}

// DELETE は is_active=0 にするだけ（assets からの参照を残す）
func (s *Store) Disable(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE categories SET is_active = 0 WHERE id = ?`, id)
	return err
}
