// Package employees は外部管理の従業員テーブルを参照だけする。
package employees

import (
	"context"
	"database/sql"
	"errors"

	"AMS-backend/internal/platform/db"
)

type Employee struct {
	ID         int64
	Name       string
	Email      sql.NullString
	Department sql.NullString
	IsActive   bool
}

// Get は tx 内（または *sql.DB）で従業員を引く。存在しなければ nil, nil。
func Get(ctx context.Context, q db.DBTX, id int64) (*Employee, error) {
	const query = `
	SELECT id, name, email, department, is_active
	FROM employees
	WHERE id = ?`
	var e Employee
	err := q.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.Email, &e.Department, &e.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Names は id -> name をまとめて引く（タイムラインの表示用）
func Names(ctx context.Context, q db.DBTX, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		e, err := Get(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out[id] = e.Name
		}
	}
	return out, nil
}
