package disposals

import (
	"context"
	"database/sql"
	"encoding/json"

	"AMS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// ListScrapped は廃棄済み資産を、廃棄履歴の新しい順に返す
func (s *Store) ListScrapped(ctx context.Context, p Page) ([]ScrappedItem, int64, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	const q = `
	SELECT a.id, a.asset_tag, a.name, h.action_date, h.new_value, h.performed_by
	FROM assets a
	JOIN asset_history h ON h.asset_id = a.id AND h.action_type = 'scrapped'
	WHERE a.status = 'scrapped'
	ORDER BY h.action_date DESC, h.id DESC
	LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []ScrappedItem{}
	for rows.Next() {
		var (
			it     ScrappedItem
			at     db.Timestamp
			detail sql.NullString
			by     sql.NullInt64
		)
		if err := rows.Scan(&it.AssetID, &it.AssetTag, &it.Name, &at, &detail, &by); err != nil {
			return nil, 0, err
		}
		it.ScrappedAt = at.Time
		if by.Valid {
			v := by.Int64
			it.PerformedBy = &v
		}
		if detail.Valid {
			var d scrapDetail
			// 壊れた JSON は詳細なしで返す
			if json.Unmarshal([]byte(detail.String), &d) == nil {
				it.ScrapDate, it.Reason, it.Method = d.ScrapDate, d.Reason, d.Method
			}
		}
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE status = 'scrapped'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
