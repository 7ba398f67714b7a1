// Package labels はラベルプリンタ向けに資産タグの CSV を書き出す。
package labels

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"AMS-backend/internal/platform/apperr"
)

type Encoding string

const (
	UTF8    Encoding = "utf-8"
	CP932   Encoding = "cp932"
	UTF16LE Encoding = "utf-16le"
)

// ParseEncoding は空文字を utf-8 とみなす。shift_jis / sjis は cp932 の別名。
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "cp932", "shift_jis", "sjis":
		return CP932, nil
	case "utf-16le", "utf16le", "utf-16":
		return UTF16LE, nil
	}
	return "", apperr.FieldErrors{"encoding": "must be one of utf-8 cp932 utf-16le"}.Err()
}

// ContentType は Content-Type ヘッダの charset 付き値
func (e Encoding) ContentType() string {
	switch e {
	case CP932:
		return "text/csv; charset=Shift_JIS"
	case UTF16LE:
		return "text/csv; charset=UTF-16LE"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Windows 版のラベルソフトは BOM 付き UTF-16 と CP932 しか読めない。
// CP932 に無い文字は SUB(0x1A) に置き換えて出力を続ける。
func (e Encoding) writer(w io.Writer) io.Writer {
	var enc *encoding.Encoder
	switch e {
	case CP932:
		enc = encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder())
	case UTF16LE:
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	default:
		return w
	}
	return transform.NewWriter(w, enc)
}

// Row はラベル1枚分
type Row struct {
	Tag      string
	Name     string
	Category string
	Location string
}

func (r Row) record() []string {
	return []string{r.Tag, r.Name, r.Category, r.Location}
}

var header = []string{"asset_tag", "name", "category", "location"}

// Write は rows を指定エンコーディングの CSV にする。
func Write(w io.Writer, enc Encoding, rows []Row, withHeader bool) error {
	tw := enc.writer(w)
	cw := csv.NewWriter(tw)
	if withHeader {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if c, ok := tw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ===== export =====

type Filter struct {
	IDs        []int64
	CategoryID *int64
	Encoding   Encoding
	Header     bool
}

type Service struct{ db *sql.DB }

func NewService(conn *sql.DB) *Service { return &Service{db: conn} }

// Export は有効かつ廃棄済みでない資産をタグ順に書き出す。
// IDs 指定時はその資産だけ（無効・廃棄済みでも出す）。
func (s *Service) Export(ctx context.Context, f Filter) ([]byte, error) {
	rows, err := s.rows(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(f.IDs) > 0 && len(rows) == 0 {
		return nil, apperr.NotFound("no assets matched")
	}
	var b bytes.Buffer
	if err := Write(&b, f.Encoding, rows, f.Header); err != nil {
		return nil, apperr.Internal(err)
	}
	return b.Bytes(), nil
}

func (s *Service) rows(ctx context.Context, f Filter) ([]Row, error) {
	q := `
		SELECT a.asset_tag, a.name, COALESCE(c.name, ''), COALESCE(a.location, '')
		FROM assets a
		LEFT JOIN categories c ON c.id = a.category_id
	`
	var where []string
	var args []any
	if len(f.IDs) > 0 {
		where = append(where, "a.id IN (?"+strings.Repeat(",?", len(f.IDs)-1)+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	} else {
		where = append(where, "a.is_active = 1", "a.status <> 'scrapped'")
	}
	if f.CategoryID != nil {
		where = append(where, "a.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	q += " WHERE " + strings.Join(where, " AND ") + " ORDER BY a.asset_tag"

	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	out := make([]Row, 0, 32)
	for rs.Next() {
		var r Row
		if err := rs.Scan(&r.Tag, &r.Name, &r.Category, &r.Location); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// ParseIDs は "1,2,3" を解釈する。空要素は無視。
func ParseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperr.FieldErrors{"ids": "must be comma separated positive integers"}.Err()
		}
		ids = append(ids, id)
	}
	return ids, nil
}
