package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MySQL (parseTime=true) は time.Time、SQLite は TEXT で返ってくるので両方受ける。
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	DateLayout,
}

func parseTimeText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func scanTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case string:
		t, err := parseTimeText(v)
		return t, err == nil, err
	case []byte:
		t, err := parseTimeText(string(v))
		return t, err == nil, err
	default:
		return time.Time{}, false, fmt.Errorf("unsupported time source %T", src)
	}
}

// Date は日単位の NULL 許容日付（DATE カラム）。
type Date struct {
	Time  time.Time
	Valid bool
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

func (d *Date) Scan(src any) error {
	t, ok, err := scanTime(src)
	if err != nil {
		return err
	}
	if !ok {
		*d = Date{}
		return nil
	}
	*d = NewDate(t)
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time.Format(DateLayout), nil
}

func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) Ptr() *string {
	if !d.Valid {
		return nil
	}
	s := d.String()
	return &s
}

// Timestamp は NULL 許容の日時（DATETIME(6) / TEXT）。UTC で保存する。
type Timestamp struct {
	Time  time.Time
	Valid bool
}

func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t.UTC(), Valid: true} }

func (ts *Timestamp) Scan(src any) error {
	t, ok, err := scanTime(src)
	if err != nil {
		return err
	}
	*ts = Timestamp{Time: t, Valid: ok}
	return nil
}

func (ts Timestamp) Value() (driver.Value, error) {
	if !ts.Valid {
		return nil, nil
	}
	return ts.Time.UTC().Format("2006-01-02 15:04:05.000000"), nil
}
