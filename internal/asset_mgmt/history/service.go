package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	New() (string, error)
}

// ULIDGen は単調増加 ULID を発行する。同一ミリ秒内でも順序が保たれる。
type ULIDGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGen() *ULIDGen {
	return &ULIDGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Recorder =====

type Recorder struct {
	store *Store
	clock Clock
	id    IDGen
}

func NewRecorder(conn *sql.DB) *Recorder {
	return NewRecorderWith(conn, RealClock{}, NewULIDGen())
}

func NewRecorderWith(conn *sql.DB, clock Clock, id IDGen) *Recorder {
	return &Recorder{store: NewStore(conn), clock: clock, id: id}
}

func (r *Recorder) Clock() Clock { return r.clock }
func (r *Recorder) IDs() IDGen   { return r.id }

// Record は監査行を1件追記する。状態変更と同じ tx で呼ぶこと。
func (r *Recorder) Record(ctx context.Context, tx db.DBTX, in Input) (*Entry, error) {
	if in.AssetID <= 0 {
		return nil, apperr.FieldErrors{"asset_id": "is required"}.Err()
	}
	if in.ActionType == "" {
		return nil, apperr.FieldErrors{"action_type": "is required"}.Err()
	}

	hid, err := r.id.New()
	if err != nil {
		return nil, err
	}
	when := in.ActionDate
	if when.IsZero() {
		when = r.clock.Now()
	}

	e := &Entry{
		ULID:       hid,
		AssetID:    in.AssetID,
		ActionType: in.ActionType,
		ActionDate: db.NewTimestamp(when),
	}
	if in.EmployeeID != nil {
		e.EmployeeID = sql.NullInt64{Int64: *in.EmployeeID, Valid: true}
	}
	if in.PerformedBy != nil {
		e.PerformedBy = sql.NullInt64{Int64: *in.PerformedBy, Valid: true}
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		e.Notes = sql.NullString{String: n, Valid: true}
	}
	if e.OldValue, err = snapshot(in.OldValue); err != nil {
		return nil, err
	}
	if e.NewValue, err = snapshot(in.NewValue); err != nil {
		return nil, err
	}

	if err := InsertTx(ctx, tx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func snapshot(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("history snapshot: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// ===== 参照 =====

func (r *Recorder) ListByAsset(ctx context.Context, assetID int64) ([]EntryResponse, error) {
	ok, err := r.store.AssetExists(ctx, assetID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound("asset not found")
	}
	rows, err := r.store.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]EntryResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, toResponse(e))
	}
	return out, nil
}

// Entries は加工前の行を返す（タイムライン用）
func (r *Recorder) Entries(ctx context.Context, assetID int64) ([]Entry, error) {
	return r.store.ListByAsset(ctx, assetID)
}
