package categories

import (
	"context"
	"database/sql"
	"strings"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
)

const conflictCode = "category code already exists"

type Service struct {
	store *Store
}

func NewService(conn *sql.DB) *Service { return &Service{store: NewStore(conn)} }

// List は既定で有効なカテゴリのみ返す。無効なものも含めるかは呼び出し側が明示する。
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Category, error) {
	list, err := s.store.List(ctx, includeInactive)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if c == nil {
		return nil, apperr.NotFound("category not found")
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, in CreateCategoryRequest) (*Category, error) {
	name, code, err := normalize(in.Name, in.Code)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Create(ctx, name, code)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Conflict(conflictCode)
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateCategoryRequest) (*Category, error) {
	name, code, err := normalize(in.Name, in.Code)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, id, name, code, in.IsActive); err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.Conflict(conflictCode)
		}
		return nil, apperr.Internal(err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Disable(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Disable(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// コードは大文字に揃える（"lap" と "LAP" を別物にしない）
func normalize(name, code string) (string, string, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	f := apperr.FieldErrors{}
	f.Required("name", name)
	f.Required("code", code)
	if err := f.Err(); err != nil {
		return "", "", err
	}
	return name, code, nil
}
