package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrAuthFailed    = errors.New("authentication failed")
)

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(conn *sql.DB, secret []byte, ttl time.Duration) *Service {
	return &Service{store: NewStore(conn), secret: secret, ttl: ttl, now: time.Now}
}

type AuthService interface {
	Login(ctx context.Context, id, password string) (string, error)
	Register(ctx context.Context, in RegisterRequest) error
}

// Login はアカウントを検証して HS256 トークンを返す。
// emp クレームには紐づく従業員IDが入り、貸出・廃棄の実施者として使われる。
func (s *Service) Login(ctx context.Context, id, password string) (string, error) {
	acct, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if acct == nil || acct.IsDisabled {
		return "", ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return "", ErrAuthFailed
	}

	claims := jwt.MapClaims{
		"sub":  acct.ID,
		"role": acct.Role,
		"exp":  s.now().Add(s.ttl).Unix(),
	}
	if acct.EmployeeID.Valid {
		claims["emp"] = acct.EmployeeID.Int64
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) error {
	f := apperr.FieldErrors{}
	f.Required("id", in.ID)
	if len(in.Password) < 8 {
		f.Add("password", "must be at least 8 characters")
	}
	if err := f.Err(); err != nil {
		return err
	}

	exists, err := s.store.GetByID(ctx, in.ID)
	if err != nil {
		return err
	}
	if exists != nil {
		return ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	role := "user"
	if in.Role != nil && strings.TrimSpace(*in.Role) != "" {
		role = *in.Role
	}
	acct := &Account{ID: in.ID, PasswordHash: string(hash), Role: role}
	if in.EmployeeID != nil {
		acct.EmployeeID = sql.NullInt64{Int64: *in.EmployeeID, Valid: true}
	}
	if err := s.store.Create(ctx, acct); err != nil {
		if db.IsDuplicateKey(err) {
			return ErrAlreadyExists
		}
		if db.IsForeignKeyViolation(err) {
			return apperr.FieldErrors{"employee_id": "does not exist"}.Err()
		}
		return err
	}
	return nil
}
