package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db/dbtest"
)

var testSecret = []byte("test-secret")

func newService(t *testing.T) (*Service, int64) {
	t.Helper()
	h := dbtest.Open(t)
	emp := dbtest.SeedEmployee(t, h, "Alice", true)
	svc := NewService(h.DB, testSecret, time.Hour)
	svc.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, emp
}

func TestRegisterThenLogin(t *testing.T) {
	svc, emp := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterRequest{ID: "alice", Password: "password1", EmployeeID: &emp}))

	tok, err := svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok, func(*jwt.Token) (any, error) { return testSecret, nil },
		jwt.WithTimeFunc(svc.now))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "user", claims["role"])
	assert.Equal(t, float64(emp), claims["emp"])
}

func TestLogin_Failures(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterRequest{ID: "bob", Password: "password1"}))

	_, err := svc.Login(ctx, "bob", "wrong-pass")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = svc.Login(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestRegister_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, RegisterRequest{ID: "carol", Password: "password1"}))

	err := svc.Register(ctx, RegisterRequest{ID: "carol", Password: "password2"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = svc.Register(ctx, RegisterRequest{ID: "dave", Password: "short"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	missing := int64(999)
	err = svc.Register(ctx, RegisterRequest{ID: "erin", Password: "password1", EmployeeID: &missing})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "employee_id")
}
