package categories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db/dbtest"
)

func TestList_DefaultsToActiveOnly(t *testing.T) {
	h := dbtest.Open(t)
	dbtest.SeedCategory(t, h, "Laptop", "LAP", true)
	dbtest.SeedCategory(t, h, "Fax", "FAX", false)
	svc := NewService(h.DB)

	active, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "LAP", active[0].Code)

	all, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreate(t *testing.T) {
	h := dbtest.Open(t)
	svc := NewService(h.DB)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateCategoryRequest{Name: "  Monitor ", Code: "mon"})
	require.NoError(t, err)
	assert.Equal(t, "Monitor", c.Name)
	assert.Equal(t, "MON", c.Code)
	assert.True(t, c.IsActive)

	_, err = svc.Create(ctx, CreateCategoryRequest{Name: "Monitor 2", Code: "MON"})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	_, err = svc.Create(ctx, CreateCategoryRequest{Name: " ", Code: ""})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "name")
	assert.Contains(t, ae.Fields, "code")
}

func TestUpdateAndDisable(t *testing.T) {
	h := dbtest.Open(t)
	svc := NewService(h.DB)
	ctx := context.Background()
	id := dbtest.SeedCategory(t, h, "Laptop", "LAP", true)
	dbtest.SeedCategory(t, h, "Phone", "PHN", true)

	c, err := svc.Update(ctx, id, UpdateCategoryRequest{Name: "Notebook", Code: "LAP", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "Notebook", c.Name)

	// 値が変わらなくても NotFound にはならない
	_, err = svc.Update(ctx, id, UpdateCategoryRequest{Name: "Notebook", Code: "LAP", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Update(ctx, id, UpdateCategoryRequest{Name: "Notebook", Code: "PHN", IsActive: true})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Update(ctx, 999, UpdateCategoryRequest{Name: "x", Code: "X"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, svc.Disable(ctx, id))
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.True(t, apperr.Is(svc.Disable(ctx, 999), apperr.KindNotFound))
}
