package employees

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/platform/db/dbtest"
)

func TestGet(t *testing.T) {
	h := dbtest.Open(t)
	id := dbtest.SeedEmployee(t, h, "Tanaka", false)

	e, err := Get(context.Background(), h.DB, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Tanaka", e.Name)
	assert.False(t, e.IsActive)

	missing, err := Get(context.Background(), h.DB, id+1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNames_SkipsUnknown(t *testing.T) {
	h := dbtest.Open(t)
	a := dbtest.SeedEmployee(t, h, "A", true)
	b := dbtest.SeedEmployee(t, h, "B", true)

	names, err := Names(context.Background(), h.DB, []int64{a, b, a, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{a: "A", b: "B"}, names)
}
