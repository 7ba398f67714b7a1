package assets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/asset_mgmt/assignments"
	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
	"AMS-backend/internal/platform/db/dbtest"
)

func newRegistry(t *testing.T) (*db.Handle, *Registry) {
	t.Helper()
	h := dbtest.Open(t)
	rec := history.NewRecorder(h.DB)
	return h, NewRegistry(h, rec, assignments.NewManager(h, rec))
}

func ptr[T any](v T) *T { return &v }

func create(t *testing.T, reg *Registry, in CreateAssetRequest) *AssetResponse {
	t.Helper()
	res, err := reg.Create(context.Background(), in)
	require.NoError(t, err)
	return res
}

func actions(t *testing.T, h *db.Handle, assetID int64) []string {
	t.Helper()
	rows, err := h.Query(`SELECT action_type FROM asset_history WHERE asset_id = ? ORDER BY id`, assetID)
	require.NoError(t, err)
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	return out
}

func TestCreate_GeneratesTagFromMaximum(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty table", nil, "AST0001"},
		{"after AST0001", []string{"AST0001"}, "AST0002"},
		{"gap is not filled", []string{"AST0001", "AST0003"}, "AST0004"},
		{"foreign tags ignored", []string{"AST0007", "LAPTOP-99", "AST12X", "ast0100"}, "AST0008"},
		{"grows past four digits", []string{"AST9999"}, "AST10000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, reg := newRegistry(t)
			for _, tag := range tt.existing {
				dbtest.SeedAsset(t, h, tag, "available")
			}
			res := create(t, reg, CreateAssetRequest{Name: "Laptop"})
			assert.Equal(t, tt.want, res.AssetTag)
		})
	}
}

func TestCreate_ReusesDeletedMaximumTag(t *testing.T) {
	_, reg := newRegistry(t)
	create(t, reg, CreateAssetRequest{Name: "A"})
	b := create(t, reg, CreateAssetRequest{Name: "B"})
	require.Equal(t, "AST0002", b.AssetTag)

	require.NoError(t, reg.Delete(context.Background(), b.ID))

	c := create(t, reg, CreateAssetRequest{Name: "C"})
	assert.Equal(t, "AST0002", c.AssetTag)
}

func TestCreate_SuppliedTagConflict(t *testing.T) {
	h, reg := newRegistry(t)
	dbtest.SeedAsset(t, h, "AST0042", "available")

	_, err := reg.Create(context.Background(), CreateAssetRequest{Name: "Dup", AssetTag: ptr(" ast0042 ")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	res := create(t, reg, CreateAssetRequest{Name: "Own tag", AssetTag: ptr("AST0100")})
	assert.Equal(t, "AST0100", res.AssetTag)
	assert.Equal(t, 2, dbtest.Count(t, h, `SELECT COUNT(*) FROM assets`))
}

func TestCreate_AppendsCreatedHistory(t *testing.T) {
	h, reg := newRegistry(t)
	cat := dbtest.SeedCategory(t, h, "Laptops", "LAP", true)

	res := create(t, reg, CreateAssetRequest{
		Name:         "ThinkPad",
		CategoryID:   &cat,
		PurchaseDate: ptr("2023-04-01"),
		PurchaseCost: ptr(1200.5),
		Branch:       ptr("Tokyo"),
		Status:       ptr("maintenance"),
	})

	assert.Equal(t, "maintenance", res.Status)
	assert.Equal(t, "2023-04-01", *res.PurchaseDate)
	assert.Equal(t, 1200.5, *res.PurchaseCost)
	assert.Equal(t, []string{"created"}, actions(t, h, res.ID))
	dbtest.RequireInvariant(t, h, res.ID)
}

func TestCreate_WithInitialAssignmentIsAtomic(t *testing.T) {
	h, reg := newRegistry(t)
	emp := dbtest.SeedEmployee(t, h, "Suzuki", true)
	mgr := dbtest.SeedEmployee(t, h, "Boss", true)

	res := create(t, reg, CreateAssetRequest{
		Name:       "Phone",
		Status:     ptr("assigned"),
		EmployeeID: &emp,
		AssignedBy: &mgr,
	})
	assert.Equal(t, "assigned", res.Status)
	assert.Equal(t, "assigned", dbtest.AssetStatus(t, h, res.ID))
	dbtest.RequireInvariant(t, h, res.ID)
	assert.Equal(t, []string{"assigned"}, actions(t, h, res.ID))

	got, err := reg.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentAssignment)
	assert.Equal(t, emp, got.CurrentAssignment.EmployeeID)

	// 初期貸出が失敗したら資産も残らない
	missing := int64(999)
	_, err = reg.Create(context.Background(), CreateAssetRequest{
		Name: "Tablet", Status: ptr("assigned"), EmployeeID: &missing, AssignedBy: &mgr,
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, 1, dbtest.Count(t, h, `SELECT COUNT(*) FROM assets`))
	assert.Equal(t, 1, dbtest.Count(t, h, `SELECT COUNT(*) FROM asset_history`))
}

func TestCreate_Validation(t *testing.T) {
	h, reg := newRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, CreateAssetRequest{Status: ptr("scrapped"), PurchaseDate: ptr("yesterday")})
	require.Error(t, err)
	fields := err.(*apperr.Error).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "purchase_date")

	_, err = reg.Create(ctx, CreateAssetRequest{Name: "X", Status: ptr("assigned")})
	require.Error(t, err)
	assert.Contains(t, err.(*apperr.Error).Fields, "employee_id")

	_, err = reg.Create(ctx, CreateAssetRequest{Name: "X", CategoryID: ptr(int64(77))})
	require.Error(t, err)
	assert.Contains(t, err.(*apperr.Error).Fields, "category_id")

	assert.Equal(t, 0, dbtest.Count(t, h, `SELECT COUNT(*) FROM assets`))
}

func TestUpdate_FieldsAndHistory(t *testing.T) {
	h, reg := newRegistry(t)
	ctx := context.Background()
	a := create(t, reg, CreateAssetRequest{Name: "Monitor", Location: ptr("3F")})

	res, err := reg.Update(ctx, a.ID, UpdateAssetRequest{Location: ptr("4F"), Notes: ptr("moved")})
	require.NoError(t, err)
	assert.Equal(t, "4F", *res.Location)
	assert.Equal(t, a.AssetTag, res.AssetTag)

	res, err = reg.Update(ctx, a.ID, UpdateAssetRequest{Status: ptr("maintenance")})
	require.NoError(t, err)
	assert.Equal(t, "maintenance", res.Status)

	res, err = reg.Update(ctx, a.ID, UpdateAssetRequest{Status: ptr("available")})
	require.NoError(t, err)
	assert.Equal(t, "available", res.Status)

	assert.Equal(t, []string{"created", "updated", "maintenance", "updated"}, actions(t, h, a.ID))

	var oldValue, newValue string
	require.NoError(t, h.QueryRow(`SELECT old_value, new_value FROM asset_history
		WHERE asset_id = ? AND action_type = 'maintenance'`, a.ID).Scan(&oldValue, &newValue))
	assert.Contains(t, oldValue, `"status":"available"`)
	assert.Contains(t, newValue, `"status":"maintenance"`)
}

func TestUpdate_StatusGuards(t *testing.T) {
	h, reg := newRegistry(t)
	ctx := context.Background()
	emp := dbtest.SeedEmployee(t, h, "E", true)
	assigned := create(t, reg, CreateAssetRequest{Name: "Assigned", Status: ptr("assigned"), EmployeeID: &emp, AssignedBy: &emp})
	plain := create(t, reg, CreateAssetRequest{Name: "Plain"})

	tests := []struct {
		name string
		id   int64
		req  UpdateAssetRequest
		kind apperr.Kind
	}{
		{"tag is immutable", plain.ID, UpdateAssetRequest{AssetTag: ptr("AST9999")}, apperr.KindValidation},
		{"assigned via patch", plain.ID, UpdateAssetRequest{Status: ptr("assigned")}, apperr.KindValidation},
		{"scrapped via patch", plain.ID, UpdateAssetRequest{Status: ptr("scrapped")}, apperr.KindValidation},
		{"unknown status", plain.ID, UpdateAssetRequest{Status: ptr("lost")}, apperr.KindValidation},
		{"blank name", plain.ID, UpdateAssetRequest{Name: ptr(" ")}, apperr.KindValidation},
		{"open assignment", assigned.ID, UpdateAssetRequest{Status: ptr("maintenance")}, apperr.KindConflict},
		{"missing asset", 999, UpdateAssetRequest{Notes: ptr("x")}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Update(ctx, tt.id, tt.req)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "%v", err)
		})
	}

	// retired は終端
	_, err := reg.Update(ctx, plain.ID, UpdateAssetRequest{Status: ptr("retired")})
	require.NoError(t, err)
	_, err = reg.Update(ctx, plain.ID, UpdateAssetRequest{Status: ptr("available")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	// 同じステータスの指定は変更扱いしない
	_, err = reg.Update(ctx, assigned.ID, UpdateAssetRequest{Notes: ptr("ok")})
	require.NoError(t, err)
	dbtest.RequireInvariant(t, h, assigned.ID)
	dbtest.RequireInvariant(t, h, plain.ID)
}

func TestDelete_Cascades(t *testing.T) {
	h, reg := newRegistry(t)
	ctx := context.Background()
	emp := dbtest.SeedEmployee(t, h, "E", true)
	a := create(t, reg, CreateAssetRequest{Name: "Assigned", Status: ptr("assigned"), EmployeeID: &emp, AssignedBy: &emp})
	keep := create(t, reg, CreateAssetRequest{Name: "Keep"})

	require.NoError(t, reg.Delete(ctx, a.ID))

	assert.Equal(t, 0, dbtest.Count(t, h, `SELECT COUNT(*) FROM assignments WHERE asset_id = ?`, a.ID))
	assert.Equal(t, 0, dbtest.Count(t, h, `SELECT COUNT(*) FROM asset_history WHERE asset_id = ?`, a.ID))
	assert.Equal(t, 1, dbtest.Count(t, h, `SELECT COUNT(*) FROM asset_history WHERE asset_id = ?`, keep.ID))

	err := reg.Delete(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = reg.GetByID(ctx, a.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestList_Filters(t *testing.T) {
	h, reg := newRegistry(t)
	ctx := context.Background()
	cat := dbtest.SeedCategory(t, h, "Phones", "PHN", true)
	create(t, reg, CreateAssetRequest{Name: "A", Branch: ptr("Osaka"), CategoryID: &cat})
	create(t, reg, CreateAssetRequest{Name: "B", Branch: ptr("Tokyo"), Status: ptr("maintenance")})
	c := create(t, reg, CreateAssetRequest{Name: "C", Branch: ptr("Tokyo")})
	_, err := reg.Update(ctx, c.ID, UpdateAssetRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	all, err := reg.List(ctx, Filter{}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total, "inactive assets are hidden by default")

	withInactive, err := reg.List(ctx, Filter{IncludeInactive: true}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, withInactive.Total)

	tokyo := "Tokyo"
	byBranch, err := reg.List(ctx, Filter{Branch: &tokyo}, Page{})
	require.NoError(t, err)
	require.Len(t, byBranch.Items, 1)
	assert.Equal(t, "B", byBranch.Items[0].Name)

	maint := lifecycle.AssetMaintenance
	byStatus, err := reg.List(ctx, Filter{Status: &maint}, Page{})
	require.NoError(t, err)
	assert.Len(t, byStatus.Items, 1)

	byCat, err := reg.List(ctx, Filter{CategoryID: &cat}, Page{})
	require.NoError(t, err)
	require.Len(t, byCat.Items, 1)
	assert.Equal(t, "A", byCat.Items[0].Name)

	paged, err := reg.List(ctx, Filter{IncludeInactive: true}, Page{Limit: 2, Order: "asc"})
	require.NoError(t, err)
	assert.Len(t, paged.Items, 2)
	assert.Equal(t, 2, paged.NextOffset)
	assert.Equal(t, "A", paged.Items[0].Name)
}
