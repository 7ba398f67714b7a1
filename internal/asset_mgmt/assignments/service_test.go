package assignments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AMS-backend/internal/asset_mgmt/history"
	"AMS-backend/internal/asset_mgmt/lifecycle"
	"AMS-backend/internal/platform/apperr"
	"AMS-backend/internal/platform/db"
	"AMS-backend/internal/platform/db/dbtest"
)

type fixture struct {
	h       *db.Handle
	m       *Manager
	emp     int64
	manager int64
	asset   int64
}

func setup(t *testing.T) fixture {
	t.Helper()
	h := dbtest.Open(t)
	return fixture{
		h:       h,
		m:       NewManager(h, history.NewRecorder(h.DB)),
		emp:     dbtest.SeedEmployee(t, h, "Employee", true),
		manager: dbtest.SeedEmployee(t, h, "Manager", true),
		asset:   dbtest.SeedAsset(t, h, "AST0001", "available"),
	}
}

func ptr[T any](v T) *T { return &v }

func (fx fixture) assign(t *testing.T) *AssignmentResponse {
	t.Helper()
	res, err := fx.m.CreateAssignment(context.Background(), CreateAssignmentRequest{
		AssetID:      &fx.asset,
		EmployeeID:   &fx.emp,
		AssignedBy:   &fx.manager,
		AssignedDate: ptr("2024-01-10"),
		Notes:        ptr("laptop for onboarding"),
	})
	require.NoError(t, err)
	return res
}

func historyActions(t *testing.T, h *db.Handle, assetID int64) []string {
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
	require.NoError(t, rows.Err())
	return out
}

func TestCreateAssignment_MarksAssetAssigned(t *testing.T) {
	fx := setup(t)

	res := fx.assign(t)

	assert.Equal(t, "assigned", res.Status)
	assert.Equal(t, "2024-01-10", res.AssignedDate)
	assert.Len(t, res.AssignmentULID, 26)
	assert.Equal(t, "assigned", dbtest.AssetStatus(t, fx.h, fx.asset))
	dbtest.RequireInvariant(t, fx.h, fx.asset)
	assert.Equal(t, []string{"assigned"}, historyActions(t, fx.h, fx.asset))
}

func TestCreateAssignment_ValidationPerField(t *testing.T) {
	fx := setup(t)

	_, err := fx.m.CreateAssignment(context.Background(), CreateAssignmentRequest{
		AssetID:      &fx.asset,
		AssignedDate: ptr("10/01/2024"),
	})
	require.Error(t, err)
	ae := err.(*apperr.Error)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "employee_id")
	assert.Contains(t, ae.Fields, "assigned_by")
	assert.Contains(t, ae.Fields, "assigned_date")
	assert.NotContains(t, ae.Fields, "asset_id")
}

func TestCreateAssignment_NotFoundAndConflict(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	inactive := dbtest.SeedEmployee(t, fx.h, "Left", false)
	maint := dbtest.SeedAsset(t, fx.h, "AST0002", "maintenance")

	tests := []struct {
		name  string
		asset int64
		emp   int64
		by    int64
		kind  apperr.Kind
	}{
		{"unknown asset", 999, fx.emp, fx.manager, apperr.KindNotFound},
		{"unknown employee", fx.asset, 999, fx.manager, apperr.KindNotFound},
		{"unknown assigner", fx.asset, fx.emp, 999, apperr.KindNotFound},
		{"asset not available", maint, fx.emp, fx.manager, apperr.KindConflict},
		{"inactive employee", fx.asset, inactive, fx.manager, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.m.CreateAssignment(ctx, CreateAssignmentRequest{
				AssetID: &tt.asset, EmployeeID: &tt.emp, AssignedBy: &tt.by,
			})
			assert.Equal(t, tt.kind, apperr.KindOf(err), "%v", err)
		})
	}

	// 失敗は何も残さない
	assert.Equal(t, 0, dbtest.Count(t, fx.h, `SELECT COUNT(*) FROM assignments`))
	assert.Equal(t, 0, dbtest.Count(t, fx.h, `SELECT COUNT(*) FROM asset_history`))
	dbtest.RequireInvariant(t, fx.h, fx.asset)
}

func TestCreateAssignment_SecondOnAssignedAssetConflicts(t *testing.T) {
	fx := setup(t)
	fx.assign(t)
	other := dbtest.SeedEmployee(t, fx.h, "Other", true)

	_, err := fx.m.CreateAssignment(context.Background(), CreateAssignmentRequest{
		AssetID: &fx.asset, EmployeeID: &other, AssignedBy: &fx.manager,
	})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, dbtest.OpenAssignments(t, fx.h, fx.asset))
}

func TestCreateAssignment_ConcurrentCallsExactlyOneWins(t *testing.T) {
	fx := setup(t)
	other := dbtest.SeedEmployee(t, fx.h, "Other", true)
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i, emp := range []int64{fx.emp, other} {
		wg.Add(1)
		go func(i int, emp int64) {
			defer wg.Done()
			<-start
			_, errs[i] = fx.m.CreateAssignment(ctx, CreateAssignmentRequest{
				AssetID: &fx.asset, EmployeeID: &emp, AssignedBy: &fx.manager,
			})
		}(i, emp)
	}
	close(start)
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, dbtest.OpenAssignments(t, fx.h, fx.asset))
	dbtest.RequireInvariant(t, fx.h, fx.asset)
}

func TestOpenAssignmentUniqueness_IsEnforcedByStorage(t *testing.T) {
	fx := setup(t)
	fx.assign(t)
	ctx := context.Background()

	// 資産ステータスのチェックを飛ばして直接 INSERT しても制約で止まる
	err := db.RunInTx(ctx, fx.h.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		now := db.NewTimestamp(time.Now())
		return fx.m.store.InsertTx(ctx, tx, &Assignment{
			ULID:         "01HZZZZZZZZZZZZZZZZZZZZZZZ",
			AssetID:      fx.asset,
			EmployeeID:   fx.emp,
			AssignedBy:   fx.manager,
			AssignedDate: db.NewDate(time.Now()),
			Status:       lifecycle.AssignmentAssigned,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	})
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKey(err))
	assert.True(t, apperr.Is(apperr.FromStorage(err, conflictOpenAssignment), apperr.KindConflict))

	// 閉じた貸出は何件あってもよい
	_, err = fx.h.Exec(`UPDATE assignments SET status = 'returned' WHERE asset_id = ?`, fx.asset)
	require.NoError(t, err)
	_, err = fx.h.Exec(`INSERT INTO assignments
		(assignment_ulid, asset_id, employee_id, assigned_by, assigned_date, status, created_at, updated_at)
		VALUES ('01HYYYYYYYYYYYYYYYYYYYYYYY', ?, ?, ?, '2024-01-01', 'returned', '2024-01-01 00:00:00', '2024-01-01 00:00:00')`,
		fx.asset, fx.emp, fx.manager)
	require.NoError(t, err)
}

func TestReturnAsset_Flow(t *testing.T) {
	fx := setup(t)
	created := fx.assign(t)
	ctx := context.Background()

	res, err := fx.m.ReturnAsset(ctx, ReturnAssetRequest{
		EmployeeID: &fx.emp,
		AssetID:    &fx.asset,
		ReturnDate: ptr("2024-02-01"),
		Condition:  ptr("good"),
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, res.ID)
	assert.Equal(t, "returned", res.Status)
	assert.Equal(t, "2024-02-01", *res.ReturnDate)
	assert.Equal(t, "good", *res.ReturnCondition)
	// メモ未指定なら元のメモを残す
	assert.Equal(t, "laptop for onboarding", *res.Notes)
	assert.Equal(t, "available", dbtest.AssetStatus(t, fx.h, fx.asset))
	dbtest.RequireInvariant(t, fx.h, fx.asset)
	assert.Equal(t, []string{"assigned", "returned"}, historyActions(t, fx.h, fx.asset))

	// 返却後はまた貸し出せる
	fx.assign(t)
	dbtest.RequireInvariant(t, fx.h, fx.asset)
}

func TestReturnAsset_Errors(t *testing.T) {
	fx := setup(t)
	fx.assign(t)
	other := dbtest.SeedEmployee(t, fx.h, "Other", true)
	ctx := context.Background()

	_, err := fx.m.ReturnAsset(ctx, ReturnAssetRequest{AssetID: &fx.asset, Condition: ptr("mint")})
	require.Error(t, err)
	fields := err.(*apperr.Error).Fields
	assert.Contains(t, fields, "employee_id")
	assert.Contains(t, fields, "return_date")
	assert.Contains(t, fields, "condition")

	_, err = fx.m.ReturnAsset(ctx, ReturnAssetRequest{
		EmployeeID: &other, AssetID: &fx.asset, ReturnDate: ptr("2024-02-01"), Condition: ptr("good"),
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = fx.m.ReturnAsset(ctx, ReturnAssetRequest{
		EmployeeID: &fx.emp, AssetID: &fx.asset, ReturnDate: ptr("2023-12-31"), Condition: ptr("good"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.Equal(t, "assigned", dbtest.AssetStatus(t, fx.h, fx.asset))
	dbtest.RequireInvariant(t, fx.h, fx.asset)
}

func TestUpdateAssignment_ClosingMovesAsset(t *testing.T) {
	tests := []struct {
		status string
		asset  string
		action string
		cond   string
	}{
		{"returned", "available", "returned", "good"},
		{"damaged", "maintenance", "maintenance", "damaged"},
		{"lost", "retired", "retired", "lost"},
		{"stolen", "retired", "retired", "stolen"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			fx := setup(t)
			a := fx.assign(t)

			res, err := fx.m.UpdateAssignment(context.Background(), a.ID, UpdateAssignmentRequest{Status: ptr(tt.status)})
			require.NoError(t, err)

			assert.Equal(t, tt.status, res.Status)
			require.NotNil(t, res.ReturnDate)
			assert.Equal(t, tt.cond, *res.ReturnCondition)
			assert.Equal(t, tt.asset, dbtest.AssetStatus(t, fx.h, fx.asset))
			dbtest.RequireInvariant(t, fx.h, fx.asset)
			assert.Equal(t, []string{"assigned", tt.action}, historyActions(t, fx.h, fx.asset))
		})
	}
}

func TestUpdateAssignment_Rules(t *testing.T) {
	fx := setup(t)
	a := fx.assign(t)
	ctx := context.Background()

	// 貸出中のまま返却項目だけは入れられない
	_, err := fx.m.UpdateAssignment(ctx, a.ID, UpdateAssignmentRequest{ReturnDate: ptr("2024-02-01")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// メモだけの更新は updated 履歴
	res, err := fx.m.UpdateAssignment(ctx, a.ID, UpdateAssignmentRequest{Notes: ptr("charger included")})
	require.NoError(t, err)
	assert.Equal(t, "charger included", *res.Notes)
	assert.Equal(t, "assigned", res.Status)

	_, err = fx.m.UpdateAssignment(ctx, a.ID, UpdateAssignmentRequest{Status: ptr("returned"), ReturnDate: ptr("2024-03-01")})
	require.NoError(t, err)

	_, err = fx.m.UpdateAssignment(ctx, a.ID, UpdateAssignmentRequest{Status: ptr("assigned")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = fx.m.UpdateAssignment(ctx, a.ID, UpdateAssignmentRequest{Status: ptr("borrowed")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = fx.m.UpdateAssignment(ctx, 999, UpdateAssignmentRequest{Notes: ptr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	dbtest.RequireInvariant(t, fx.h, fx.asset)
	assert.Equal(t, []string{"assigned", "updated", "returned"}, historyActions(t, fx.h, fx.asset))
}

func TestDeleteAssignment_ResetsAssetWhenOpen(t *testing.T) {
	fx := setup(t)
	a := fx.assign(t)
	ctx := context.Background()

	require.NoError(t, fx.m.DeleteAssignment(ctx, a.ID, &fx.manager))

	assert.Equal(t, "available", dbtest.AssetStatus(t, fx.h, fx.asset))
	assert.Equal(t, 0, dbtest.Count(t, fx.h, `SELECT COUNT(*) FROM assignments`))
	dbtest.RequireInvariant(t, fx.h, fx.asset)
	assert.Equal(t, []string{"assigned", "updated"}, historyActions(t, fx.h, fx.asset))

	err := fx.m.DeleteAssignment(ctx, a.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetAndList(t *testing.T) {
	fx := setup(t)
	a := fx.assign(t)
	ctx := context.Background()

	byULID, err := fx.m.Get(ctx, a.AssignmentULID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byULID.ID)

	byID, err := fx.m.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, a.AssignmentULID, byID.AssignmentULID)

	_, err = fx.m.Get(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	open, err := fx.m.List(ctx, Filter{AssetID: &fx.asset, OpenOnly: true}, Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, open.Total)
	assert.Equal(t, -1, open.NextOffset)

	returned := lifecycle.AssignmentReturned
	none, err := fx.m.List(ctx, Filter{Status: &returned}, Page{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, none.Total)
	assert.Empty(t, none.Items)
}
