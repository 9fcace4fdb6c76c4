package db

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_inventory_tool/models"
)

func TestCreateClaim_Preconditions(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	mgr := mustUser(t, r, models.RoleManager, "Science", "")
	stu := mustUser(t, r, models.RoleStudent, "Science", "")

	eq := mustItem(t, r, models.CategoryEquipment, 2, mgr.ID)
	sup := mustItem(t, r, models.CategorySupplies, 0, mgr.ID)

	cases := []struct {
		name string
		in   CreateClaimInput
		want error
	}{
		{"missing item", CreateClaimInput{ItemID: 9999, UserID: stu.ID, Quantity: 1}, ErrItemNotFound},
		{"zero quantity", CreateClaimInput{ItemID: eq.ID, UserID: stu.ID, Quantity: 0}, ErrInvalidQuantity},
		{"too many units", CreateClaimInput{ItemID: eq.ID, UserID: stu.ID, Quantity: 3}, ErrInsufficientUnits},
		{"out of stock", CreateClaimInput{ItemID: sup.ID, UserID: stu.ID, Quantity: 1}, ErrOutOfStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.CreateClaim(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := r.UpdateItem(ctx, eq.ID, UpdateItemInput{Status: ptr(models.StatusForRepair)}, mgr.ID)
	require.NoError(t, err)
	_, err = r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: stu.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrEquipmentNotAvailable)
}

func TestCreateClaim_DoesNotReserve(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 2, "m1")

	// 两个申领合计超过库存，创建阶段都接受
	c1, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u1", Quantity: 2})
	require.NoError(t, err)
	c2, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u2", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPending, c1.Status)
	assert.Equal(t, models.ClaimPending, c2.Status)
	assert.Equal(t, 2, reload(t, r, eq.ID).Quantity)
}

func TestDecideClaim_EquipmentSplit(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 5, "m1")

	cl, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "stu-1", Quantity: 2})
	require.NoError(t, err)

	res, err := r.DecideClaim(ctx, cl.ID, "m1", true)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, res.Claim.Status)
	require.NotNil(t, res.Claim.ApprovedBy)
	assert.Equal(t, "m1", *res.Claim.ApprovedBy)
	assert.NotNil(t, res.Claim.DecidedAt)

	parent := reload(t, r, eq.ID)
	assert.Equal(t, 3, parent.Quantity)
	assert.Equal(t, models.StatusAvailable, parent.Status)

	rows := inUseRows(t, r, eq.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)
	assert.Equal(t, models.CategoryEquipment, rows[0].Category)
	require.NotNil(t, rows[0].ClaimedBy)
	assert.Equal(t, "stu-1", *rows[0].ClaimedBy)
	require.NotNil(t, rows[0].ClaimID)
	assert.Equal(t, cl.ID, *rows[0].ClaimID)
	assert.Equal(t, res.InUse.ID, rows[0].ID)
}

func TestDecideClaim_ParentKeptAtZero(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 2, "m1")

	cl, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u1", Quantity: 2})
	require.NoError(t, err)
	_, err = r.DecideClaim(ctx, cl.ID, "m1", true)
	require.NoError(t, err)

	parent := reload(t, r, eq.ID)
	assert.Equal(t, 0, parent.Quantity)

	// claim 仍在，未被级联删除
	got, err := r.GetClaim(ctx, cl.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, got.Status)
}

func TestDecideClaim_SuppliesRunOut(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	sup := mustItem(t, r, models.CategorySupplies, 3, "m1")
	assert.Equal(t, models.StatusInStock, sup.Status)

	cl, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: sup.ID, UserID: "u1", Quantity: 3})
	require.NoError(t, err)
	res, err := r.DecideClaim(ctx, cl.ID, "m1", true)
	require.NoError(t, err)
	assert.Nil(t, res.InUse)

	got := reload(t, r, sup.ID)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, models.StatusOutOfStock, got.Status)
}

func TestDecideClaim_Reject(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 4, "m1")
	cl, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u1", Quantity: 1})
	require.NoError(t, err)

	res, err := r.DecideClaim(ctx, cl.ID, "m1", false)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimRejected, res.Claim.Status)
	assert.Equal(t, 4, reload(t, r, eq.ID).Quantity)
	assert.Empty(t, inUseRows(t, r, eq.ID))
}

func TestDecideClaim_TwiceIsAlreadyDecided(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 5, "m1")
	cl, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u1", Quantity: 2})
	require.NoError(t, err)

	_, err = r.DecideClaim(ctx, cl.ID, "m1", true)
	require.NoError(t, err)

	_, err = r.DecideClaim(ctx, cl.ID, "m1", true)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, 3, reload(t, r, eq.ID).Quantity)
	assert.Len(t, inUseRows(t, r, eq.ID), 1)

	_, err = r.DecideClaim(ctx, 424242, "m1", true)
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestDecideClaim_FailedRevalidationRollsBack(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 3, "m1")
	c1, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u1", Quantity: 2})
	require.NoError(t, err)
	c2, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u2", Quantity: 2})
	require.NoError(t, err)

	_, err = r.DecideClaim(ctx, c1.ID, "m1", true)
	require.NoError(t, err)
	_, err = r.DecideClaim(ctx, c2.ID, "m1", true)
	assert.ErrorIs(t, err, ErrInsufficientUnits)

	got, err := r.GetClaim(ctx, c2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimPending, got.Status)
	assert.Nil(t, got.DecidedAt)
	assert.Equal(t, 1, reload(t, r, eq.ID).Quantity)
}

func TestDecideClaim_ConcurrentApprovalsSerialize(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	eq := mustItem(t, r, models.CategoryEquipment, 3, "m1")
	c1, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u1", Quantity: 2})
	require.NoError(t, err)
	c2, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: eq.ID, UserID: "u2", Quantity: 2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint{c1.ID, c2.ID} {
		wg.Add(1)
		go func(i int, id uint) {
			defer wg.Done()
			_, errs[i] = r.DecideClaim(ctx, id, "m1", true)
		}(i, id)
	}
	wg.Wait()

	var ok, failed int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientUnits)
		failed++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, reload(t, r, eq.ID).Quantity)
	assert.Len(t, inUseRows(t, r, eq.ID), 1)
}

func TestListClaims_Scopes(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	a := mustItem(t, r, models.CategoryEquipment, 5, "m1")
	b := mustItem(t, r, models.CategorySupplies, 5, "m2")

	_, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: a.ID, UserID: "u1", Quantity: 1})
	require.NoError(t, err)
	_, err = r.CreateClaim(ctx, CreateClaimInput{ItemID: b.ID, UserID: "u1", Quantity: 1})
	require.NoError(t, err)
	_, err = r.CreateClaim(ctx, CreateClaimInput{ItemID: b.ID, UserID: "u2", Quantity: 1})
	require.NoError(t, err)

	res, err := r.ListClaims(ctx, ClaimFilter{ManagerID: "m2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	res, err = r.ListClaims(ctx, ClaimFilter{RequestedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	for _, cl := range res.Claims {
		require.NotNil(t, cl.Item)
	}

	res, err = r.ListClaims(ctx, ClaimFilter{Status: models.ClaimApproved})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func ptr[T any](v T) *T { return &v }
