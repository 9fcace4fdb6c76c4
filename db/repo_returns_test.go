package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_inventory_tool/models"
)

// checkout claims qty units of a fresh equipment item for user and returns
// the parent and the in-use row.
func checkout(t *testing.T, r *Repo, total, qty int, user string) (*models.InventoryItem, *models.InventoryItem) {
	t.Helper()
	ctx := context.Background()
	parent := mustItem(t, r, models.CategoryEquipment, total, "m1")
	cl, err := r.CreateClaim(ctx, CreateClaimInput{ItemID: parent.ID, UserID: user, Quantity: qty})
	require.NoError(t, err)
	res, err := r.DecideClaim(ctx, cl.ID, "m1", true)
	require.NoError(t, err)
	require.NotNil(t, res.InUse)
	return parent, res.InUse
}

func TestReturn_MergesIntoAvailableParent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	parent, inUse := checkout(t, r, 5, 2, "stu")
	assert.Equal(t, 3, reload(t, r, parent.ID).Quantity)

	it, err := r.RequestReturn(ctx, inUse.ID, "stu")
	require.NoError(t, err)
	require.NotNil(t, it.ReturnStatus)
	assert.Equal(t, models.ReturnPending, *it.ReturnStatus)
	assert.Equal(t, 2, reload(t, r, inUse.ID).Quantity)

	out, err := r.ApproveReturn(ctx, inUse.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, ReturnMerged, out.Mode)
	assert.Equal(t, parent.ID, out.Available.ID)
	assert.Equal(t, inUse.ID, out.RemovedID)

	assert.Equal(t, 5, reload(t, r, parent.ID).Quantity)
	_, err = r.GetItem(ctx, inUse.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestReturn_ParentNotAvailableRecreates(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	parent, inUse := checkout(t, r, 5, 2, "stu")

	_, err := r.UpdateItem(ctx, parent.ID, UpdateItemInput{Status: ptr(models.StatusForRepair)}, "m1")
	require.NoError(t, err)

	_, err = r.RequestReturn(ctx, inUse.ID, "stu")
	require.NoError(t, err)
	out, err := r.ApproveReturn(ctx, inUse.ID, "m2")
	require.NoError(t, err)

	assert.Equal(t, ReturnRecreated, out.Mode)
	assert.NotEqual(t, parent.ID, out.Available.ID)
	fresh := reload(t, r, out.Available.ID)
	assert.Equal(t, models.CategoryEquipment, fresh.Category)
	assert.Equal(t, models.StatusAvailable, fresh.Status)
	assert.Equal(t, 2, fresh.Quantity)
	assert.Equal(t, "m2", fresh.CreatedBy)
	assert.Nil(t, fresh.ParentItemID)

	p := reload(t, r, parent.ID)
	assert.Equal(t, 3, p.Quantity)
	assert.Equal(t, models.StatusForRepair, p.Status)
	_, err = r.GetItem(ctx, inUse.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestReturn_ParentDeletedRecreates(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	parent, inUse := checkout(t, r, 2, 2, "stu")
	require.NoError(t, r.DeleteItem(ctx, parent.ID))

	_, err := r.RequestReturn(ctx, inUse.ID, "stu")
	require.NoError(t, err)
	out, err := r.ApproveReturn(ctx, inUse.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, ReturnRecreated, out.Mode)
	assert.Equal(t, 2, out.Available.Quantity)
}

func TestReturn_NoParentConvertsInPlace(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	holder := "stu"
	orphan := &models.InventoryItem{
		Name:      "Oscilloscope",
		Category:  models.CategoryEquipment,
		Status:    models.StatusInUse,
		Quantity:  1,
		CreatedBy: "m1",
		ClaimedBy: &holder,
	}
	require.NoError(t, r.DB.Create(orphan).Error)

	_, err := r.RequestReturn(ctx, orphan.ID, holder)
	require.NoError(t, err)
	out, err := r.ApproveReturn(ctx, orphan.ID, "m1")
	require.NoError(t, err)
	assert.Equal(t, ReturnConverted, out.Mode)
	assert.Zero(t, out.RemovedID)

	got := reload(t, r, orphan.ID)
	assert.Equal(t, models.StatusAvailable, got.Status)
	assert.Nil(t, got.ReturnStatus)
	assert.Nil(t, got.ClaimedBy)
	assert.Equal(t, 1, got.Quantity)
}

func TestRequestReturn_Preconditions(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	parent, inUse := checkout(t, r, 3, 1, "stu")

	_, err := r.RequestReturn(ctx, 9999, "stu")
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = r.RequestReturn(ctx, parent.ID, "stu")
	assert.ErrorIs(t, err, ErrNotInUse)

	_, err = r.RequestReturn(ctx, inUse.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotClaimant)

	_, err = r.RequestReturn(ctx, inUse.ID, "stu")
	require.NoError(t, err)
	_, err = r.RequestReturn(ctx, inUse.ID, "stu")
	assert.ErrorIs(t, err, ErrReturnAlreadyPending)
}

func TestApproveReturn_RequiresPending(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	parent, inUse := checkout(t, r, 3, 1, "stu")

	_, err := r.ApproveReturn(ctx, inUse.ID, "m1")
	assert.ErrorIs(t, err, ErrReturnNotPending)
	_, err = r.ApproveReturn(ctx, parent.ID, "m1")
	assert.ErrorIs(t, err, ErrNotInUse)
	_, err = r.ApproveReturn(ctx, 9999, "m1")
	assert.ErrorIs(t, err, ErrItemNotFound)

	// 失败后不动库存
	assert.Equal(t, 2, reload(t, r, parent.ID).Quantity)
	assert.Equal(t, 1, reload(t, r, inUse.ID).Quantity)
}

func TestListPendingReturnsAndMine(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, a := checkout(t, r, 3, 1, "stu")
	_, b := checkout(t, r, 3, 2, "stu")
	_, other := checkout(t, r, 3, 1, "other")

	mine, err := r.ListMyEquipment(ctx, "stu")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = r.RequestReturn(ctx, a.ID, "stu")
	require.NoError(t, err)
	_, err = r.RequestReturn(ctx, other.ID, "other")
	require.NoError(t, err)

	pending, err := r.ListPendingReturns(ctx, "m1")
	require.NoError(t, err)
	ids := []uint{}
	for _, it := range pending {
		ids = append(ids, it.ID)
	}
	assert.ElementsMatch(t, []uint{a.ID, other.ID}, ids)
	assert.NotContains(t, ids, b.ID)

	none, err := r.ListPendingReturns(ctx, "m-unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}
