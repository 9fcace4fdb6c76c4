package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_inventory_tool/models"
)

func TestInvite_RegistrationFlow(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateInvite(ctx, CreateInviteInput{Email: "x@school.test", Token: "t0", Role: "janitor"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	inv, err := r.CreateInvite(ctx, CreateInviteInput{
		Email:      " Ms.Lee@School.test ",
		Token:      "t1",
		Role:       models.RoleManager,
		Department: "Science",
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "ms.lee@school.test", inv.Email)

	got, err := r.GetUsableInvite(ctx, "t1")
	require.NoError(t, err)

	u, err := r.UserFromInvite(ctx, got, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, u.Role)
	assert.Equal(t, "Science", u.Department)

	again, err := r.UserFromInvite(ctx, got, uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID, "existing user is reused")

	require.NoError(t, r.MarkInviteUsed(ctx, "t1"))
	assert.ErrorIs(t, r.MarkInviteUsed(ctx, "t1"), ErrInviteInvalid)
	_, err = r.GetUsableInvite(ctx, "t1")
	assert.ErrorIs(t, err, ErrInviteInvalid)
	_, err = r.GetUsableInvite(ctx, "nope")
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestInvite_Expired(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, err := r.CreateInvite(ctx, CreateInviteInput{Email: "a@b.c", Token: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	_, err = r.GetUsableInvite(ctx, "old")
	assert.ErrorIs(t, err, ErrInviteInvalid)
}

func TestUsers_RoleAndDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	n, err := r.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	u := mustUser(t, r, models.RoleStudent, "", "")
	require.NoError(t, r.SetUserRole(ctx, u.ID, models.RoleAdmin))
	assert.ErrorIs(t, r.SetUserRole(ctx, u.ID, "owner"), ErrInvalidRole)
	assert.ErrorIs(t, r.SetUserRole(ctx, uuid.NewString(), models.RoleStaff), ErrUserNotFound)

	n, err = r.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	res, err := r.ListUsers(ctx, "", models.RoleAdmin, 0, 0)
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, u.ID, res.Users[0].ID)

	require.NoError(t, r.DeleteUserByID(ctx, u.ID))
	assert.ErrorIs(t, r.DeleteUserByID(ctx, u.ID), ErrUserNotFound)
	_, err = r.FindUserByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
