package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_inventory_tool/models"
)

func TestCreateRequest_Validation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateRequest(ctx, CreateRequestInput{Title: "  ", RequestedBy: "u1"})
	assert.ErrorIs(t, err, ErrMissingName)
	_, err = r.CreateRequest(ctx, CreateRequestInput{Title: "3D printer", Category: "toys", RequestedBy: "u1"})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	req, err := r.CreateRequest(ctx, CreateRequestInput{Title: " 3D printer ", RequestedBy: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "3D printer", req.Title)
	assert.Equal(t, models.RequestOpen, req.Status)
	assert.Zero(t, req.VoteCount)
}

func TestVote_IdempotentPerUser(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	req, err := r.CreateRequest(ctx, CreateRequestInput{Title: "Microscope", RequestedBy: "u1"})
	require.NoError(t, err)

	got, err := r.Vote(ctx, req.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	got, err = r.Vote(ctx, req.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	got, err = r.Vote(ctx, req.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.VoteCount)

	voted, err := r.VotedBy(ctx, "u2", []uint{req.ID, req.ID + 100})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{req.ID: true}, voted)

	got, err = r.Unvote(ctx, req.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	// 没投过票的取消不改变计数
	got, err = r.Unvote(ctx, req.ID, "u3")
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	stored, err := r.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.VoteCount)
}

func TestVote_ClosedOrMissing(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	req, err := r.CreateRequest(ctx, CreateRequestInput{Title: "Easels", RequestedBy: "u1"})
	require.NoError(t, err)

	_, err = r.SetRequestStatus(ctx, req.ID, "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	closed, err := r.SetRequestStatus(ctx, req.ID, models.RequestDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.RequestDeclined, closed.Status)

	_, err = r.Vote(ctx, req.ID, "u2")
	assert.ErrorIs(t, err, ErrRequestClosed)
	_, err = r.Vote(ctx, 4242, "u2")
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = r.SetRequestStatus(ctx, 4242, models.RequestOpen)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestListRequests_Sorting(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	a, err := r.CreateRequest(ctx, CreateRequestInput{Title: "a", RequestedBy: "u1"})
	require.NoError(t, err)
	b, err := r.CreateRequest(ctx, CreateRequestInput{Title: "b", RequestedBy: "u1"})
	require.NoError(t, err)
	c, err := r.CreateRequest(ctx, CreateRequestInput{Title: "c", RequestedBy: "u1"})
	require.NoError(t, err)

	for _, u := range []string{"u1", "u2"} {
		_, err = r.Vote(ctx, a.ID, u)
		require.NoError(t, err)
	}
	_, err = r.Vote(ctx, c.ID, "u1")
	require.NoError(t, err)
	_, err = r.SetRequestStatus(ctx, b.ID, models.RequestAccepted)
	require.NoError(t, err)

	byVotes, err := r.ListRequests(ctx, "", "votes", 0)
	require.NoError(t, err)
	require.Len(t, byVotes, 3)
	assert.Equal(t, a.ID, byVotes[0].ID)
	assert.Equal(t, c.ID, byVotes[1].ID)

	recent, err := r.ListRequests(ctx, "", "recent", 0)
	require.NoError(t, err)
	assert.Equal(t, c.ID, recent[0].ID)

	open, err := r.ListRequests(ctx, models.RequestOpen, "", 0)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}
