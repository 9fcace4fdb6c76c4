package db

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"school_inventory_tool/models"
)

// openTestDB opens a private in-memory sqlite database. One connection means
// transactions run one at a time, standing in for Postgres row locks.
func openTestDB(t require.TestingT) (*Repo, func()) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:  logger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(gdb))
	return NewRepo(gdb), func() { _ = sqlDB.Close() }
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, closeFn := openTestDB(t)
	t.Cleanup(closeFn)
	return r
}

func mustUser(t require.TestingT, r *Repo, role, dept, course string) *models.User {
	u := &models.User{
		ID:         uuid.NewString(),
		Username:   uuid.NewString()[:8] + "@school.test",
		Role:       role,
		Department: dept,
		Course:     course,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func mustItem(t require.TestingT, r *Repo, category string, qty int, owner string) *models.InventoryItem {
	it, err := r.CreateItem(context.Background(), CreateItemInput{
		Name:      "item",
		Category:  category,
		Quantity:  qty,
		CreatedBy: owner,
	})
	require.NoError(t, err)
	return it
}

func reload(t require.TestingT, r *Repo, id uint) *models.InventoryItem {
	it, err := r.GetItem(context.Background(), id)
	require.NoError(t, err)
	return it
}

func inUseRows(t require.TestingT, r *Repo, parentID uint) []models.InventoryItem {
	var rows []models.InventoryItem
	require.NoError(t, r.DB.Where("parent_item_id = ? AND status = ?", parentID, models.StatusInUse).
		Order("id").Find(&rows).Error)
	return rows
}
