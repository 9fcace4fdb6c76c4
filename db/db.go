package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"school_inventory_tool/config"
	"school_inventory_tool/models"
	"school_inventory_tool/observability"
)

// Open connects to Postgres with the configured pool limits. The pool size
// bounds request concurrency; exhausted pools block until a connection frees.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: observability.NewGormLogger(log, time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connected", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return gdb, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Credential{}, &models.Invite{},
		&models.InventoryItem{}, &models.InventoryClaim{}, &models.StatusHistory{},
		&models.ItemRequest{}, &models.ItemRequestVote{},
	); err != nil {
		return err
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	// 待审批的申领按物品查询
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_pending_by_item
	  ON %s (item_id, created_at)
	  WHERE status = 'pending';
	`, models.ClaimTable, models.ClaimTable)).Error; err != nil {
		return err
	}

	// 待确认归还
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_pending_return
	  ON %s (created_by, updated_at)
	  WHERE return_status = 'pending';
	`, models.ItemTable, models.ItemTable)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s ADD CONSTRAINT %s_quantity_nonneg CHECK (quantity >= 0);
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.ItemTable, models.ItemTable)).Error; err != nil {
		return err
	}
	return nil
}
