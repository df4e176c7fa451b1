package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/invitebatch/internal/model"
)

func setupTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("db handle: %v", err)
	}
	// :memory: 每个连接一份库
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.OrgRole{}, &model.InviteBatch{}, &model.Invite{}); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }
