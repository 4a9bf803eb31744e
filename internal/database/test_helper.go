package database

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB returns an in-memory sqlite rule database closed at test end
func OpenTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test rule database: %v", err)
	}

	// each pooled connection to :memory: would see its own empty database
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: gdb, driver: DriverSQLite}
	if err := db.EnsureSchema(); err != nil {
		t.Fatalf("prepare rule schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// TruncateRules empties category_rules between tests
func TruncateRules(t *testing.T, db *DB) {
	t.Helper()

	if err := db.Exec("DELETE FROM category_rules").Error; err != nil {
		t.Logf("truncate category_rules: %v", err)
	}
}
