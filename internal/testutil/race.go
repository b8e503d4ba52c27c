package testutil

import (
	"testing"

	"gorm.io/gorm"
)

// CompeteBeforeCreate runs query once, on the same connection, right before
// the next INSERT into table. It stands in for a concurrent writer that wins
// the race after the caller's existence checks have passed.
func CompeteBeforeCreate(t *testing.T, db *gorm.DB, table, query string, args ...interface{}) {
	hook := "testutil:compete_create_" + table
	err := db.Callback().Create().Before("gorm:create").Register(hook, competitor(t, table, query, args))
	if err != nil {
		t.Fatalf("Failed to register create hook: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Create().Remove(hook) })
}

// CompeteBeforeUpdate is CompeteBeforeCreate for the next UPDATE of table.
func CompeteBeforeUpdate(t *testing.T, db *gorm.DB, table, query string, args ...interface{}) {
	hook := "testutil:compete_update_" + table
	err := db.Callback().Update().Before("gorm:update").Register(hook, competitor(t, table, query, args))
	if err != nil {
		t.Fatalf("Failed to register update hook: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Update().Remove(hook) })
}

func competitor(t *testing.T, table, query string, args []interface{}) func(*gorm.DB) {
	fired := false
	return func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(query, args...).Error; err != nil {
			t.Errorf("Competing write failed: %v", err)
		}
	}
}
