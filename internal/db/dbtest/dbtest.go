// Package dbtest opens isolated in-memory databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"

	"github.com/calledit/calledit/internal/db"
)

// New returns a migrated in-memory sqlite database private to t
func New(t testing.TB) *db.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	d, err := db.Open(sqlite.Open(dsn), "ERROR")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}
