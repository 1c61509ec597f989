package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type note struct {
	ID   int
	Body string
}

type ctxKey struct{}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := conn.AutoMigrate(&note{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	//nolint:staticcheck // nil context returns the raw connection
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestTransactionCommitsAndRollsBack(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()

	if err := base.Transaction(ctx, func(tx Base) error {
		return tx.DB(ctx).Create(&note{Body: "kept"}).Error
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err := base.Transaction(ctx, func(tx Base) error {
		if err := tx.DB(ctx).Create(&note{Body: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	if err := base.DB(ctx).Model(&note{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only committed row, got %d", count)
	}
}

func TestAffected(t *testing.T) {
	base := NewBase(newTestDB(t))
	ctx := context.Background()
	if err := base.DB(ctx).Create(&note{ID: 1, Body: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := Affected(base.DB(ctx).Model(&note{}).Where("id = ?", 1).Update("body", "b")); err != nil {
		t.Fatalf("expected update to affect a row: %v", err)
	}
	err := Affected(base.DB(ctx).Model(&note{}).Where("id = ?", 99).Update("body", "c"))
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
