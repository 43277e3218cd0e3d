package sqlstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlstore "github.com/goliatone/go-session/store/sql"
)

func TestOpenSQLite_ConnectsAndQueries(t *testing.T) {
	dsn := fmt.Sprintf("file:open_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := sqlstore.OpenSQLite(context.Background(), dsn, sqlstore.OpenOptions{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var result int
	if err := db.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
		t.Fatalf("query: %v", err)
	}
	if result != 1 {
		t.Fatalf("expected 1, got %d", result)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromDB(db)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if factory.StateStore() == nil || factory.EventStore() == nil {
		t.Fatalf("expected stores from opened handle")
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), "oracle", "dsn", sqlstore.OpenOptions{}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestOpen_RequiresDSN(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, "   ", sqlstore.OpenOptions{}); err == nil {
		t.Fatalf("expected error for blank dsn")
	}
}
