// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package database_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coregx/bishop"
	"github.com/coregx/bishop/plugins/database"
	_ "modernc.org/sqlite" // Pure Go SQLite driver for testing
)

// setupDB creates an in-memory SQLite database for testing.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:") // modernc.org/sqlite uses "sqlite" driver name
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	return db
}

// bishopRequestFrom wraps an *http.Request into a *bishop.Request carrying
// the same context, mirroring what adapter.FromHTTPRequest does without
// pulling in the adapter package's routing machinery for these unit tests.
func bishopRequestFrom(r *http.Request) *bishop.Request {
	return &bishop.Request{Ctx: r.Context()}
}

// Test 1: Middleware stores DB in context.
func TestMiddleware(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)

	var called bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		retrievedDB, ok := database.GetDB(bishopRequestFrom(r))
		if !ok {
			t.Error("database not found in context")
		}
		if retrievedDB != db {
			t.Error("wrong database retrieved from context")
		}
		w.WriteHeader(http.StatusOK)
	})

	h := database.Middleware(db)(inner)

	req := httptest.NewRequest("GET", "/test", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if !called {
		t.Fatal("handler was not invoked")
	}
	if w.Code != 200 {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// Test 2: GetDB returns false if not in context.
func TestGetDB_NotFound(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := database.GetDB(bishopRequestFrom(r))
		if ok {
			t.Error("expected database not found, but got ok=true")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", http.NoBody)
	w := httptest.NewRecorder()
	inner.ServeHTTP(w, req)
}

// Test 3: DB wrapper methods work correctly.
func TestDB_Methods(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	// Test Ping.
	if err := db.Ping(ctx); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}

	// Test DB() returns underlying *sql.DB.
	if db.DB() != sqlDB {
		t.Error("DB() returned wrong *sql.DB")
	}

	// Test Exec - create table and insert in same transaction for sqlite.
	_, err := db.Exec(ctx, `
		CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT);
		INSERT INTO test (name) VALUES ('Alice');
	`)
	if err != nil {
		t.Errorf("Exec() failed: %v", err)
	}

	// Test Query.
	rows, err := db.Query(ctx, "SELECT id, name FROM test")
	if err != nil {
		t.Errorf("Query() failed: %v", err)
	}
	if rows != nil {
		defer rows.Close()

		if !rows.Next() {
			t.Error("expected at least one row")
		}
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			t.Errorf("Scan() failed: %v", err)
		}
		if name != "Alice" {
			t.Errorf("expected name 'Alice', got %q", name)
		}
	}

	// Note: QueryRow is tested in other tests (TestTx_Commit, integration_test).
	// Skipping here due to modernc.org/sqlite connection isolation quirks in memory mode.
}

// Test 4: Transaction commit.
func TestTx_Commit(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	// Create table.
	_, err := db.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatal(err)
	}

	// Start transaction.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Insert within transaction.
	_, err = tx.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "Bob")
	if err != nil {
		t.Fatal(err)
	}

	// Commit.
	if err := tx.Commit(); err != nil {
		t.Errorf("Commit() failed: %v", err)
	}

	// Verify data persisted.
	var count int
	db.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row after commit, got %d", count)
	}
}

// Test 5: Transaction rollback.
func TestTx_Rollback(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatal(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = tx.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "Charlie")
	if err != nil {
		t.Fatal(err)
	}

	// Rollback.
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback() failed: %v", err)
	}

	// Verify data NOT persisted.
	var count int
	db.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 rows after rollback, got %d", count)
	}
}

// Test 6: WithTx helper commits on success.
func TestWithTx_Success(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatal(err)
	}

	// Use WithTx.
	err = database.WithTx(ctx, db, func(tx *database.Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "Dave")
		return err
	})

	if err != nil {
		t.Fatalf("WithTx() failed: %v", err)
	}

	// Verify committed.
	var count int
	db.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row (commit), got %d", count)
	}
}

// Test 7: WithTx helper rolls back on error.
func TestWithTx_Error(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatal(err)
	}

	// Use WithTx with error.
	err = database.WithTx(ctx, db, func(tx *database.Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO test (name) VALUES (?)", "Eve")
		if err != nil {
			return err
		}
		return sql.ErrNoRows // Simulate error.
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// Verify rolled back.
	var count int
	db.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 rows (rollback), got %d", count)
	}
}

// Test 8: TxMiddleware auto-commits on a successful response.
func TestTxMiddleware_Commit(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatal(err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tx, ok := database.GetTx(bishopRequestFrom(r))
		if !ok {
			http.Error(w, "transaction not available", http.StatusInternalServerError)
			return
		}
		if _, err := tx.Exec(r.Context(), "INSERT INTO test (name) VALUES (?)", "Frank"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	h := database.Middleware(db)(database.TxMiddleware(db)(inner))

	req := httptest.NewRequest("POST", "/insert", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Errorf("expected 200, got %d", w.Code)
	}

	// Verify committed.
	var count int
	db.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row (commit), got %d", count)
	}
}

// Test 9: TxMiddleware auto-rolls back on an error response.
func TestTxMiddleware_Rollback(t *testing.T) {
	sqlDB := setupDB(t)
	defer sqlDB.Close()

	db := database.NewDB(sqlDB)
	ctx := context.Background()

	_, err := db.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatal(err)
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tx, ok := database.GetTx(bishopRequestFrom(r))
		if !ok {
			http.Error(w, "transaction not available", http.StatusInternalServerError)
			return
		}
		if _, err := tx.Exec(r.Context(), "INSERT INTO test (name) VALUES (?)", "Grace"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Simulate a rejected request - still rolls back despite the insert.
		http.Error(w, "Intentional error", http.StatusBadRequest)
	})

	h := database.Middleware(db)(database.TxMiddleware(db)(inner))

	req := httptest.NewRequest("POST", "/insert", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Errorf("expected 400, got %d", w.Code)
	}

	// Verify rolled back.
	var count int
	db.QueryRow(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 rows (rollback), got %d", count)
	}
}
