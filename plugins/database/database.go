// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package database provides database integration middleware for bishop
// resources served through the adapter package.
//
// This package provides:
//   - DB wrapper for *sql.DB with context support
//   - Middleware to share a database connection across resources
//   - Transaction helpers with auto-commit/rollback
//   - Context integration via GetDB/GetTx, reading bishop.Request.Ctx
//
// Example:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/bishop"
//	    "github.com/coregx/bishop/adapter"
//	    "github.com/coregx/bishop/plugins/database"
//	    _ "github.com/lib/pq" // PostgreSQL driver
//	)
//
//	sqlDB, _ := sql.Open("postgres", dsn)
//	db := database.NewDB(sqlDB)
//
//	router := adapter.New()
//	handler := database.Middleware(db)(router)
//
//	resource := bishop.NewResource(bishop.ResponseTable{
//	    "application/json": func(req *bishop.Request) any {
//	        db := database.MustGetDB(req)
//	        var name string
//	        err := db.QueryRow(req.Ctx, "SELECT name FROM users WHERE id = $1",
//	            adapter.Param(req, "id")).Scan(&name)
//	        if err != nil {
//	            return map[string]any{"status": 500, "body": err.Error()}
//	        }
//	        return name
//	    },
//	})
//	router.GET("/users/:id", resource)
package database

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/coregx/bishop"
)

// contextKey is a private type for storing the database in a request context.
type contextKey int

const (
	dbKey contextKey = iota
	txKey
)

// ErrNotConfigured is returned by GetDBOrError/GetTxOrError when the
// corresponding middleware was never installed ahead of the resource that
// asked for it.
var ErrNotConfigured = errors.New("database: middleware not configured")

// DB wraps a *sql.DB connection with context support.
//
// It provides a thin wrapper around database/sql that integrates with
// bishop's request context (bishop.Request.Ctx) and net/http middleware.
type DB struct {
	db *sql.DB
}

// NewDB creates a new DB wrapper around a *sql.DB connection.
//
// Example:
//
//	sqlDB, err := sql.Open("postgres", dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db := database.NewDB(sqlDB)
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// Middleware returns net/http middleware that stores db in the request
// context, where bishop resources downstream of the adapter.Router can
// recover it from bishop.Request.Ctx via GetDB.
//
// Example:
//
//	db := database.NewDB(sqlDB)
//	handler := database.Middleware(db)(router)
func Middleware(db *DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), dbKey, db)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// GetDB retrieves the database from req.Ctx.
//
// Returns (nil, false) if database middleware was not configured upstream.
//
// Example:
//
//	db, ok := database.GetDB(req)
//	if !ok {
//	    return nil, errors.New("database not configured")
//	}
func GetDB(req *bishop.Request) (*DB, bool) {
	if req == nil || req.Ctx == nil {
		return nil, false
	}
	db, ok := req.Ctx.Value(dbKey).(*DB)
	return db, ok
}

// MustGetDB retrieves the database from req.Ctx or panics.
//
// This is a convenience helper for resources where a database is required.
// Panics with a descriptive message if database middleware is not configured.
//
// Use this where database absence indicates a programming error (i.e.
// middleware misconfiguration), not a runtime error.
//
// For production APIs with proper error handling, use GetDBOrError() instead.
func MustGetDB(req *bishop.Request) *DB {
	db, ok := GetDB(req)
	if !ok {
		panic("database: middleware not configured - ensure database.Middleware(db) wraps the router")
	}
	return db
}

// GetDBOrError retrieves the database from req.Ctx, or returns
// ErrNotConfigured if database middleware was not configured upstream.
//
// This is the recommended approach for production APIs, where a resource
// callback can translate the error into a 500 response through the normal
// decision-engine error path.
func GetDBOrError(req *bishop.Request) (*DB, error) {
	db, ok := GetDB(req)
	if !ok {
		return nil, ErrNotConfigured
	}
	return db, nil
}

// DB returns the underlying *sql.DB connection.
//
// This is useful when you need to access the raw database/sql API.
//
// Example:
//
//	stats := db.DB().Stats()
func (d *DB) DB() *sql.DB {
	return d.db
}

// Ping verifies a connection to the database is still alive.
//
// Example:
//
//	if err := db.Ping(ctx); err != nil {
//	    log.Fatal("Database connection lost:", err)
//	}
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection.
//
// It is rare to Close a DB, as the DB handle is meant to be
// long-lived and shared between many goroutines.
func (d *DB) Close() error {
	return d.db.Close()
}

// Exec executes a query without returning rows.
//
// Example:
//
//	result, err := db.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
//	if err != nil {
//	    return err
//	}
//	rowsAffected, _ := result.RowsAffected()
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
//
// Example:
//
//	rows, err := db.Query(ctx, "SELECT id, name FROM users")
//	if err != nil {
//	    return err
//	}
//	defer rows.Close()
//
//	for rows.Next() {
//	    var id int
//	    var name string
//	    rows.Scan(&id, &name)
//	}
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that is expected to return at most one row.
//
// Example:
//
//	var user User
//	err := db.QueryRow(ctx, "SELECT id, name FROM users WHERE id = $1", userID).
//	    Scan(&user.ID, &user.Name)
//	if err == sql.ErrNoRows {
//	    return ErrNotFound
//	}
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}
