// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/coregx/bishop"
)

// Tx wraps a *sql.Tx transaction with context support.
//
// Transactions provide ACID guarantees for database operations.
// All operations within a transaction are atomic - they either
// all succeed (commit) or all fail (rollback).
type Tx struct {
	tx *sql.Tx
}

// BeginTx starts a new database transaction.
//
// The provided context is used until the transaction is committed or rolled back.
// If the context is canceled, the sql package will roll back the transaction.
//
// Example:
//
//	tx, err := db.BeginTx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // Rollback if not committed
//
//	// ... perform operations ...
//
//	return tx.Commit()
func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
//
// Returns an error if the transaction has already been committed or rolled back.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
//
// Rollback is safe to call even if the transaction has already been committed.
// In that case, it returns sql.ErrTxDone.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Exec executes a query without returning rows within the transaction.
//
// Example:
//
//	_, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES ($1)", "Alice")
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows within the transaction.
//
// Example:
//
//	rows, err := tx.Query(ctx, "SELECT id, name FROM users")
//	if err != nil {
//	    return err
//	}
//	defer rows.Close()
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row within the transaction.
//
// Example:
//
//	var name string
//	err := tx.QueryRow(ctx, "SELECT name FROM users WHERE id = $1", userID).Scan(&name)
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// WithTx executes a function within a database transaction.
//
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
//
// This is a convenience helper that handles transaction lifecycle automatically.
//
// Example:
//
//	err := database.WithTx(ctx, db, func(tx *database.Tx) error {
//	    _, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES ($1)", "Bob")
//	    if err != nil {
//	        return err // Automatic rollback
//	    }
//	    _, err = tx.Exec(ctx, "INSERT INTO audit (action) VALUES ($1)", "user_created")
//	    return err // Automatic commit on nil error
//	})
func WithTx(ctx context.Context, db *DB, fn func(*Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback() // Ignore rollback error, return original error.
		return err
	}

	return tx.Commit()
}

// txStatusWriter wraps http.ResponseWriter to capture the response status so
// TxMiddleware can decide whether to commit or roll back after the handler
// returns - there is no Go error to inspect the way a handler-chain-with-
// error-return model would have returned one.
type txStatusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *txStatusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *txStatusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// TxMiddleware returns net/http middleware that wraps each request in a
// database transaction, stored in the request context for resources to
// recover via GetTx.
//
// The transaction is committed if the handler produces a response status
// below 400, or rolled back if it produces a 4xx or 5xx - there is no Go
// error to inspect the way a handler-chain-with-error-return model would
// give you, so TxMiddleware watches the status code bishop itself uses to
// signal failure.
//
// Example:
//
//	handler := database.Middleware(db)(
//	    database.TxMiddleware(db)(router))
func TxMiddleware(db *DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			tx, err := db.BeginTx(req.Context(), nil)
			if err != nil {
				http.Error(w, "failed to begin transaction", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(req.Context(), txKey, tx)
			sw := &txStatusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, req.WithContext(ctx))

			if sw.status >= http.StatusBadRequest {
				_ = tx.Rollback() // Ignore rollback error, response already sent.
				return
			}
			_ = tx.Commit() // Response headers are already flushed; log at call site if needed.
		})
	}
}

// GetTx retrieves the transaction from req.Ctx.
//
// Returns (nil, false) if TxMiddleware is not configured for this request.
//
// Example:
//
//	tx, ok := database.GetTx(req)
//	if !ok {
//	    return nil, errors.New("transaction not available")
//	}
//	_, err := tx.Exec(req.Ctx, "INSERT INTO ...")
func GetTx(req *bishop.Request) (*Tx, bool) {
	if req == nil || req.Ctx == nil {
		return nil, false
	}
	tx, ok := req.Ctx.Value(txKey).(*Tx)
	return tx, ok
}

// MustGetTx retrieves the transaction from req.Ctx or panics.
//
// This is a convenience helper for resources where a transaction is
// required. Panics with a descriptive message if TxMiddleware is not
// configured.
//
// Use this where transaction absence indicates a programming error (i.e.
// middleware misconfiguration), not a runtime error.
//
// For production APIs with proper error handling, use GetTxOrError() instead.
func MustGetTx(req *bishop.Request) *Tx {
	tx, ok := GetTx(req)
	if !ok {
		panic("database: transaction not available - ensure database.TxMiddleware(db) wraps the router")
	}
	return tx
}

// GetTxOrError retrieves the transaction from req.Ctx, or returns
// ErrNotConfigured if TxMiddleware was not configured upstream.
//
// This is the recommended approach for production APIs, where a resource
// callback can translate the error into a 500 response through the normal
// decision-engine error path.
func GetTxOrError(req *bishop.Request) (*Tx, error) {
	tx, ok := GetTx(req)
	if !ok {
		return nil, ErrNotConfigured
	}
	return tx, nil
}
