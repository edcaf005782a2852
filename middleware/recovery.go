// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package middleware provides panic recovery middleware.
package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
)

// RecoveryConfig defines the configuration for the Recovery middleware.
type RecoveryConfig struct {
	// Logger is the slog.Logger instance to use for logging panics.
	// If nil, a default logger writing to os.Stderr will be created.
	Logger *slog.Logger

	// DisableStackTrace disables printing stack trace in logs.
	// Default: false (stack trace is printed).
	DisableStackTrace bool

	// DisablePrintStack disables printing stack to stderr.
	// Default: false (stack is printed to stderr).
	DisablePrintStack bool

	// StackTraceSize is the maximum size of the stack trace buffer in bytes.
	// Default: 4KB (4096 bytes).
	StackTraceSize int
}

// Recovery returns a middleware that recovers from panics in request
// handlers downstream of it - including a panic raised inside a bishop
// resource callback, which bishop.Run re-raises unless it is a callback
// protocol violation.
//
// When a panic occurs:
//   - The panic is recovered and converted to an error
//   - Stack trace is logged using structured logging (slog)
//   - HTTP 500 Internal Server Error is sent to the client
//
// Example:
//
//	handler := middleware.Recovery()(router)
//	http.ListenAndServe(":8080", handler)
func Recovery() func(http.Handler) http.Handler {
	return RecoveryWithConfig(RecoveryConfig{})
}

// RecoveryWithConfig returns a middleware with custom configuration.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	config := middleware.RecoveryConfig{
//	    Logger: logger,
//	    DisableStackTrace: false,
//	    StackTraceSize: 8192, // 8KB stack trace
//	}
//	handler := middleware.RecoveryWithConfig(config)(router)
func RecoveryWithConfig(config RecoveryConfig) func(http.Handler) http.Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	stackTraceSize := config.StackTraceSize
	if stackTraceSize == 0 {
		stackTraceSize = 4096 // 4KB default
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					handlePanic(r, w, req, logger, config, stackTraceSize)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

// handlePanic handles a recovered panic by logging and sending a 500.
func handlePanic(r interface{}, w http.ResponseWriter, req *http.Request, logger *slog.Logger, config RecoveryConfig, stackTraceSize int) {
	stack := getStackTrace(config.DisableStackTrace, stackTraceSize)
	panicErr := convertPanicToError(r)

	logPanic(req, logger, panicErr, stack, config.DisableStackTrace)
	printStackToStderr(panicErr, stack, config)

	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// getStackTrace gets the current stack trace if not disabled.
func getStackTrace(disableStackTrace bool, stackTraceSize int) []byte {
	if disableStackTrace {
		return nil
	}

	stack := make([]byte, stackTraceSize)
	return stack[:runtime.Stack(stack, false)]
}

// convertPanicToError converts a panic value to an error.
func convertPanicToError(r interface{}) error {
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("%v", r)
}

// logPanic logs the panic with structured fields.
func logPanic(req *http.Request, logger *slog.Logger, panicErr error, stack []byte, disableStackTrace bool) {
	attrs := []slog.Attr{
		slog.String("panic", panicErr.Error()),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.String("remote_addr", req.RemoteAddr),
	}

	if !disableStackTrace && len(stack) > 0 {
		attrs = append(attrs, slog.String("stack", string(stack)))
	}

	logger.LogAttrs(req.Context(), slog.LevelError, "Panic recovered", attrs...)
}

// printStackToStderr prints stack trace to stderr if enabled.
func printStackToStderr(panicErr error, stack []byte, config RecoveryConfig) {
	if config.DisablePrintStack || config.DisableStackTrace || len(stack) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", panicErr, stack)
}

// PanicHandler is a simplified version of Recovery that only recovers
// panics without any logging or configuration.
//
// Useful for testing or when you want minimal overhead.
//
// Example:
//
//	handler := middleware.PanicHandler()(router)
func PanicHandler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

// DefaultRecoveryLogger creates a recovery logger that writes to the given writer.
// This is a convenience function for creating custom loggers.
//
// Example:
//
//	var buf bytes.Buffer
//	logger := middleware.DefaultRecoveryLogger(&buf)
//	handler := middleware.RecoveryWithConfig(middleware.RecoveryConfig{
//	    Logger: logger,
//	})(router)
func DefaultRecoveryLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// JSONRecoveryLogger creates a JSON recovery logger that writes to the given writer.
// Useful for production environments where structured logs are parsed.
func JSONRecoveryLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}
