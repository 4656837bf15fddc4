// Package recovery turns panics raised inside type input functions, remote
// client calls and Flight handlers into errors, so a bad value aborts one
// scan instead of the server.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrPanic wraps every recovered panic returned by RecoverToValue.
var ErrPanic = errors.New("panic")

// RecoverToError runs a Flight handler and converts a panic into a gRPC
// Internal status.
//
//	err := recovery.RecoverToError(logger, "DoGet", func() error {
//	    return s.streamScan(ctx, ticket, stream)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "%s panicked: %v", operation, r)
		}
	}()

	return fn()
}

// RecoverToValue runs fn and converts a panic into an error wrapping ErrPanic.
// Deferred cleanups of the caller (remote call-stack scopes, pooled buffers)
// still observe the error.
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			var zero T
			result = zero
			err = fmt.Errorf("%s: %w: %v", operation, ErrPanic, r)
		}
	}()

	return fn()
}

// Recover runs a cleanup function and logs a panic instead of propagating it.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in cleanup",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	fn()
}
