package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/ifx-fdw/catalog"
	"github.com/hugr-lab/ifx-fdw/conv"
	"github.com/hugr-lab/ifx-fdw/filter"
	"github.com/hugr-lab/ifx-fdw/ifx"
	"github.com/hugr-lab/ifx-fdw/options"
	"github.com/hugr-lab/ifx-fdw/scan"
)

// ErrInvalidTicket is returned for tickets that cannot be decoded.
var ErrInvalidTicket = errors.New("invalid ticket")

// statusCode classifies an error for the transport edge.
func statusCode(err error) codes.Code {
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return s.Code()
	}

	var mismatch *conv.IncompatibleTypeError
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, catalog.ErrRelationNotFound),
		errors.Is(err, scan.ErrConnectionGone):
		return codes.NotFound
	case errors.Is(err, ErrInvalidTicket),
		errors.Is(err, filter.ErrUnsupportedExpression),
		errors.Is(err, options.ErrInvalidOption),
		errors.Is(err, options.ErrConflictingOptions),
		errors.Is(err, options.ErrMissingOption),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, catalog.ErrOutOfRange),
		errors.Is(err, catalog.ErrStringTooLong),
		errors.Is(err, conv.ErrNoSuchColumn),
		errors.Is(err, ifx.ErrKindMismatch),
		errors.Is(err, scan.ErrReadOnly),
		errors.Is(err, scan.ErrNoServer),
		errors.As(err, &mismatch):
		return codes.InvalidArgument
	}
	return codes.Internal
}

// statusError converts err into a gRPC status error, prefixing msg.
func statusError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return status.Errorf(statusCode(err), "%s: %v", msg, err)
}
