package auth

import (
	"context"

	"google.golang.org/grpc"
)

// UnaryServerInterceptor authenticates unary calls. A nil authenticator
// lets every request through without an identity.
func UnaryServerInterceptor(authenticator Authenticator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if authenticator == nil {
			return handler(ctx, req)
		}

		token, err := ExtractToken(ctx)
		if err != nil {
			return nil, err
		}

		ctx, err = ValidateToken(ctx, token, authenticator)
		if err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// StreamServerInterceptor authenticates streaming calls such as DoGet and
// DoPut. A nil authenticator lets every request through.
func StreamServerInterceptor(authenticator Authenticator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if authenticator == nil {
			return handler(srv, ss)
		}

		ctx := ss.Context()

		token, err := ExtractToken(ctx)
		if err != nil {
			return err
		}

		ctx, err = ValidateToken(ctx, token, authenticator)
		if err != nil {
			return err
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
	}
}

// identityStream carries the authenticated context of a stream.
type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context {
	return s.ctx
}
