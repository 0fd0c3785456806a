package logger

import (
	"context"

	"nightbite-be/internal/auth"

	"go.uber.org/zap"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromCtx returns the global logger tagged with the request id and the
// signed in user, when the context carries them.
func FromCtx(ctx context.Context) *zap.Logger {
	fields := make([]zap.Field, 0, 3)
	if id := RequestIDFrom(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if c, ok := auth.CallerFrom(ctx); ok {
		fields = append(fields, zap.Uint("user_id", c.ID), zap.String("role", string(c.Role)))
	}
	if len(fields) == 0 {
		return L()
	}
	return L().With(fields...)
}
