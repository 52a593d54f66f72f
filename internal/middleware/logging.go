package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, caller, duration and outcome. Install it inside the
// auth interceptor so the caller is known.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.String("caller", GetCaller(ctx).String()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			level, msg := slog.LevelInfo, "RPC ok"
			if err != nil {
				level, msg = outcomeLevel(err), "RPC error"
				attrs = append(attrs, errorAttrs(err)...)
			}
			slog.LogAttrs(ctx, level, msg, attrs...)

			return resp, err
		}
	}
}

// outcomeLevel maps server-side failures to error and everything else to warn.
func outcomeLevel(err error) slog.Level {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return slog.LevelError
	}
	switch connectErr.Code() {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func errorAttrs(err error) []slog.Attr {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return []slog.Attr{slog.Any("error", err)}
	}
	attrs := []slog.Attr{
		slog.String("code", connectErr.Code().String()),
		slog.String("error", connectErr.Message()),
	}
	if reason := connectErr.Meta().Get(depositapi.ReasonHeader); reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}
	return attrs
}
