package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/mmynk/tenancydeposit/internal/auth"
	"github.com/mmynk/tenancydeposit/internal/ledger"
	"github.com/mmynk/tenancydeposit/internal/models"
)

// GetCaller extracts the authenticated caller from the context.
// Returns NoAddress if not found.
func GetCaller(ctx context.Context) models.Address {
	caller, _ := ledger.CallerFrom(ctx)
	return caller
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return ledger.WithCaller(ctx, models.ParseAddress(claims.Address().String()))
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// The token subject becomes the caller the ledger sees.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(withClaims(ctx, claims), req)
		}
	}
}

// OptionalAuth returns a middleware that validates JWT tokens if present, but allows
// requests without authentication. Read-only procedures are served this way;
// the ledger itself rejects anonymous writes.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, ok := bearerToken(req.Header().Get("Authorization")); ok {
				// Invalid tokens are ignored, the request continues anonymously.
				if claims, err := jwtManager.Validate(tokenString); err == nil {
					ctx = withClaims(ctx, claims)
				}
			}
			return next(ctx, req)
		}
	}
}
