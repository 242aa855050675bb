package identity

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-identity/middleware/jwtware"
)

// tokenValidatorAdapter bridges the package's TokenService into the guard's
// mirrored TokenValidator interface.
type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (a tokenValidatorAdapter) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := a.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// GuardOption tweaks the guard configuration built by ProtectedRoute.
type GuardOption func(*jwtware.Config)

// RequireRole makes the guard reject tokens whose role set lacks the role.
// The rejection is a 403; a missing or invalid token stays a 401.
func RequireRole(role string) GuardOption {
	return func(cfg *jwtware.Config) {
		cfg.RequiredRole = role
	}
}

// WithGuardErrorHandler overrides how guard failures are rendered.
func WithGuardErrorHandler(handler func(*fiber.Ctx, error) error) GuardOption {
	return func(cfg *jwtware.Config) {
		cfg.ErrorHandler = handler
	}
}

// WithGuardContextKey overrides the locals key claims are stored under.
func WithGuardContextKey(key string) GuardOption {
	return func(cfg *jwtware.Config) {
		cfg.ContextKey = key
	}
}

// ProtectedRoute builds the guard middleware for protected endpoints. It
// verifies the bearer token with the Authenticator's TokenService and, on
// success, stores the claims in the request locals and the standard context.
func (s *Auther) ProtectedRoute(opts ...GuardOption) fiber.Handler {
	cfg := jwtware.Config{
		TokenValidator: tokenValidatorAdapter{validator: s.tokenService},
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if authClaims, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, authClaims)
			}
			return ctx
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return jwtware.New(cfg)
}
