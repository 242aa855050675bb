// Package jwtware provides the request guard: it runs ahead of protected
// routes, validates the bearer token, and attaches the verified claims to
// the request so handlers can authorize by role membership. Authorization
// decisions are made entirely from the signed claims in hand; the guard
// never contacts the identity store.
package jwtware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// ErrJWTMissingOrMalformed is returned when no token can be extracted from
// the request.
var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT", errors.CategoryAuth).
	WithTextCode("auth_token_malformed").
	WithCode(errors.CodeUnauthorized)

// ErrMissingRequiredRole is returned when a valid token lacks the role the
// route demands. A 403, distinct from the 401 token failures.
var ErrMissingRequiredRole = errors.New("required role not present", errors.CategoryAuthz).
	WithTextCode("auth_missing_role").
	WithCode(errors.CodeForbidden)

// AuthClaims interface for structured claims without import cycles.
// This mirrors the AuthClaims interface from the identity package.
type AuthClaims interface {
	Subject() string
	UserID() string
	Roles() []string
	HasRole(role string) bool
}

// TokenValidator interface for validating tokens without import cycles.
// This mirrors the TokenService.Validate method from the identity package.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function to the TokenValidator interface.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

type Config struct {
	// Filter skips the guard for matching requests.
	Filter func(*fiber.Ctx) bool
	// ErrorHandler renders guard failures; the default writes a JSON error
	// body with the mapped status.
	ErrorHandler func(*fiber.Ctx, error) error
	// ContextKey is the locals key the verified claims are stored under.
	ContextKey string
	// TokenLookup is a comma separated list of "<source>:<name>" entries,
	// e.g. "header:Authorization,cookie:jwt".
	TokenLookup string
	// AuthScheme is the expected scheme label on the header value.
	AuthScheme string
	// TokenValidator is required for token validation.
	TokenValidator TokenValidator

	// RequiredRole, when set, must be present in the verified claims'
	// role set. Absence short-circuits with ErrMissingRequiredRole.
	RequiredRole string
	// RoleChecker overrides the membership test for RequiredRole.
	RoleChecker func(AuthClaims, string) bool

	// ContextEnricher propagates claims to the standard Go context after
	// successful validation.
	ContextEnricher func(context.Context, AuthClaims) context.Context
}

// New returns the guard middleware. Any validation failure short-circuits
// the request; the handler behind the guard never runs on a bad token.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := performAuthorizationChecks(claims, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return c.Next()
	}
}

// performAuthorizationChecks runs the role membership check when configured.
func performAuthorizationChecks(claims AuthClaims, cfg Config) error {
	if cfg.RequiredRole == "" {
		return nil
	}

	checker := cfg.RoleChecker
	if checker == nil {
		checker = func(claims AuthClaims, role string) bool {
			return claims.HasRole(role)
		}
	}

	if !checker(claims, cfg.RequiredRole) {
		return ErrMissingRequiredRole
	}

	return nil
}

// ExtractRawToken tries each extractor in order and returns the first hit.
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("IDENTITY: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

type errorBody struct {
	Status   int    `json:"status"`
	Time     string `json:"time"`
	Message  string `json:"message"`
	TextCode string `json:"text_code,omitempty"`
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusUnauthorized
	}

	body := errorBody{
		Status:   status,
		Time:     time.Now().UTC().Format(time.RFC3339Nano),
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	}

	// missing, malformed, expired, and bad-signature tokens all leave one
	// external shape; the distinct error values stay internal for diagnostics
	if status == http.StatusUnauthorized {
		body.Message = "Invalid or expired authentication token"
		body.TextCode = "auth_token_invalid"
	}

	return c.Status(status).JSON(body)
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// GetExtractors parses a token lookup string into extractor functions.
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts the token from the request
// header, honoring the auth scheme label.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		authScheme = strings.TrimSpace(authScheme)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts the token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts the token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
