package jwtware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	subject string
	uid     string
	roles   []string
}

func (s stubClaims) Subject() string { return s.subject }
func (s stubClaims) UserID() string  { return s.uid }
func (s stubClaims) Roles() []string { return s.roles }
func (s stubClaims) HasRole(role string) bool {
	for _, r := range s.roles {
		if r == role {
			return true
		}
	}
	return false
}

func acceptToken(token string, claims jwtware.AuthClaims) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
		if raw != token {
			return nil, errors.New("signature verification failed", errors.CategoryAuth).
				WithTextCode("auth_token_invalid_signature").
				WithCode(errors.CodeUnauthorized)
		}
		return claims, nil
	})
}

func guardedApp(cfg jwtware.Config) *fiber.App {
	key := cfg.ContextKey
	if key == "" {
		key = "user"
	}

	app := fiber.New()
	app.Get("/guarded", jwtware.New(cfg), func(c *fiber.Ctx) error {
		claims, _ := c.Locals(key).(jwtware.AuthClaims)
		if claims == nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"subject": claims.Subject()})
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path string, header string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGuardValidToken(t *testing.T) {
	claims := stubClaims{subject: "user-1", roles: []string{"ROLE_USER"}}
	app := guardedApp(jwtware.Config{TokenValidator: acceptToken("good", claims)})

	resp := doGet(t, app, "/guarded", "Bearer good")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "user-1", body["subject"])
}

func TestGuardMissingToken(t *testing.T) {
	app := guardedApp(jwtware.Config{TokenValidator: acceptToken("good", stubClaims{})})

	for name, header := range map[string]string{
		"no header":      "",
		"wrong scheme":   "Basic good",
		"scheme only":    "Bearer",
		"empty token":    "Bearer ",
		"garbage header": "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			resp := doGet(t, app, "/guarded", header)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			var body struct {
				Status   int    `json:"status"`
				TextCode string `json:"text_code"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, fiber.StatusUnauthorized, body.Status)
			assert.Equal(t, "auth_token_invalid", body.TextCode)
		})
	}
}

func TestGuardValidatorFailure(t *testing.T) {
	app := guardedApp(jwtware.Config{TokenValidator: acceptToken("good", stubClaims{})})

	resp := doGet(t, app, "/guarded", "Bearer tampered")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// a bad signature and a missing token render the same external body
	var body struct {
		Message  string `json:"message"`
		TextCode string `json:"text_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "auth_token_invalid", body.TextCode)
	assert.NotContains(t, body.Message, "signature")
}

func TestGuardRequiredRole(t *testing.T) {
	claims := stubClaims{subject: "user-1", roles: []string{"ROLE_USER"}}

	t.Run("role present", func(t *testing.T) {
		app := guardedApp(jwtware.Config{
			TokenValidator: acceptToken("good", claims),
			RequiredRole:   "ROLE_USER",
		})
		resp := doGet(t, app, "/guarded", "Bearer good")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("role absent is forbidden", func(t *testing.T) {
		app := guardedApp(jwtware.Config{
			TokenValidator: acceptToken("good", claims),
			RequiredRole:   "ROLE_ADMIN",
		})
		resp := doGet(t, app, "/guarded", "Bearer good")
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		var body struct {
			Status   int    `json:"status"`
			TextCode string `json:"text_code"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, fiber.StatusForbidden, body.Status)
		assert.Equal(t, "auth_missing_role", body.TextCode)
	})

	t.Run("custom role checker wins", func(t *testing.T) {
		app := guardedApp(jwtware.Config{
			TokenValidator: acceptToken("good", claims),
			RequiredRole:   "ROLE_ADMIN",
			RoleChecker: func(jwtware.AuthClaims, string) bool {
				return true
			},
		})
		resp := doGet(t, app, "/guarded", "Bearer good")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestGuardFilterSkips(t *testing.T) {
	app := fiber.New()
	app.Get("/open", jwtware.New(jwtware.Config{
		TokenValidator: acceptToken("good", stubClaims{}),
		Filter: func(c *fiber.Ctx) bool {
			return c.Path() == "/open"
		},
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp := doGet(t, app, "/open", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestGuardCookieLookup(t *testing.T) {
	claims := stubClaims{subject: "user-1"}
	app := guardedApp(jwtware.Config{
		TokenValidator: acceptToken("good", claims),
		TokenLookup:    "cookie:jwt",
	})

	req := httptest.NewRequest(fiber.MethodGet, "/guarded", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "good"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardQueryLookup(t *testing.T) {
	claims := stubClaims{subject: "user-1"}
	app := guardedApp(jwtware.Config{
		TokenValidator: acceptToken("good", claims),
		TokenLookup:    "query:token",
	})

	resp := doGet(t, app, "/guarded?token=good", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuardContextEnricher(t *testing.T) {
	type ctxKey struct{}

	claims := stubClaims{subject: "user-1"}
	app := fiber.New()
	app.Get("/guarded", jwtware.New(jwtware.Config{
		TokenValidator: acceptToken("good", claims),
		ContextEnricher: func(ctx context.Context, c jwtware.AuthClaims) context.Context {
			return context.WithValue(ctx, ctxKey{}, c.Subject())
		},
	}), func(c *fiber.Ctx) error {
		subject, _ := c.UserContext().Value(ctxKey{}).(string)
		if subject == "" {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(subject)
	})

	resp := doGet(t, app, "/guarded", "Bearer good")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetDefaultConfigRequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})
}
