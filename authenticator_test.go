package identity_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutherLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("successful login issues a verifiable token", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		subject := TestIdentity{
			id:    "user-1",
			email: "a@b.com",
			roles: []string{identity.RoleUser},
		}
		provider.On("VerifyIdentity", ctx, "a@b.com", "longenoughpassword1").
			Return(subject, nil)

		auther := identity.NewAuthenticator(provider, testSigningContext())

		token, err := auther.Login(ctx, "a@b.com", "longenoughpassword1")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := auther.TokenService().Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.Subject())
		assert.Equal(t, []string{identity.RoleUser}, claims.Roles())
	})

	t.Run("credential failures pass through unchanged", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "a@b.com", "bad").
			Return(nil, identity.ErrInvalidCredentials)

		auther := identity.NewAuthenticator(provider, testSigningContext())

		_, err := auther.Login(ctx, "a@b.com", "bad")
		assert.Equal(t, identity.ErrInvalidCredentials, err)
	})

	t.Run("provider failures are wrapped as internal", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "a@b.com", "longenoughpassword1").
			Return(nil, goerrors.New("store timeout", goerrors.CategoryInternal))

		auther := identity.NewAuthenticator(provider, testSigningContext())

		_, err := auther.Login(ctx, "a@b.com", "longenoughpassword1")
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
	})
}
