package identity

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// Auther implements the Authenticator interface on top of an
// IdentityProvider and a TokenService.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator. The SigningContext is the
// single source for the signing key; issuing and verifying always share it.
func NewAuthenticator(provider IdentityProvider, signing SigningContext) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: NewTokenService(signing, defLogger{}),
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the TokenService used to mint tokens.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and, on success, issues a signed token
// carrying the identity's id and role set. Credential failures are expected
// traffic and logged at info level only.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) && richErr.Category == errors.CategoryAuth {
			s.logger.Info("Login rejected", "text_code", richErr.TextCode)
			return "", richErr
		}

		s.logger.Error("Login verify identity error", "error", err)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to verify identity")
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrInvalidCredentials
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("Login token generation failed", "error", err)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to issue token")
	}

	return token, nil
}

var _ Authenticator = (*Auther)(nil)
