package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultTokenLifetime is applied when a SigningContext does not set one.
const DefaultTokenLifetime = 24 * time.Hour

// SigningContext carries the signing key and token parameters shared by the
// issuer and the verifier. It is built once at startup from injected
// configuration; the key is never a literal in this package and is not
// rotated at runtime.
type SigningContext struct {
	Key      []byte
	Lifetime time.Duration
	Issuer   string
	Audience []string
}

// SigningContextFromConfig adapts a Config into a SigningContext.
func SigningContextFromConfig(cfg Config) SigningContext {
	lifetime := DefaultTokenLifetime
	if cfg.GetTokenExpiration() > 0 {
		lifetime = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	return SigningContext{
		Key:      []byte(cfg.GetSigningKey()),
		Lifetime: lifetime,
		Issuer:   cfg.GetIssuer(),
		Audience: cfg.GetAudience(),
	}
}

func (s SigningContext) lifetime() time.Duration {
	if s.Lifetime > 0 {
		return s.Lifetime
	}
	return DefaultTokenLifetime
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signing SigningContext
	logger  Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signing SigningContext, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signing: signing,
		logger:  logger,
	}
}

// Generate creates a JWT carrying the identity's id and role set. Expiry is
// fixed at issuance time plus the configured lifetime.
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.signing.Audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.signing.Audience))
		copy(aud, ts.signing.Audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.signing.Issuer,
			Subject:   identity.ID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.signing.lifetime())),
		},
		UID:       identity.ID(),
		RoleNames: identity.Roles(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signing.Key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// The three failure kinds stay distinguishable for callers: expired tokens
// map to ErrTokenExpired, a signature that does not verify maps to
// ErrTokenInvalidSignature, anything unparseable to ErrTokenMalformed.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.signing.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.signing.Issuer))
	}
	if len(ts.signing.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.signing.Audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signing.Key, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(ErrTokenMalformed.Code)
		}
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}
