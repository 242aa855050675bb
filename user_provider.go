package identity

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserProvider resolves identities from an IdentityStore and verifies
// credentials with a PasswordHasher.
type UserProvider struct {
	store  IdentityStore
	hasher *PasswordHasher
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store IdentityStore) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: defaultHasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *UserProvider) WithHasher(h *PasswordHasher) *UserProvider {
	if h != nil {
		u.hasher = h
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. An unknown email and a wrong password both come back as
// ErrInvalidCredentials so the two cases are indistinguishable to callers.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	if err := u.hasher.Compare(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		// malformed hash record or similar: a data defect, not a bad login
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to verify password hash")
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		roles: append([]string(nil), user.Roles...),
	}, nil
}

// FindIdentityByEmail resolves an identity without verifying credentials.
func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := ensureAuthenticatableUser(user); err != nil {
		return nil, err
	}

	return authIdentity{
		id:    user.ID.String(),
		email: user.Email,
		roles: append([]string(nil), user.Roles...),
	}, nil
}

var _ IdentityProvider = (*UserProvider)(nil)

type authIdentity struct {
	id    string
	email string
	roles []string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Roles() []string {
	return a.roles
}

var _ Identity = authIdentity{}

func ensureAuthenticatableUser(user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	if !user.Active {
		return ErrIdentityDisabled
	}

	if user.PasswordHash == "" {
		return errors.New("identity record has no password hash", errors.CategoryInternal)
	}

	return nil
}
