package identity

import "context"

// IdentityStore is the narrow persistence surface the auth flows depend on.
// The backing store's schema and concurrency control are its own concern;
// this package issues one read or write per logical step and never runs a
// multi step transaction across the uniqueness check and the insert. Two
// concurrent registrations for one email can both pass ExistsByEmail before
// either Insert lands; only a uniqueness constraint in the store itself
// closes that window.
type IdentityStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, user *User) (*User, error)
}
