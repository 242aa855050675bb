// Package identity provides the authentication core for user facing
// services: credential hashing, token issuance and validation, and the
// registration and login flows that tie them together.
//
// The package is storage agnostic. Persistence is reached through the
// IdentityStore interface; a bun backed implementation is provided for
// SQL stores. Tokens are stateless JWTs signed with a process wide
// SigningContext, so no session state is kept server side.
package identity
