package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// Default Argon2id parameters. Changing these does not invalidate stored
// hashes: every record encodes the parameters it was created with.
const (
	DefaultArgonTime    = 3
	DefaultArgonMemory  = 64 * 1024 // KiB
	DefaultArgonThreads = 4
	DefaultArgonSaltLen = 16
	DefaultArgonKeyLen  = 32
)

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen uint32
}

// HasherOption configures Argon2id parameters on a PasswordHasher.
type HasherOption func(*argonParams)

// WithArgonTime sets the number of iterations.
func WithArgonTime(t uint32) HasherOption {
	return func(p *argonParams) {
		if t > 0 {
			p.time = t
		}
	}
}

// WithArgonMemory sets the memory cost in KiB.
func WithArgonMemory(m uint32) HasherOption {
	return func(p *argonParams) {
		if m > 0 {
			p.memory = m
		}
	}
}

// WithArgonThreads sets the degree of parallelism.
func WithArgonThreads(t uint8) HasherOption {
	return func(p *argonParams) {
		if t > 0 {
			p.threads = t
		}
	}
}

// PasswordHasher derives and verifies salted Argon2id password hashes.
// Parameters are fixed at construction and safe for concurrent use.
type PasswordHasher struct {
	params argonParams
}

// NewPasswordHasher returns a hasher with the given parameter overrides.
func NewPasswordHasher(opts ...HasherOption) *PasswordHasher {
	params := argonParams{
		time:    DefaultArgonTime,
		memory:  DefaultArgonMemory,
		threads: DefaultArgonThreads,
		keyLen:  DefaultArgonKeyLen,
		saltLen: DefaultArgonSaltLen,
	}

	for _, opt := range opts {
		opt(&params)
	}

	return &PasswordHasher{params: params}
}

// Hash derives a PHC format record ($argon2id$v=19$m=..,t=..,p=..$salt$digest)
// from the password. The salt is freshly random on every call; two hashes of
// the same password never share one.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyPassword
	}

	salt := make([]byte, h.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate password salt")
	}

	digest := argon2.IDKey([]byte(password), salt, h.params.time, h.params.memory, h.params.threads, h.params.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.memory,
		h.params.time,
		h.params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Compare verifies the cleartext password against a stored PHC record. The
// record's own parameters drive the derivation, so records hashed under old
// parameters keep verifying. A mismatch returns ErrMismatchedHashAndPassword;
// only an unparseable record is an actual failure.
func (h *PasswordHasher) Compare(password, record string) error {
	memory, time, threads, salt, digest, err := parsePHCRecord(record)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(digest)))

	if subtle.ConstantTimeCompare(computed, digest) != 1 {
		return ErrMismatchedHashAndPassword
	}

	return nil
}

func parsePHCRecord(record string) (memory, time uint32, threads uint8, salt, digest []byte, err error) {
	parts := strings.Split(record, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, ErrMalformedHashRecord
	}

	var version int
	if _, serr := fmt.Sscanf(parts[2], "v=%d", &version); serr != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, ErrMalformedHashRecord
	}

	if _, serr := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); serr != nil {
		return 0, 0, 0, nil, nil, ErrMalformedHashRecord
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, ErrMalformedHashRecord
	}

	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return 0, 0, 0, nil, nil, ErrMalformedHashRecord
	}

	return memory, time, threads, salt, digest, nil
}

var defaultHasher = NewPasswordHasher()

// HashPassword will generate a password hash using default parameters.
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext password against
// the stored hash record.
func ComparePasswordAndHash(password, record string) error {
	return defaultHasher.Compare(password, record)
}
