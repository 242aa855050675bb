package identity

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleList is an ordered set of role names. It round-trips through SQL as a
// JSON array so the same model works across dialects.
type RoleList []string

// Value implements driver.Valuer
func (r RoleList) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode role list")
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (r *RoleList) Scan(src any) error {
	if src == nil {
		*r = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported role list source type", errors.CategoryInternal)
	}

	if len(data) == 0 {
		*r = nil
		return nil
	}

	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to decode role list")
	}

	*r = roles
	return nil
}

// Contains checks role membership by string equality
func (r RoleList) Contains(role string) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// User is the persisted identity record. The id is generated at creation and
// never user supplied; password_hash holds the hasher's self describing
// record, never a raw password.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Roles         RoleList   `bun:"roles,notnull" json:"roles,omitempty"`
	Active        bool       `bun:"active" json:"active"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
