package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Registration outcome statuses. A duplicate email is a Failed outcome, not
// an error: callers must check the status field, the HTTP status class alone
// does not reveal whether the email was taken.
const (
	RegistrationSuccess = "Success"
	RegistrationFailed  = "Failed"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will run validation rules, reporting every failing field.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&e.LastName, validation.Required, validation.Length(2, 50)),
		validation.Field(&e.Password, validation.Required, validation.Length(12, 100)),
	)
}

func (e RegisterUserMessage) fieldValues() map[string]string {
	return map[string]string{
		"email":      e.Email,
		"first_name": e.FirstName,
		"last_name":  e.LastName,
	}
}

// RegistrationResult is the outcome of a registration attempt.
type RegistrationResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`

	user *User
}

// User returns the created record on a Success outcome, nil otherwise.
func (r *RegistrationResult) User() *User {
	return r.user
}

// RegisterUserHandler orchestrates the registration flow: validate input
// shape, check email uniqueness, hash the password, persist. First failure
// wins; there are no retries.
type RegisterUserHandler struct {
	repo   RepositoryManager
	hasher *PasswordHasher
	logger Logger
}

type RegisterUserOption func(*RegisterUserHandler)

func WithRegisterHasher(hasher *PasswordHasher) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if hasher != nil {
			h.hasher = hasher
		}
	}
}

func WithRegisterLogger(logger Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewRegisterUserHandler(repo RepositoryManager, opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:   repo,
		hasher: defaultHasher,
		logger: defLogger{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	if err := event.Validate(); err != nil {
		h.logger.Info("registration payload failed validation", "error", err)
		return nil, WrapValidationErrors(err, event.fieldValues())
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	exists, err := h.repo.Users().ExistsByEmail(ctx, event.Email)
	if err != nil {
		h.logger.Error("registration uniqueness check failed", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check identity existence")
	}

	if exists {
		return &RegistrationResult{
			Status:  RegistrationFailed,
			Message: "User already exists with email",
		}, nil
	}

	// The raw password does not outlive this call: it is hashed here and
	// only the self describing record is persisted.
	hash, err := h.hasher.Hash(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
			return nil, richErr
		}
		h.logger.Error("registration password hashing failed", "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Email:        event.Email,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		PasswordHash: hash,
		Roles:        RoleList{RoleUser},
		Active:       true,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		if user, txErr = h.repo.Users().InsertTx(ctx, tx, user); txErr != nil {
			return goerrors.Wrap(txErr, goerrors.CategoryInternal, "could not create user")
		}
		return nil
	})

	if err != nil {
		h.logger.Error("registration insert failed", "error", err)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return &RegistrationResult{
		Status:  RegistrationSuccess,
		Message: "User registered successfully",
		user:    user,
	}, nil
}
