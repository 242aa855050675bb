package identity

import (
	stderrors "errors"
	"net/http"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients for programmatic handling.
const (
	TextCodeInvalidCreds     = "auth_invalid_credentials"
	TextCodeIdentityDisabled = "auth_identity_disabled"
	TextCodeTokenExpired     = "auth_token_expired"
	TextCodeTokenSignature   = "auth_token_invalid_signature"
	TextCodeTokenMalformed   = "auth_token_malformed"
	TextCodeMissingRole      = "auth_missing_role"
	TextCodeValidationFailed = "identity_validation_failed"
	TextCodeEmptyPassword    = "identity_empty_password"
	TextCodeInternal         = "identity_internal_error"
)

// ErrInvalidCredentials is returned for an unknown email and for a wrong
// password alike. The two causes share one error value so callers cannot
// tell registered emails apart from unregistered ones.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the hasher level mismatch. The login flow
// collapses it into ErrInvalidCredentials before it leaves the package.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is returned for non found identities.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrIdentityDisabled is returned when the identity exists but is not active.
var ErrIdentityDisabled = errors.New("identity is disabled", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityDisabled).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token's expiry is in the past.
var ErrTokenExpired = errors.New("authentication token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalidSignature is returned when a token's signature does not
// verify against the configured signing key.
var ErrTokenInvalidSignature = errors.New("authentication token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be parsed at all.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMissingRequiredRole is returned when a valid token lacks the role a
// route demands. Distinct from the token errors above: authentication
// succeeded, authorization did not.
var ErrMissingRequiredRole = errors.New("required role not present", errors.CategoryAuthz).
	WithTextCode(TextCodeMissingRole).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyPassword rejects empty passwords before they reach the hasher.
var ErrNoEmptyPassword = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(http.StatusUnprocessableEntity)

// ErrMalformedHashRecord is returned when a stored password hash cannot be
// parsed. This is a data defect, not a failed match.
var ErrMalformedHashRecord = errors.New("malformed password hash record", errors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(errors.CodeInternal)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// sensitiveFields never echo their rejected value back to the client.
var sensitiveFields = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
}

// WrapValidationErrors converts an ozzo validation result into a rich
// validation error carrying one FieldError per offending field, sorted by
// field name so the output is stable.
func WrapValidationErrors(err error, values map[string]string) *errors.Error {
	richErr := errors.New("payload validation failed", errors.CategoryValidation).
		WithTextCode(TextCodeValidationFailed).
		WithCode(http.StatusUnprocessableEntity)

	fields := FieldErrorsFrom(err, values)
	if len(fields) > 0 {
		return richErr.WithMetadata(map[string]any{"fields": fields})
	}

	return richErr
}

// FieldErrorsFrom flattens an ozzo validation.Errors map into an ordered
// FieldError list. Any other error yields a single unnamed entry.
func FieldErrorsFrom(err error, values map[string]string) []FieldError {
	if err == nil {
		return nil
	}

	errMap, ok := asValidationErrors(err)
	if !ok {
		return []FieldError{{Message: err.Error()}}
	}

	names := make([]string, 0, len(errMap))
	for name := range errMap {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]FieldError, 0, len(names))
	for _, name := range names {
		fe := FieldError{
			Field:   name,
			Message: errMap[name].Error(),
		}
		if !sensitiveFields[name] {
			fe.Value = values[name]
		}
		fields = append(fields, fe)
	}

	return fields
}

func asValidationErrors(err error) (validation.Errors, bool) {
	var errMap validation.Errors
	if stderrors.As(err, &errMap) {
		return errMap, true
	}
	return nil, false
}

// ErrorResponse is the wire shape for every failure leaving this package.
type ErrorResponse struct {
	Status   int          `json:"status"`
	Time     string       `json:"time"`
	Message  string       `json:"message"`
	TextCode string       `json:"text_code,omitempty"`
	Fields   []FieldError `json:"fields,omitempty"`
}

const apiTimeLayout = "2006-01-02T15:04:05.999999Z07:00"

// NewErrorResponse maps any error to its HTTP status and response body.
// Internal failures are collapsed to a generic message so store or hasher
// detail never reaches the client.
func NewErrorResponse(err error) (int, ErrorResponse) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithTextCode(TextCodeInternal).
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	resp := ErrorResponse{
		Status:   status,
		Time:     time.Now().UTC().Format(apiTimeLayout),
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	}

	if richErr.Category == errors.CategoryInternal || richErr.Category == errors.CategoryOperation {
		resp.Message = "Internal server error. Try again after some time."
		resp.TextCode = TextCodeInternal
	}

	if fields, ok := richErr.Metadata["fields"].([]FieldError); ok {
		resp.Fields = fields
	}

	return status, resp
}

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
