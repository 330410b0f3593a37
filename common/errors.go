package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"buddy-api/logger"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidPayload marks malformed input. It is usually wrapped in a
	// *ValidationError carrying per-field detail.
	ErrInvalidPayload = errors.New("invalid payload")

	ErrAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials is the single outcome of every authentication
	// failure: unknown user, wrong password, bad or expired token, unknown
	// refresh token. Callers must not be able to tell these apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInternal wraps hashing, storage and randomness failures.
	ErrInternal = errors.New("internal error")
)

// ErrorDetail is one entry of the "detail" array in an error body.
type ErrorDetail struct {
	Type string   `json:"type"`
	Msg  string   `json:"msg"`
	Loc  []string `json:"loc,omitempty"`
}

type AppError struct {
	Code    int           `json:"-"`
	Message string        `json:"-"`
	Details []ErrorDetail `json:"detail"`
	Err     error         `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error, details ...ErrorDetail) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Err:     err,
	}
}

func (e *AppError) Send(w http.ResponseWriter) {
	if e.Err != nil && e.Code >= http.StatusInternalServerError {
		logger.Log.WithFields(logrus.Fields{
			"status_code":    e.Code,
			"internal_error": e.Err.Error(),
		}).Error(e.Message)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(e)
}

var (
	invalidCredentialsDetail = ErrorDetail{Type: "invalid_credentials", Msg: "Invalid credentials"}
	alreadyExistsDetail      = ErrorDetail{Type: "user_already_exists", Msg: "User already exists"}
	internalDetail           = ErrorDetail{Type: "internal_error", Msg: "Internal server error"}
)

// FromError maps a service error onto its HTTP shape. Anything that is not a
// known client error becomes a 500 whose cause is logged but not returned.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return NewAppError(http.StatusUnprocessableEntity, "Invalid payload", nil, validationErr.Details...)
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewAppError(http.StatusUnauthorized, invalidCredentialsDetail.Msg, nil, invalidCredentialsDetail)
	case errors.Is(err, ErrAlreadyExists):
		return NewAppError(http.StatusConflict, alreadyExistsDetail.Msg, nil, alreadyExistsDetail)
	case errors.Is(err, ErrInvalidPayload):
		return NewAppError(http.StatusUnprocessableEntity, "Invalid payload", nil,
			ErrorDetail{Type: "value_error", Msg: "Invalid payload", Loc: []string{"body"}})
	default:
		return NewAppError(http.StatusInternalServerError, internalDetail.Msg, err, internalDetail)
	}
}
