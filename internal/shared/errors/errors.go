package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("validation error")
	ErrDuplicateName     = errors.New("name already registered")
	ErrAlreadyAssigned   = errors.New("person already assigned")
	ErrShelterFull       = errors.New("shelter at capacity")
	ErrRiskMismatch      = errors.New("risk level incompatible")
	ErrNoSuitableShelter = errors.New("no suitable shelter")
	ErrInternal          = errors.New("internal error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Validation creates a validation error with field details
func Validation(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// BadRequest creates a validation error without field details
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
	}
}

// DuplicateName signals that a person with this name is already registered
func DuplicateName(name string) *AppError {
	return &AppError{
		Err:        ErrDuplicateName,
		Message:    "a person with this name is already registered",
		Code:       "DUPLICATE_NAME",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]string{"name": name},
	}
}

// AlreadyAssigned signals that the person already holds an assignment
func AlreadyAssigned(personID string) *AppError {
	return &AppError{
		Err:        ErrAlreadyAssigned,
		Message:    "person already has a shelter assignment",
		Code:       "ALREADY_ASSIGNED",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]string{"person_id": personID},
	}
}

// ShelterFull signals that the target shelter has no available space
func ShelterFull(shelterID string) *AppError {
	return &AppError{
		Err:        ErrShelterFull,
		Message:    "shelter is at maximum capacity",
		Code:       "SHELTER_FULL",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]string{"shelter_id": shelterID},
	}
}

// RiskMismatch signals that a health-risk person was routed to a non-LOW shelter
func RiskMismatch(personID, shelterID string) *AppError {
	return &AppError{
		Err:        ErrRiskMismatch,
		Message:    "health-risk persons may only be assigned to low-risk shelters",
		Code:       "RISK_MISMATCH",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]string{"person_id": personID, "shelter_id": shelterID},
	}
}

// NoSuitableShelter signals that automatic assignment found no candidate
func NoSuitableShelter(personID string) *AppError {
	return &AppError{
		Err:        ErrNoSuitableShelter,
		Message:    "no shelter can accommodate this person",
		Code:       "NO_SUITABLE_SHELTER",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]string{"person_id": personID},
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
