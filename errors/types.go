package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Channel errors
	ErrCodeConnectionUnavailable ErrorCode = "CONNECTION_UNAVAILABLE"
	ErrCodeMalformedMessage      ErrorCode = "MALFORMED_MESSAGE"
	ErrCodePortConflict          ErrorCode = "PORT_CONFLICT"

	// Patch errors
	ErrCodeTargetFileMissing   ErrorCode = "TARGET_FILE_MISSING"
	ErrCodeSelectorNotFound    ErrorCode = "SELECTOR_NOT_FOUND"
	ErrCodeUnsupportedSelector ErrorCode = "UNSUPPORTED_SELECTOR"
	ErrCodeMissingSelector     ErrorCode = "MISSING_SELECTOR"
	ErrCodeMissingPayload      ErrorCode = "MISSING_PAYLOAD"
	ErrCodePathNotAllowed      ErrorCode = "PATH_NOT_ALLOWED"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// SyncError represents a structured error with context
type SyncError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *SyncError) WithDetail(key string, value interface{}) *SyncError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *SyncError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new SyncError
func New(code ErrorCode, message string) *SyncError {
	return &SyncError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a SyncError
func Wrap(err error, code ErrorCode, message string) *SyncError {
	return &SyncError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific SyncError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	syncErr, ok := err.(*SyncError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return syncErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	syncErr, ok := err.(*SyncError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return syncErr.Code
}

// Detail returns a detail value from a SyncError anywhere in the chain.
func Detail(err error, key string) (interface{}, bool) {
	for err != nil {
		if syncErr, ok := err.(*SyncError); ok {
			v, ok := syncErr.Details[key]
			return v, ok
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
