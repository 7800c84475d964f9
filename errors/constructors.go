package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *SyncError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *SyncError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConnectionUnavailable reports an event that was dropped because the channel is not open.
func ConnectionUnavailable(endpoint string) *SyncError {
	return New(ErrCodeConnectionUnavailable, fmt.Sprintf("channel to %s is not open, change dropped", endpoint)).
		WithDetail("endpoint", endpoint)
}

// MalformedMessage wraps a decode or schema failure of an incoming message.
func MalformedMessage(err error) *SyncError {
	return Wrap(err, ErrCodeMalformedMessage, "message could not be decoded")
}

// MissingSelector reports an event without a selector.
func MissingSelector(kind string) *SyncError {
	return New(ErrCodeMissingSelector, fmt.Sprintf("%s event has no selector", kind)).
		WithDetail("kind", kind)
}

// MissingPayload reports an event whose kind-specific data is absent.
func MissingPayload(kind, field string) *SyncError {
	return New(ErrCodeMissingPayload, fmt.Sprintf("%s event is missing %s", kind, field)).
		WithDetail("kind", kind).
		WithDetail("field", field)
}

// TargetFileMissing creates an error for a resolved path that does not exist
func TargetFileMissing(path string) *SyncError {
	return New(ErrCodeTargetFileMissing, fmt.Sprintf("target file does not exist: %s", path)).
		WithDetail("path", path)
}

// SelectorNotFound creates an error for a selector with no structural match
func SelectorNotFound(selector, what string) *SyncError {
	return New(ErrCodeSelectorNotFound, fmt.Sprintf("no %s matches '%s'", what, selector)).
		WithDetail("selector", selector)
}

// UnsupportedSelector creates an error for a selector the operation cannot use
func UnsupportedSelector(selector, operation string) *SyncError {
	return New(ErrCodeUnsupportedSelector,
		fmt.Sprintf("%s only supports #id selectors, got '%s'", operation, selector)).
		WithDetail("selector", selector).
		WithDetail("operation", operation)
}

// PathNotAllowed creates an error for a target outside the allow-list
func PathNotAllowed(path string, patterns []string) *SyncError {
	return New(ErrCodePathNotAllowed, fmt.Sprintf("target file is not covered by the allow-list: %s", path)).
		WithDetail("path", path).
		WithDetail("allow", patterns)
}

// PortConflict creates a port conflict error
func PortConflict(addr string, err error) *SyncError {
	return Wrap(err, ErrCodePortConflict, fmt.Sprintf("address %s is already in use", addr)).
		WithDetail("addr", addr)
}
