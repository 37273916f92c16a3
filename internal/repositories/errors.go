package repositories

import "fmt"

// StoreErrorCode enumerates machine readable causes for storage failures.
type StoreErrorCode string

const (
	// StoreErrorUnknown represents an unspecified failure.
	StoreErrorUnknown StoreErrorCode = "store_unknown"
	// StoreErrorNotFound indicates the referenced row does not exist.
	StoreErrorNotFound StoreErrorCode = "store_not_found"
	// StoreErrorConflict indicates a uniqueness or concurrent-update conflict.
	StoreErrorConflict StoreErrorCode = "store_conflict"
	// StoreErrorInsufficientStock indicates demand exceeded available stock and
	// the product does not allow backorders.
	StoreErrorInsufficientStock StoreErrorCode = "store_insufficient_stock"
	// StoreErrorInvalidState indicates the row's current state forbids the operation.
	StoreErrorInvalidState StoreErrorCode = "store_invalid_state"
)

// StoreError wraps storage failures with machine readable codes so services
// can map them onto their own sentinel errors.
type StoreError struct {
	Op      string
	Code    StoreErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStoreError constructs a typed storage error.
func NewStoreError(code StoreErrorCode, message string, err error) *StoreError {
	if message == "" {
		message = string(code)
	}
	return &StoreError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
