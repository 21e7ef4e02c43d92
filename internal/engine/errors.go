package engine

import (
	"errors"
	"fmt"
)

// Error represents an error detected by the transaction and accessor layer.
//
// Errors are returned synchronously and never retried; the store never
// rolls back on its own (Write is the documented exception).
//
// Error includes structured fields for diagnostics. Match a category with
// errors.Is against the exported sentinels or with the IsXxx helpers.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Type is the model type involved, if any.
	Type string

	// Key is the identity key (ir.KeyString form), if any.
	Key string

	// KeyPath is the property involved, if any.
	KeyPath string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeDuplicateKey indicates an object with the same key already exists.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeNoActiveTransaction indicates a write outside a write transaction.
	ErrCodeNoActiveTransaction ErrorCode = "NO_ACTIVE_TRANSACTION"

	// ErrCodeTransactionAlreadyActive indicates a second BeginWrite.
	ErrCodeTransactionAlreadyActive ErrorCode = "TRANSACTION_ALREADY_ACTIVE"

	// ErrCodeDetachedAccessor indicates the accessor's row no longer exists.
	ErrCodeDetachedAccessor ErrorCode = "DETACHED_ACCESSOR"

	// ErrCodeInvalidKeyPath indicates an unknown or ignored property.
	ErrCodeInvalidKeyPath ErrorCode = "INVALID_KEY_PATH"

	// ErrCodeTypeMismatch indicates a value of the wrong kind.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodePrimaryKeyImmutable indicates a write to a persisted primary key.
	ErrCodePrimaryKeyImmutable ErrorCode = "PRIMARY_KEY_IMMUTABLE"

	// ErrCodeUnknownType indicates a model type missing from the registry.
	ErrCodeUnknownType ErrorCode = "UNKNOWN_TYPE"

	// ErrCodeNoPrimaryKey indicates a key lookup on a type without one.
	ErrCodeNoPrimaryKey ErrorCode = "NO_PRIMARY_KEY"

	// ErrCodeInvalidObject indicates an object that cannot take part in the
	// operation, such as one owned by another store.
	ErrCodeInvalidObject ErrorCode = "INVALID_OBJECT"
)

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrDuplicateKey             = &Error{Code: ErrCodeDuplicateKey}
	ErrNoActiveTransaction      = &Error{Code: ErrCodeNoActiveTransaction}
	ErrTransactionAlreadyActive = &Error{Code: ErrCodeTransactionAlreadyActive}
	ErrDetachedAccessor         = &Error{Code: ErrCodeDetachedAccessor}
	ErrInvalidKeyPath           = &Error{Code: ErrCodeInvalidKeyPath}
	ErrTypeMismatch             = &Error{Code: ErrCodeTypeMismatch}
	ErrPrimaryKeyImmutable      = &Error{Code: ErrCodePrimaryKeyImmutable}
	ErrUnknownType              = &Error{Code: ErrCodeUnknownType}
	ErrNoPrimaryKey             = &Error{Code: ErrCodeNoPrimaryKey}
	ErrInvalidObject            = &Error{Code: ErrCodeInvalidObject}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "engine error"
	}
	switch {
	case e.Type != "" && e.Key != "" && e.KeyPath != "":
		return fmt.Sprintf("%s: %s (object=%s(%s), key_path=%s)", e.Code, msg, e.Type, e.Key, e.KeyPath)
	case e.Type != "" && e.Key != "":
		return fmt.Sprintf("%s: %s (object=%s(%s))", e.Code, msg, e.Type, e.Key)
	case e.Type != "" && e.KeyPath != "":
		return fmt.Sprintf("%s: %s (type=%s, key_path=%s)", e.Code, msg, e.Type, e.KeyPath)
	case e.Type != "":
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, msg, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsDuplicateKey returns true if err is a duplicate key error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateKey(err error) bool { return hasCode(err, ErrCodeDuplicateKey) }

// IsNoActiveTransaction returns true if err reports a missing write transaction.
func IsNoActiveTransaction(err error) bool { return hasCode(err, ErrCodeNoActiveTransaction) }

// IsTransactionAlreadyActive returns true if err reports a nested BeginWrite.
func IsTransactionAlreadyActive(err error) bool {
	return hasCode(err, ErrCodeTransactionAlreadyActive)
}

// IsDetachedAccessor returns true if err reports a detached accessor.
func IsDetachedAccessor(err error) bool { return hasCode(err, ErrCodeDetachedAccessor) }

// IsInvalidKeyPath returns true if err reports an unknown or ignored property.
func IsInvalidKeyPath(err error) bool { return hasCode(err, ErrCodeInvalidKeyPath) }

// IsTypeMismatch returns true if err reports a value of the wrong kind.
func IsTypeMismatch(err error) bool { return hasCode(err, ErrCodeTypeMismatch) }

// IsPrimaryKeyImmutable returns true if err reports a primary key write.
func IsPrimaryKeyImmutable(err error) bool { return hasCode(err, ErrCodePrimaryKeyImmutable) }

// IsUnknownType returns true if err reports an unregistered model type.
func IsUnknownType(err error) bool { return hasCode(err, ErrCodeUnknownType) }

// IsNoPrimaryKey returns true if err reports a type without a primary key.
func IsNoPrimaryKey(err error) bool { return hasCode(err, ErrCodeNoPrimaryKey) }

// IsInvalidObject returns true if err reports an unusable object.
func IsInvalidObject(err error) bool { return hasCode(err, ErrCodeInvalidObject) }

// CodeOf returns the error code carried by err, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newDuplicateKeyError(typ, key string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateKey,
		Message: "an object with this primary key already exists",
		Type:    typ,
		Key:     key,
	}
}

func newNoActiveTransactionError(op string) *Error {
	return &Error{
		Code:    ErrCodeNoActiveTransaction,
		Message: fmt.Sprintf("%s requires a write transaction", op),
	}
}

func newTransactionAlreadyActiveError() *Error {
	return &Error{
		Code:    ErrCodeTransactionAlreadyActive,
		Message: "a write transaction is already in progress",
	}
}

func newDetachedAccessorError(typ, key string) *Error {
	return &Error{
		Code:    ErrCodeDetachedAccessor,
		Message: "object has been removed or its transaction was cancelled",
		Type:    typ,
		Key:     key,
	}
}

func newInvalidKeyPathError(typ, keyPath, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidKeyPath,
		Message: reason,
		Type:    typ,
		KeyPath: keyPath,
	}
}

func newTypeMismatchError(typ, keyPath string, err error) *Error {
	return &Error{
		Code:    ErrCodeTypeMismatch,
		Message: err.Error(),
		Type:    typ,
		KeyPath: keyPath,
	}
}

func newPrimaryKeyImmutableError(typ, key, keyPath string) *Error {
	return &Error{
		Code:    ErrCodePrimaryKeyImmutable,
		Message: "primary key cannot change once persisted",
		Type:    typ,
		Key:     key,
		KeyPath: keyPath,
	}
}

func newUnknownTypeError(typ string) *Error {
	return &Error{
		Code:    ErrCodeUnknownType,
		Message: "model type is not registered",
		Type:    typ,
	}
}

func newNoPrimaryKeyError(typ string) *Error {
	return &Error{
		Code:    ErrCodeNoPrimaryKey,
		Message: "model type declares no primary key",
		Type:    typ,
	}
}

func newInvalidObjectError(reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidObject,
		Message: reason,
	}
}
