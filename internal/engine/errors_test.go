package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{
			newDuplicateKeyError("KVOObject", "i:1"),
			"DUPLICATE_KEY: an object with this primary key already exists (object=KVOObject(i:1))",
		},
		{
			newInvalidKeyPathError("KVOObject", "ignored", "property is ignored and cannot be tracked"),
			"INVALID_KEY_PATH: property is ignored and cannot be tracked (type=KVOObject, key_path=ignored)",
		},
		{
			newPrimaryKeyImmutableError("KVOObject", "i:1", "pk"),
			"PRIMARY_KEY_IMMUTABLE: primary key cannot change once persisted (object=KVOObject(i:1), key_path=pk)",
		},
		{
			newUnknownTypeError("Missing"),
			"UNKNOWN_TYPE: model type is not registered (type=Missing)",
		},
		{
			newTransactionAlreadyActiveError(),
			"TRANSACTION_ALREADY_ACTIVE: a write transaction is already in progress",
		},
		{
			&Error{Code: ErrCodeInvalidObject},
			"INVALID_OBJECT: engine error",
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	wrapped := fmt.Errorf("open store: %w", newDuplicateKeyError("KVOObject", "i:1"))

	assert.ErrorIs(t, wrapped, ErrDuplicateKey)
	assert.NotErrorIs(t, wrapped, ErrInvalidObject)
	assert.True(t, IsDuplicateKey(wrapped))
	assert.False(t, IsDetachedAccessor(wrapped))
	assert.Equal(t, ErrCodeDuplicateKey, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsTypeMismatch(nil))
}

func TestError_TypeMismatchKeepsCause(t *testing.T) {
	err := newTypeMismatchError("KVOObject", "int8Col", errors.New("300 overflows int8"))
	assert.Contains(t, err.Error(), "300 overflows int8")
	assert.Equal(t, "int8Col", err.KeyPath)
}
