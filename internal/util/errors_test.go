package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		field          string
		message        string
		cause          error
		expectedString string
	}{
		{
			name:           "with field",
			field:          "route./user/{id}",
			message:        `constraint rules for the variable "id" was not found`,
			expectedString: `config error at route./user/{id}: constraint rules for the variable "id" was not found`,
		},
		{
			name:           "without field",
			message:        "invalid configuration",
			expectedString: "config error: invalid configuration",
		},
		{
			name:           "with cause",
			field:          "handler.Files",
			message:        "invalid handler",
			cause:          errors.New("boom"),
			expectedString: "config error at handler.Files: invalid handler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err *ConfigError
			if tt.cause != nil {
				err = NewConfigErrorWithCause(tt.field, tt.message, tt.cause)
			} else {
				err = NewConfigError(tt.field, tt.message)
			}

			assert.Equal(t, tt.expectedString, err.Error())
			assert.Equal(t, tt.cause, err.Unwrap())
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestConfigError_Is(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := NewConfigErrorWithCause("field", "message", cause)

	assert.True(t, errors.Is(err, &ConfigError{}))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNotFound))

	var target *ConfigError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "field", target.Field)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("invalid configuration")
	assert.False(t, err.HasErrors())
	assert.Equal(t, "validation error: invalid configuration", err.Error())

	err.AddField("server.port", "must be between 1 and 65535")
	assert.True(t, err.HasErrors())
	assert.Contains(t, err.Error(), "server.port")
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := &ValidationError{}
	empty.AddField("a", "b")
	assert.Len(t, empty.Fields, 1)
}

func TestDispatchError(t *testing.T) {
	t.Parallel()

	cause := errors.New("handler exploded")
	err := NewDispatchError("/users/1", cause)

	assert.Equal(t, "dispatch of /users/1 failed: handler exploded", err.Error())
	assert.ErrorIs(t, err, ErrDispatch)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(nil, "context"))

	base := errors.New("base")
	wrapped := WrapError(base, "context")
	assert.EqualError(t, wrapped, "context: base")
	assert.ErrorIs(t, wrapped, base)
}
