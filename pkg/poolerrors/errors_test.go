package poolerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypePoolNotFound, "no pool for type")

	assert.Equal(t, ErrorTypePoolNotFound, err.Type)
	assert.Equal(t, "pool_not_found: no pool for type", err.Error())
	assert.NotEmpty(t, err.Stack)
	assert.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	cause := errors.New("factory exploded")
	err := Wrap(cause, ErrorTypeCreationFailed, "spawn failed")

	require.NotNil(t, err)
	assert.Equal(t, "creation_failed: spawn failed: factory exploded", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(nil, ErrorTypeCreationFailed, "unused"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeInvalidArgument, "nil instance")
	outer := Wrap(inner, ErrorTypeInternal, "while seeding")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeInternal))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeInstanceNotActive, "not found in active set").
		WithDetail("type", "projectile").
		WithDetail("instance", "projectile#3")

	assert.Equal(t, "projectile", err.Details["type"])
	assert.Equal(t, "projectile#3", err.Details["instance"])
}

func TestIsTypeAndTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"direct", New(ErrorTypeInvalidArgument, "x"), ErrorTypeInvalidArgument},
		{"fmt wrapped", fmt.Errorf("outer: %w", New(ErrorTypePoolNotFound, "x")), ErrorTypePoolNotFound},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
			if tt.want != "" {
				assert.True(t, IsType(tt.err, tt.want))
			}
			assert.False(t, IsType(tt.err, ErrorTypeUnsupported))
		})
	}
}
