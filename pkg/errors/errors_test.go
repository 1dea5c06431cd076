package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeFile, "read failed")
	outer := Wrap(inner, ErrorTypeData, "load failed")

	require.NotNil(t, outer)
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeData))
	assert.Equal(t, "data: load failed: file: read failed", outer.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeData, "nothing"))
}

func TestIsTypeOnForeignError(t *testing.T) {
	assert.False(t, IsType(io.EOF, ErrorTypeNotFound))
	assert.False(t, IsType(nil, ErrorTypeNotFound))
}

func TestKindConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want ErrorType
	}{
		{"not found", NotFound("model not found", "models/rf.json"), ErrorTypeNotFound},
		{"not fitted", NotFitted("call FitTransform before Transform"), ErrorTypeNotFitted},
		{"schema", SchemaMismatch([]string{"a"}, nil, nil), ErrorTypeSchemaMismatch},
		{"validation", Validation("missing values", []string{"a"}), ErrorTypeValidation},
		{"config", Configuration("unknown model type"), ErrorTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Type)
			assert.NotEmpty(t, tt.err.Stack)
			assert.Contains(t, tt.err.Stack[0].Function, "TestKindConstructors")
		})
	}
}

func TestColumnsThroughWrap(t *testing.T) {
	err := Wrap(Validation("bad", []string{"x", "y"}), ErrorTypeValidation, "predict")
	// Wrap does not copy details; Columns finds the outermost *Error.
	assert.Nil(t, Columns(err))

	var inner *Error
	require.True(t, stderrors.As(err.Cause, &inner))
	assert.Equal(t, []string{"x", "y"}, Columns(inner))
}
