package workflowerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type CustomError struct {
	msg string
}

func (ce *CustomError) Error() string {
	return ce.msg
}

type valueError struct{}

func (valueError) Error() string {
	return "value"
}

func Test_typeName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"errors.New", errors.New("test"), ""},
		{"fmt.Errorf", fmt.Errorf("wrapped: %w", errors.New("test")), ""},
		{"errors.Join", errors.Join(errors.New("a"), errors.New("b")), ""},
		{"converted", FromError(errors.New("test")), "Error"},
		{"pointer", &CustomError{msg: "test"}, "CustomError"},
		{"value", valueError{}, "valueError"},
		{"panic", NewPanicError("boom"), "PanicError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, typeName(tt.err))
		})
	}
}
