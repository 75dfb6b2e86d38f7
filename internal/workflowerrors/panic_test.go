package workflowerrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewPanicError(t *testing.T) {
	var e *PanicError

	func() {
		defer func() {
			if r := recover(); r != nil {
				e = NewPanicError(r)
			}
		}()

		panic("boom")
	}()

	require.NotNil(t, e)
	require.Equal(t, "panic: boom", e.Error())
	require.Contains(t, e.Stack(), "Test_NewPanicError")
}

func Test_PanicError_Converts(t *testing.T) {
	e := FromError(&PanicError{message: "panic: x", stacktrace: "trace"})

	require.Equal(t, "PanicError", e.Type)
	require.Equal(t, "panic: x", e.Message)
	require.Equal(t, "trace", e.Stacktrace)
}
