package workflowerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_FromError_Nil(t *testing.T) {
	err := FromError(nil)
	require.Nil(t, err)
}

func Test_FromError_DoesNotWrapAgain(t *testing.T) {
	err := FromError(errors.New("foo"))

	err2 := FromError(err)
	require.Same(t, err, err2)
	require.NoError(t, errors.Unwrap(err2))
}

func Test_FromError_Chain(t *testing.T) {
	input := fmt.Errorf("sending message: %w", errors.New("connection reset"))
	e := FromError(input)

	var expectedType *Error
	require.ErrorAs(t, e, &expectedType)
	require.EqualError(t, e, "sending message: connection reset")
	require.EqualError(t, e.Cause, "connection reset")
}

func Test_ForActivity(t *testing.T) {
	base := FromError(errors.New("foo"))
	e := ForActivity("sendMessage", base)

	require.Equal(t, "sendMessage", e.ActivityID)
	require.Empty(t, base.ActivityID)
	require.Nil(t, ForActivity("sendMessage", nil))
}

func Test_RoundTrip(t *testing.T) {
	e := ForActivity("pong", fmt.Errorf("outer: %w", errors.New("inner")))

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var out Error
	require.NoError(t, json.Unmarshal(b, &out))

	require.Equal(t, "outer: inner", out.Message)
	require.Equal(t, "pong", out.ActivityID)
	require.EqualError(t, out.Cause, "inner")
}

func Test_Root(t *testing.T) {
	e := FromError(fmt.Errorf("a: %w", fmt.Errorf("b: %w", &CustomError{msg: "c"})))

	require.Equal(t, "CustomError", e.Root().Type)
	require.Equal(t, "c", e.Root().Message)

	var ce *Error
	require.ErrorAs(t, e, &ce)
	require.Nil(t, (*Error)(nil).Root())
}
