package variables

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_Get(t *testing.T) {
	s := New(map[string]any{"owner": "alice"})
	s.SetOutputs("sendForm", map[string]any{
		"msgId": "m1",
		"event": map[string]any{"initiator": map[string]any{"username": "bob"}},
	})

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{"sendForm.msgId", "m1", true},
		{"sendForm.event.initiator.username", "bob", true},
		{"variables.owner", "alice", true},
		{"sendForm.missing", nil, false},
		{"sendForm.msgId.deeper", nil, false},
		{"unknown.msgId", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := s.Get(tt.path)

			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStore_SetOutputsOverwritesOnlyOwnActivity(t *testing.T) {
	s := New(nil)
	s.SetOutputs("a", map[string]any{"x": 1, "y": 2})
	s.SetOutputs("b", map[string]any{"x": 3})

	s.SetOutputs("a", map[string]any{"x": 10})

	a, ok := s.Outputs("a")
	require.True(t, ok)
	require.Equal(t, map[string]any{"x": 10}, a)

	b, ok := s.Outputs("b")
	require.True(t, ok)
	require.Equal(t, map[string]any{"x": 3}, b)
}

func TestStore_SetOutput(t *testing.T) {
	s := New(nil)
	s.SetOutputs("a", map[string]any{"x": 1})
	s.SetOutput("a", "event", "e")
	s.SetOutput("c", "event", "f")

	a, _ := s.Outputs("a")
	require.Equal(t, map[string]any{"x": 1, "event": "e"}, a)

	c, _ := s.Outputs("c")
	require.Equal(t, map[string]any{"event": "f"}, c)
}

func TestStore_CopiesAreIsolated(t *testing.T) {
	input := map[string]any{"list": []any{1, 2}, "nested": map[string]any{"k": "v"}}

	s := New(nil)
	s.SetOutputs("a", input)
	input["nested"].(map[string]any)["k"] = "changed"

	out, _ := s.Outputs("a")
	out["list"].([]any)[0] = 99

	got, ok := s.Get("a.nested.k")
	require.True(t, ok)
	require.Equal(t, "v", got)

	again, _ := s.Outputs("a")
	require.Equal(t, 1, again["list"].([]any)[0])
}

func TestStore_Activation(t *testing.T) {
	s := New(map[string]any{"limit": 3})
	s.SetOutputs("a", map[string]any{"x": 1})

	act := s.Activation([]string{"a", "b"})

	require.Equal(t, map[string]any{"x": 1}, act["a"])
	require.Equal(t, map[string]any{}, act["b"])
	require.Equal(t, map[string]any{"limit": 3}, act[VariablesKey])
}

func TestStore_Snapshot(t *testing.T) {
	s := New(nil)
	require.Empty(t, s.Snapshot())

	s.SetVariable("count", 1)
	s.SetOutputs("a", map[string]any{"x": 1})

	require.Equal(t, map[string]any{
		"a":          map[string]any{"x": 1},
		VariablesKey: map[string]any{"count": 1},
	}, s.Snapshot())
}
