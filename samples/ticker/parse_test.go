package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/activities"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/graph"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/samples"
	"github.com/yinan-symphony/symphony-wdk/swadl"
)

func Test_ParseLine(t *testing.T) {
	ev, err := parseLine("/ticker")
	require.NoError(t, err)
	require.Equal(t, "MESSAGESENT", ev.Type)
	require.Equal(t, "/ticker", ev.Message.Text)

	kind, key, ok := event.Classify(ev)
	require.True(t, ok)
	require.Equal(t, event.KindMessageReceived, kind)
	require.Equal(t, "/ticker", key)

	ev, err = parseLine("form m1 askTicker ticker=GOOG")
	require.NoError(t, err)
	require.Equal(t, "m1", ev.Form.MessageID)
	require.Equal(t, "askTicker", ev.Form.FormID)
	require.Equal(t, map[string]any{"ticker": "GOOG"}, ev.Form.Values)

	_, err = parseLine("form m1")
	require.Error(t, err)
}

func Test_DefinitionCompiles(t *testing.T) {
	def, err := swadl.ParseBytes(definition)
	require.NoError(t, err)

	r := registry.New()
	require.NoError(t, activities.Register(r, samples.NewConsoleClient(slog.Default())))

	_, err = graph.Compile(def, r)
	require.NoError(t, err)
}
