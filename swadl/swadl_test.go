package swadl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	wdkactivity "github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/graph"
	"github.com/yinan-symphony/symphony-wdk/registry"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

const ticker = `
id: ticker
variables:
  owner: alice
activities:
  - id: sendForm
    kind: send
    on:
      event: message-received
      key: /go
    params:
      content: Which ticker?
  - id: reply
    on:
      form-id: sendForm
      exclusive: true
    timeout: 1h
    on-expired: tooLate
  - id: R0
    kind: send
  - id: R1
    kind: send
  - id: R2
    kind: send
  - id: tooLate
    kind: send
transitions:
  - from: sendForm
    to: reply
  - from: reply
    to: R0
    if: reply.ticker == "GOOG"
  - from: reply
    to: R1
    if: ${reply.ticker == "GOOGLE"}
  - from: R0
    to: R2
  - from: R1
    to: R2
`

func Test_Parse(t *testing.T) {
	def, err := ParseBytes([]byte(ticker))
	require.NoError(t, err)

	require.Equal(t, "ticker", def.ID)
	require.Equal(t, "alice", def.Variables["owner"])
	require.Len(t, def.Activities, 6)
	require.Len(t, def.Transitions, 5)

	require.Equal(t, []workflow.Trigger{
		{Event: event.KindMessageReceived, Key: "/go", Activity: "sendForm"},
	}, def.Triggers)

	send := def.Activities[0]
	require.Nil(t, send.Wait)
	require.Equal(t, "Which ticker?", send.Params["content"])

	reply := def.Activities[1]
	require.Empty(t, reply.Kind)
	require.Equal(t, &workflow.Wait{Event: event.KindFormReplied, FormID: "sendForm", Exclusive: true}, reply.Wait)
	require.Equal(t, time.Hour, reply.Timeout)
	require.Equal(t, "tooLate", reply.OnExpired)

	require.Equal(t, `${reply.ticker == "GOOGLE"}`, def.Transitions[2].If)
}

func Test_Parse_Compiles(t *testing.T) {
	def, err := ParseBytes([]byte(ticker))
	require.NoError(t, err)

	r := registry.New()
	require.NoError(t, r.RegisterActivityFunc("send", func(ctx context.Context, ex *wdkactivity.Execution) (map[string]any, error) {
		return nil, nil
	}))

	_, err = graph.Compile(def, r)
	require.NoError(t, err)
}

func Test_Parse_ExplicitTrigger(t *testing.T) {
	def, err := ParseBytes([]byte(`
id: greet
activities:
  - id: hello
    kind: send
triggers:
  - event: user-joined-room
    activity: hello
`))
	require.NoError(t, err)
	require.Equal(t, []workflow.Trigger{{Event: event.KindUserJoinedRoom, Activity: "hello"}}, def.Triggers)
}

func Test_Parse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "empty",
			doc:  "",
			want: "invalid workflow definition: empty document",
		},
		{
			name: "missing id",
			doc:  "activities: []",
			want: "invalid workflow definition at id: missing workflow id",
		},
		{
			name: "unknown field",
			doc:  "id: x\nactivites: []",
			want: "field activites not found",
		},
		{
			name: "bad timeout",
			doc:  "id: x\nactivities:\n  - id: a\n    timeout: soon",
			want: "activities[0].timeout",
		},
		{
			name: "unknown event",
			doc:  "id: x\nactivities:\n  - id: a\n    on:\n      event: nope",
			want: `invalid workflow definition at activities[0].on: unknown event "nope"`,
		},
		{
			name: "form id on message",
			doc:  "id: x\nactivities:\n  - id: a\n    on:\n      event: message-received\n      form-id: f",
			want: "form-id requires event form-replied",
		},
		{
			name: "unknown trigger event",
			doc:  "id: x\ntriggers:\n  - event: nope\n    activity: a",
			want: "triggers[0].event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func Test_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticker.swadl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ticker), 0o600))

	def, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "ticker", def.ID)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
