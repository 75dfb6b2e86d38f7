package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		want    Kind
		wantKey string
		wantOK  bool
	}{
		{
			name: "message sent keyed by text",
			event: &Event{
				Type:    "MESSAGESENT",
				Message: &Message{MessageID: "m1", Text: " /go "},
			},
			want:    KindMessageReceived,
			wantKey: "/go",
			wantOK:  true,
		},
		{
			name:    "suppressed keyed by message id",
			event:   &Event{Type: "MESSAGESUPPRESSED", Message: &Message{MessageID: "m1"}},
			want:    KindMessageSuppressed,
			wantKey: "m1",
			wantOK:  true,
		},
		{
			name:    "room event keyed by stream",
			event:   &Event{Type: "USERJOINEDROOM", Stream: &Stream{StreamID: "s1"}},
			want:    KindUserJoinedRoom,
			wantKey: "s1",
			wantOK:  true,
		},
		{
			name:    "im created falls back to message stream",
			event:   &Event{Type: "INSTANTMESSAGECREATED", Message: &Message{Stream: &Stream{StreamID: "s2"}}},
			want:    KindIMCreated,
			wantKey: "s2",
			wantOK:  true,
		},
		{
			name:    "connection keyed by initiator",
			event:   &Event{Type: "CONNECTIONREQUESTED", Initiator: &User{Username: "bob"}},
			want:    KindConnectionRequested,
			wantKey: "bob",
			wantOK:  true,
		},
		{
			name: "form reply keyed by message and form",
			event: &Event{
				Type: "SYMPHONYELEMENTSACTION",
				Form: &FormReply{MessageID: "m1", FormID: "init", Values: map[string]any{"ticker": "GOOG"}},
			},
			want:    KindFormReplied,
			wantKey: "m1:init",
			wantOK:  true,
		},
		{
			name:    "missing payload yields empty key",
			event:   &Event{Type: "MESSAGESENT"},
			want:    KindMessageReceived,
			wantKey: "",
			wantOK:  true,
		},
		{
			name:  "unknown type",
			event: &Event{Type: "MESSAGEREACTION"},
		},
		{
			name: "nil event",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, key, ok := Classify(tt.event)

			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, kind)
			require.Equal(t, tt.wantKey, key)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	require.Panics(t, func() {
		Register("MESSAGESENT", KindMessageReceived, messageText)
	})
}

func TestKnown(t *testing.T) {
	require.True(t, Known(KindFormReplied))
	require.False(t, Known(Kind("message-reacted")))
}

func TestEvent_Values(t *testing.T) {
	e := &Event{
		ID:        "e1",
		Type:      "SYMPHONYELEMENTSACTION",
		Initiator: &User{UserID: 42, Username: "alice"},
		Stream:    &Stream{StreamID: "s1"},
		Form:      &FormReply{MessageID: "m1", FormID: "init", Values: map[string]any{"ticker": "GOOG"}},
	}

	v := e.Values()

	require.Equal(t, "e1", v["id"])
	require.Equal(t, "alice", v["initiator"].(map[string]any)["username"])
	require.Equal(t, "s1", v["stream"].(map[string]any)["streamId"])
	require.Equal(t, "GOOG", v["form"].(map[string]any)["values"].(map[string]any)["ticker"])
	require.NotContains(t, v, "message")

	var nilEvent *Event
	require.Nil(t, nilEvent.Values())
}
