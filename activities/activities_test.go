package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/messaging"
	"github.com/yinan-symphony/symphony-wdk/registry"
)

func execute(t *testing.T, client messaging.Client, kind string, ex *activity.Execution) (map[string]any, error) {
	t.Helper()

	r := registry.New()
	require.NoError(t, Register(r, client))

	e, err := r.GetActivity(kind)
	require.NoError(t, err)

	ex.Kind = kind
	return e.Execute(context.Background(), ex)
}

func Test_Register_Conflict(t *testing.T) {
	r := registry.New()
	require.NoError(t, Register(r, &messaging.MockClient{}))
	require.Error(t, Register(r, &messaging.MockClient{}))
}

func Test_SendMessage(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		event   *event.Event
		stream  string
		wantErr string
	}{
		{
			name:   "explicit stream",
			params: map[string]any{"to": "s1", "content": "hi"},
			stream: "s1",
		},
		{
			name:   "replies in event stream",
			params: map[string]any{"content": "hi"},
			event:  &event.Event{Message: &event.Message{Stream: &event.Stream{StreamID: "s2"}}},
			stream: "s2",
		},
		{
			name:    "missing content",
			params:  map[string]any{"to": "s1"},
			wantErr: `activity kind send-message requires parameter "content"`,
		},
		{
			name:    "no stream",
			params:  map[string]any{"content": "hi"},
			wantErr: `activity kind send-message requires parameter "to"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &messaging.MockClient{}
			if tt.stream != "" {
				m.On("Send", mock.Anything, tt.stream, "hi").Return("m1", nil)
			}

			out, err := execute(t, m, KindSendMessage, &activity.Execution{Params: tt.params, Event: tt.event})

			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			require.Equal(t, map[string]any{"msgId": "m1"}, out)
			m.AssertExpectations(t)
		})
	}
}

func Test_SendMessage_ClientError(t *testing.T) {
	m := &messaging.MockClient{}
	m.On("Send", mock.Anything, "s1", "hi").Return("", errors.New("unavailable"))

	_, err := execute(t, m, KindSendMessage, &activity.Execution{Params: map[string]any{"to": "s1", "content": "hi"}})
	require.EqualError(t, err, "sending message: unavailable")
}

func Test_UpdateMessage(t *testing.T) {
	m := &messaging.MockClient{}
	m.On("Update", mock.Anything, "m1", "new").Return(nil)

	out, err := execute(t, m, KindUpdateMessage, &activity.Execution{Params: map[string]any{"messageId": "m1", "content": "new"}})
	require.NoError(t, err)
	require.Equal(t, "m1", out["msgId"])
	m.AssertExpectations(t)
}

func Test_CreateRoom_Modes(t *testing.T) {
	t.Run("members and name", func(t *testing.T) {
		m := &messaging.MockClient{}
		m.On("CreateRoom", mock.Anything, messaging.RoomAttributes{Name: "ops", Description: "d", Public: true}).Return("r1", nil)
		m.On("AddMember", mock.Anything, "r1", int64(1)).Return(nil)
		m.On("AddMember", mock.Anything, "r1", int64(2)).Return(nil)

		out, err := execute(t, m, KindCreateRoom, &activity.Execution{Params: map[string]any{
			"userIds":         []any{1, "2"},
			"roomName":        "ops",
			"roomDescription": "d",
			"public":          true,
		}})
		require.NoError(t, err)
		require.Equal(t, "r1", out["roomId"])
		m.AssertExpectations(t)
	})

	t.Run("members only", func(t *testing.T) {
		m := &messaging.MockClient{}
		m.On("CreateRoom", mock.Anything, messaging.RoomAttributes{Members: []int64{1, 2}}).Return("mim", nil)

		out, err := execute(t, m, KindCreateRoom, &activity.Execution{Params: map[string]any{
			"userIds": []any{float64(1), int64(2)},
		}})
		require.NoError(t, err)
		require.Equal(t, "mim", out["roomId"])
		m.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("name only", func(t *testing.T) {
		m := &messaging.MockClient{}
		m.On("CreateRoom", mock.Anything, messaging.RoomAttributes{Name: "ops"}).Return("r2", nil)

		out, err := execute(t, m, KindCreateRoom, &activity.Execution{Params: map[string]any{"roomName": "ops"}})
		require.NoError(t, err)
		require.Equal(t, "r2", out["roomId"])
	})

	t.Run("nothing", func(t *testing.T) {
		_, err := execute(t, &messaging.MockClient{}, KindCreateRoom, &activity.Execution{Params: map[string]any{}})

		var missing *ErrMissingParam
		require.ErrorAs(t, err, &missing)
		require.Equal(t, "roomName", missing.Param)
	})

	t.Run("invalid user id", func(t *testing.T) {
		_, err := execute(t, &messaging.MockClient{}, KindCreateRoom, &activity.Execution{Params: map[string]any{
			"userIds": []any{"abc"},
		}})
		require.EqualError(t, err, `parameter "userIds": invalid user id "abc"`)
	})
}

func Test_AddRoomMember(t *testing.T) {
	m := &messaging.MockClient{}
	m.On("AddMember", mock.Anything, "r1", int64(5)).Return(nil)

	out, err := execute(t, m, KindAddRoomMember, &activity.Execution{Params: map[string]any{
		"streamId": "r1",
		"userIds":  5,
	}})
	require.NoError(t, err)
	require.Equal(t, "r1", out["roomId"])
	m.AssertExpectations(t)

	_, err = execute(t, m, KindAddRoomMember, &activity.Execution{Params: map[string]any{"streamId": "r1"}})
	require.EqualError(t, err, `activity kind add-room-member requires parameter "userIds"`)
}

func Test_GetUsers(t *testing.T) {
	active := true
	m := &messaging.MockClient{}
	m.On("LookupUsers", mock.Anything, messaging.UserCriteria{
		Usernames: []string{"alice"},
		Local:     true,
		Active:    &active,
	}).Return([]messaging.User{{UserID: 1, Username: "alice", Email: "a@example.com"}}, nil)

	out, err := execute(t, m, KindGetUsers, &activity.Execution{Params: map[string]any{
		"usernames": []any{"alice"},
		"local":     true,
		"active":    true,
	}})
	require.NoError(t, err)

	users := out["users"].([]any)
	require.Len(t, users, 1)
	require.Equal(t, "a@example.com", users[0].(map[string]any)["email"])
}

func Test_GetUsers_NoCriteria(t *testing.T) {
	_, err := execute(t, &messaging.MockClient{}, KindGetUsers, &activity.Execution{Params: map[string]any{}})
	require.EqualError(t, err, `activity kind get-users requires parameter "userIds"`)
}
