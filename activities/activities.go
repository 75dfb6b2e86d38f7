// Package activities is the catalog of chat activities workflows can use out of the box. Each kind
// is a thin executor around one messaging.Client call.
package activities

import (
	"context"
	"fmt"
	"strconv"

	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/messaging"
	"github.com/yinan-symphony/symphony-wdk/registry"
)

const (
	KindSendMessage   = "send-message"
	KindUpdateMessage = "update-message"
	KindCreateRoom    = "create-room"
	KindAddRoomMember = "add-room-member"
	KindGetUsers      = "get-users"
)

// ErrMissingParam is returned when an activity lacks a parameter its kind requires.
type ErrMissingParam struct {
	Kind  string
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("activity kind %s requires parameter %q", e.Kind, e.Param)
}

type catalog struct {
	client messaging.Client
}

// Register adds every catalog kind to r, backed by client.
func Register(r *registry.Registry, client messaging.Client) error {
	c := &catalog{client: client}

	kinds := map[string]activity.ExecutorFunc{
		KindSendMessage:   c.sendMessage,
		KindUpdateMessage: c.updateMessage,
		KindCreateRoom:    c.createRoom,
		KindAddRoomMember: c.addRoomMember,
		KindGetUsers:      c.getUsers,
	}

	for kind, fn := range kinds {
		if err := r.RegisterActivityFunc(kind, fn); err != nil {
			return fmt.Errorf("registering %s: %w", kind, err)
		}
	}

	return nil
}

// sendMessage posts "content" to the stream "to". Without "to" it replies in the stream of the
// event that reached the activity.
func (c *catalog) sendMessage(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
	content := ex.String("content")
	if content == "" {
		return nil, &ErrMissingParam{KindSendMessage, "content"}
	}

	to := ex.String("to")
	if to == "" {
		to = eventStream(ex)
	}

	if to == "" {
		return nil, &ErrMissingParam{KindSendMessage, "to"}
	}

	messageID, err := c.client.Send(ctx, to, content)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	activity.Logger(ctx).Debug("Message sent", "stream", to, "message", messageID)

	return map[string]any{"msgId": messageID}, nil
}

func (c *catalog) updateMessage(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
	messageID := ex.String("messageId")
	if messageID == "" {
		return nil, &ErrMissingParam{KindUpdateMessage, "messageId"}
	}

	content := ex.String("content")
	if content == "" {
		return nil, &ErrMissingParam{KindUpdateMessage, "content"}
	}

	if err := c.client.Update(ctx, messageID, content); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	return map[string]any{"msgId": messageID}, nil
}

// createRoom has three modes: members with a name create a named room and add the members to it,
// members alone create a multi-party IM, a name alone creates an empty room.
func (c *catalog) createRoom(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
	members, err := userIDs(ex, "userIds")
	if err != nil {
		return nil, err
	}

	name := ex.String("roomName")
	attrs := messaging.RoomAttributes{
		Name:        name,
		Description: ex.String("roomDescription"),
		Public:      ex.Bool("public", false),
	}

	logger := activity.Logger(ctx)

	var roomID string
	switch {
	case len(members) > 0 && name != "":
		roomID, err = c.client.CreateRoom(ctx, attrs)
		if err != nil {
			return nil, fmt.Errorf("creating room: %w", err)
		}

		for _, uid := range members {
			if err := c.client.AddMember(ctx, roomID, uid); err != nil {
				return nil, fmt.Errorf("adding member %d to room %s: %w", uid, roomID, err)
			}
		}

		logger.Info("Room created", "name", name, "members", len(members), "room", roomID)

	case len(members) > 0:
		attrs.Members = members
		roomID, err = c.client.CreateRoom(ctx, attrs)
		if err != nil {
			return nil, fmt.Errorf("creating multi-party IM: %w", err)
		}

		logger.Info("Multi-party IM created", "members", len(members), "room", roomID)

	case name != "":
		roomID, err = c.client.CreateRoom(ctx, attrs)
		if err != nil {
			return nil, fmt.Errorf("creating room: %w", err)
		}

		logger.Info("Room created", "name", name, "room", roomID)

	default:
		return nil, &ErrMissingParam{KindCreateRoom, "roomName"}
	}

	return map[string]any{"roomId": roomID}, nil
}

func (c *catalog) addRoomMember(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
	roomID := ex.String("streamId")
	if roomID == "" {
		return nil, &ErrMissingParam{KindAddRoomMember, "streamId"}
	}

	members, err := userIDs(ex, "userIds")
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return nil, &ErrMissingParam{KindAddRoomMember, "userIds"}
	}

	for _, uid := range members {
		if err := c.client.AddMember(ctx, roomID, uid); err != nil {
			return nil, fmt.Errorf("adding member %d to room %s: %w", uid, roomID, err)
		}
	}

	return map[string]any{"roomId": roomID}, nil
}

func (c *catalog) getUsers(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
	ids, err := userIDs(ex, "userIds")
	if err != nil {
		return nil, err
	}

	criteria := messaging.UserCriteria{
		UserIDs:   ids,
		Emails:    ex.Strings("emails"),
		Usernames: ex.Strings("usernames"),
		Local:     ex.Bool("local", false),
	}

	if active, ok := ex.Params["active"].(bool); ok {
		criteria.Active = &active
	}

	if len(criteria.UserIDs) == 0 && len(criteria.Emails) == 0 && len(criteria.Usernames) == 0 {
		return nil, &ErrMissingParam{KindGetUsers, "userIds"}
	}

	users, err := c.client.LookupUsers(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("looking up users: %w", err)
	}

	// Outputs are read from expressions, keep them as plain values
	result := make([]any, 0, len(users))
	for _, u := range users {
		result = append(result, map[string]any{
			"userId":      u.UserID,
			"username":    u.Username,
			"displayName": u.DisplayName,
			"email":       u.Email,
		})
	}

	return map[string]any{"users": result}, nil
}

func eventStream(ex *activity.Execution) string {
	e := ex.Event
	if e == nil {
		return ""
	}

	if e.Message != nil && e.Message.Stream != nil {
		return e.Message.Stream.StreamID
	}

	if e.Stream != nil {
		return e.Stream.StreamID
	}

	return ""
}

// userIDs reads a list of user ids. Ids may be given as numbers or numeric strings.
func userIDs(ex *activity.Execution, name string) ([]int64, error) {
	var raw []any
	switch v := ex.Params[name].(type) {
	case nil:
		return nil, nil
	case []any:
		raw = v
	case []int64:
		return v, nil
	default:
		raw = []any{v}
	}

	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		switch id := r.(type) {
		case int:
			ids = append(ids, int64(id))
		case int64:
			ids = append(ids, id)
		case float64:
			ids = append(ids, int64(id))
		case string:
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: invalid user id %q", name, id)
			}
			ids = append(ids, n)
		default:
			return nil, fmt.Errorf("parameter %q: invalid user id %v", name, r)
		}
	}

	return ids, nil
}
