// Package messaging is the chat platform capability activities use to talk to users. The engine
// never calls it directly; executors do, and any error they get back fails the activity.
package messaging

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// RoomAttributes describes a room to create. A room with members but no name is created as a
// multi-party IM.
type RoomAttributes struct {
	Name        string
	Description string
	Public      bool

	Members []int64
}

// UserCriteria selects users by id, email or username. Exactly one of the lists is expected to
// be set.
type UserCriteria struct {
	UserIDs   []int64
	Emails    []string
	Usernames []string

	// Local restricts the search to the local pod.
	Local bool

	// Active filters on the user's status, nil returns both.
	Active *bool
}

type User struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type Client interface {
	// Send posts content to a stream and returns the id of the new message.
	Send(ctx context.Context, streamID string, content string) (string, error)

	// Update replaces the content of a message.
	Update(ctx context.Context, messageID string, content string) error

	// GetMessage returns the content of a message or ErrNotFound.
	GetMessage(ctx context.Context, messageID string) (string, error)

	// CreateRoom creates a room or multi-party IM and returns its stream id.
	CreateRoom(ctx context.Context, attrs RoomAttributes) (string, error)

	AddMember(ctx context.Context, roomID string, userID int64) error

	LookupUsers(ctx context.Context, criteria UserCriteria) ([]User, error)
}
