package samples

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/yinan-symphony/symphony-wdk/messaging"
)

// ConsoleClient is a messaging client that prints instead of talking to a chat platform.
type ConsoleClient struct {
	logger *slog.Logger

	mu       sync.Mutex
	messages map[string]string
	users    []messaging.User
}

var _ messaging.Client = (*ConsoleClient)(nil)

func NewConsoleClient(logger *slog.Logger, users ...messaging.User) *ConsoleClient {
	return &ConsoleClient{
		logger:   logger,
		messages: make(map[string]string),
		users:    users,
	}
}

func (c *ConsoleClient) Send(ctx context.Context, streamID string, content string) (string, error) {
	id := uuid.NewString()

	c.mu.Lock()
	c.messages[id] = content
	c.mu.Unlock()

	fmt.Printf("[%s] %s (message %s)\n", streamID, content, id)

	return id, nil
}

func (c *ConsoleClient) Update(ctx context.Context, messageID string, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.messages[messageID]; !ok {
		return messaging.ErrNotFound
	}

	c.messages[messageID] = content
	fmt.Printf("[updated %s] %s\n", messageID, content)

	return nil
}

func (c *ConsoleClient) GetMessage(ctx context.Context, messageID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, ok := c.messages[messageID]
	if !ok {
		return "", messaging.ErrNotFound
	}

	return content, nil
}

func (c *ConsoleClient) CreateRoom(ctx context.Context, attrs messaging.RoomAttributes) (string, error) {
	id := uuid.NewString()
	c.logger.InfoContext(ctx, "Created room", "room", id, "name", attrs.Name, "members", attrs.Members)

	return id, nil
}

func (c *ConsoleClient) AddMember(ctx context.Context, roomID string, userID int64) error {
	c.logger.InfoContext(ctx, "Added member", "room", roomID, "user", userID)

	return nil
}

func (c *ConsoleClient) LookupUsers(ctx context.Context, criteria messaging.UserCriteria) ([]messaging.User, error) {
	var result []messaging.User
	for _, u := range c.users {
		if matches(u, criteria) {
			result = append(result, u)
		}
	}

	return result, nil
}

func matches(u messaging.User, criteria messaging.UserCriteria) bool {
	for _, id := range criteria.UserIDs {
		if id == u.UserID {
			return true
		}
	}

	for _, email := range criteria.Emails {
		if email == u.Email {
			return true
		}
	}

	for _, username := range criteria.Usernames {
		if username == u.Username {
			return true
		}
	}

	return false
}
