package messaging

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client.
type MockClient struct {
	mock.Mock
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Send(ctx context.Context, streamID string, content string) (string, error) {
	args := m.Called(ctx, streamID, content)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Update(ctx context.Context, messageID string, content string) error {
	args := m.Called(ctx, messageID, content)
	return args.Error(0)
}

func (m *MockClient) GetMessage(ctx context.Context, messageID string) (string, error) {
	args := m.Called(ctx, messageID)
	return args.String(0), args.Error(1)
}

func (m *MockClient) CreateRoom(ctx context.Context, attrs RoomAttributes) (string, error) {
	args := m.Called(ctx, attrs)
	return args.String(0), args.Error(1)
}

func (m *MockClient) AddMember(ctx context.Context, roomID string, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *MockClient) LookupUsers(ctx context.Context, criteria UserCriteria) ([]User, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]User), args.Error(1)
}
