package event

// Kind is the engine-level classification of an event. Triggers and waits bind to kinds, never to
// raw datafeed types.
type Kind string

const (
	KindMessageReceived   = Kind("message-received")
	KindMessageSuppressed = Kind("message-suppressed")
	KindPostShared        = Kind("post-shared")
	KindIMCreated         = Kind("im-created")

	KindRoomCreated     = Kind("room-created")
	KindRoomUpdated     = Kind("room-updated")
	KindRoomDeactivated = Kind("room-deactivated")
	KindRoomReactivated = Kind("room-reactivated")

	KindRoomMemberPromoted = Kind("room-member-promoted-to-owner")
	KindRoomMemberDemoted  = Kind("room-member-demoted-from-owner")

	KindUserJoinedRoom        = Kind("user-joined-room")
	KindUserLeftRoom          = Kind("user-left-room")
	KindUserRequestedJoinRoom = Kind("user-requested-join-room")

	KindConnectionRequested = Kind("connection-requested")
	KindConnectionAccepted  = Kind("connection-accepted")

	KindFormReplied = Kind("form-replied")
)

// FormKey is the correlation key of a reply to form formID posted in message messageID.
func FormKey(messageID, formID string) string {
	return messageID + ":" + formID
}
