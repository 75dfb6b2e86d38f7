package event

import (
	"fmt"
	"strings"
)

// KeyFunc extracts the correlation key of an event. An empty key means the event cannot be
// correlated.
type KeyFunc func(*Event) string

type classification struct {
	kind Kind
	key  KeyFunc
}

// taxonomy maps datafeed event types to their kind and key extractor. It is filled during package
// initialization and only read afterwards.
var taxonomy = map[string]classification{}

// Register adds a datafeed event type to the taxonomy. It must only be called from init functions,
// registering the same type twice panics.
func Register(eventType string, kind Kind, key KeyFunc) {
	if _, ok := taxonomy[eventType]; ok {
		panic(fmt.Sprintf("event type %q already registered", eventType))
	}

	taxonomy[eventType] = classification{kind: kind, key: key}
}

// Classify returns the kind and correlation key of e. ok is false for unknown event types.
func Classify(e *Event) (kind Kind, key string, ok bool) {
	if e == nil {
		return "", "", false
	}

	c, ok := taxonomy[e.Type]
	if !ok {
		return "", "", false
	}

	return c.kind, c.key(e), true
}

// Known reports whether some registered event type classifies into kind.
func Known(kind Kind) bool {
	for _, c := range taxonomy {
		if c.kind == kind {
			return true
		}
	}

	return false
}

func messageText(e *Event) string {
	if e.Message == nil {
		return ""
	}

	return strings.TrimSpace(e.Message.Text)
}

func messageID(e *Event) string {
	if e.Message == nil {
		return ""
	}

	return e.Message.MessageID
}

func streamID(e *Event) string {
	if s := e.stream(); s != nil {
		return s.StreamID
	}

	return ""
}

func initiatorUsername(e *Event) string {
	if e.Initiator == nil {
		return ""
	}

	return e.Initiator.Username
}

func formKey(e *Event) string {
	if e.Form == nil {
		return ""
	}

	return FormKey(e.Form.MessageID, e.Form.FormID)
}

func init() {
	Register("MESSAGESENT", KindMessageReceived, messageText)
	Register("MESSAGESUPPRESSED", KindMessageSuppressed, messageID)
	Register("SHAREDPOST", KindPostShared, messageText)
	Register("INSTANTMESSAGECREATED", KindIMCreated, streamID)

	Register("ROOMCREATED", KindRoomCreated, streamID)
	Register("ROOMUPDATED", KindRoomUpdated, streamID)
	Register("ROOMDEACTIVATED", KindRoomDeactivated, streamID)
	Register("ROOMREACTIVATED", KindRoomReactivated, streamID)
	Register("ROOMMEMBERPROMOTEDTOOWNER", KindRoomMemberPromoted, streamID)
	Register("ROOMMEMBERDEMOTEDFROMOWNER", KindRoomMemberDemoted, streamID)

	Register("USERJOINEDROOM", KindUserJoinedRoom, streamID)
	Register("USERLEFTROOM", KindUserLeftRoom, streamID)
	Register("USERREQUESTEDTOJOINROOM", KindUserRequestedJoinRoom, streamID)

	Register("CONNECTIONREQUESTED", KindConnectionRequested, initiatorUsername)
	Register("CONNECTIONACCEPTED", KindConnectionAccepted, initiatorUsername)

	Register("SYMPHONYELEMENTSACTION", KindFormReplied, formKey)
}
