// Package event models the platform events delivered by the datafeed and classifies them into
// the kinds workflows can wait on.
package event

import "time"

// Event is one platform event as delivered by the feed. Only the sections relevant to its type
// are set.
type Event struct {
	// ID identifies the delivery; redelivered events carry the same ID.
	ID string `json:"id"`

	// Type is the datafeed event class, e.g. MESSAGESENT.
	Type string `json:"type"`

	Timestamp time.Time `json:"timestamp,omitempty"`

	Initiator *User      `json:"initiator,omitempty"`
	Message   *Message   `json:"message,omitempty"`
	Stream    *Stream    `json:"stream,omitempty"`
	Form      *FormReply `json:"form,omitempty"`

	// Affected is the user a membership or connection event is about.
	Affected *User `json:"affected,omitempty"`
}

type User struct {
	UserID      int64  `json:"userId,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type Stream struct {
	StreamID   string `json:"streamId,omitempty"`
	StreamType string `json:"streamType,omitempty"`
	RoomName   string `json:"roomName,omitempty"`
}

type Message struct {
	MessageID string  `json:"messageId,omitempty"`
	Text      string  `json:"text,omitempty"`
	Stream    *Stream `json:"stream,omitempty"`
}

// FormReply is the submission of a form previously posted by the bot.
type FormReply struct {
	// MessageID is the id of the message carrying the form.
	MessageID string         `json:"messageId"`
	FormID    string         `json:"formId"`
	Values    map[string]any `json:"values,omitempty"`
}

// Values flattens the event into plain maps so it can be stored as an activity output and read
// from expressions.
func (e *Event) Values() map[string]any {
	if e == nil {
		return nil
	}

	v := map[string]any{
		"id":   e.ID,
		"type": e.Type,
	}

	if !e.Timestamp.IsZero() {
		v["timestamp"] = e.Timestamp.UnixMilli()
	}

	if e.Initiator != nil {
		v["initiator"] = e.Initiator.values()
	}

	if e.Affected != nil {
		v["affected"] = e.Affected.values()
	}

	if s := e.stream(); s != nil {
		v["stream"] = s.values()
	}

	if e.Message != nil {
		v["message"] = map[string]any{
			"messageId": e.Message.MessageID,
			"text":      e.Message.Text,
		}
	}

	if e.Form != nil {
		values := make(map[string]any, len(e.Form.Values))
		for k, fv := range e.Form.Values {
			values[k] = fv
		}

		v["form"] = map[string]any{
			"messageId": e.Form.MessageID,
			"formId":    e.Form.FormID,
			"values":    values,
		}
	}

	return v
}

func (e *Event) stream() *Stream {
	if e.Stream != nil {
		return e.Stream
	}

	if e.Message != nil {
		return e.Message.Stream
	}

	return nil
}

func (u *User) values() map[string]any {
	return map[string]any{
		"userId":      u.UserID,
		"username":    u.Username,
		"displayName": u.DisplayName,
		"email":       u.Email,
	}
}

func (s *Stream) values() map[string]any {
	return map[string]any{
		"streamId":   s.StreamID,
		"streamType": s.StreamType,
		"roomName":   s.RoomName,
	}
}
