package activity

import (
	"context"
)

// KindReceive is the built-in kind of activities that only wait for an event. Its outputs are the
// values carried by that event: form values for form replies, text and message id for messages.
const KindReceive = "receive"

// Receive implements KindReceive.
var Receive Executor = ExecutorFunc(func(ctx context.Context, ex *Execution) (map[string]any, error) {
	out := make(map[string]any)

	e := ex.Event
	if e == nil {
		return out, nil
	}

	if e.Form != nil {
		for k, v := range e.Form.Values {
			out[k] = v
		}
	}

	if e.Message != nil {
		out["text"] = e.Message.Text
		out["messageId"] = e.Message.MessageID
	}

	if e.Initiator != nil {
		out["initiator"] = e.Initiator.Username
	}

	return out, nil
})
