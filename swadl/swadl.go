// Package swadl reads workflow definitions written in YAML.
//
//	id: ticker
//	variables:
//	  owner: alice
//	activities:
//	  - id: sendForm
//	    kind: send-message
//	    on:
//	      event: message-received
//	      key: /go
//	    params:
//	      content: Which ticker?
//	  - id: reply
//	    on:
//	      event: form-replied
//	      form-id: sendForm
//	      exclusive: true
//	    timeout: 1h
//	    on-expired: tooLate
//	  - id: tooLate
//	    kind: send-message
//	    params:
//	      content: Too late
//	transitions:
//	  - from: sendForm
//	    to: reply
//
// An activity with an "on" binding and no incoming transition is started by that binding: it
// becomes a trigger. With incoming transitions the binding is a wait instead. Activities with a
// binding and no kind are plain receive activities.
package swadl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/workflow"
	"gopkg.in/yaml.v3"
)

type document struct {
	ID          string         `yaml:"id"`
	Variables   map[string]any `yaml:"variables"`
	Activities  []activity     `yaml:"activities"`
	Transitions []transition   `yaml:"transitions"`
	Triggers    []trigger      `yaml:"triggers"`
}

type activity struct {
	ID        string         `yaml:"id"`
	Kind      string         `yaml:"kind"`
	Params    map[string]any `yaml:"params"`
	On        *binding       `yaml:"on"`
	Timeout   string         `yaml:"timeout"`
	OnExpired string         `yaml:"on-expired"`
	Fork      string         `yaml:"fork"`
}

type binding struct {
	Event     string `yaml:"event"`
	Key       string `yaml:"key"`
	FormID    string `yaml:"form-id"`
	Exclusive bool   `yaml:"exclusive"`
}

type transition struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	If   string `yaml:"if"`
	Else bool   `yaml:"else"`
}

type trigger struct {
	Event    string `yaml:"event"`
	Key      string `yaml:"key"`
	Activity string `yaml:"activity"`
}

// ParseError points at the part of a document that could not be read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid workflow definition: %v", e.Err)
	}

	return fmt.Sprintf("invalid workflow definition at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads one definition. Unknown fields are rejected. References between activities are not
// checked here, graph.Compile does that.
func Parse(r io.Reader) (*workflow.Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Err: errors.New("empty document")}
		}

		return nil, &ParseError{Err: err}
	}

	return doc.definition()
}

func ParseBytes(b []byte) (*workflow.Definition, error) {
	return Parse(bytes.NewReader(b))
}

func ParseFile(path string) (*workflow.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening workflow definition: %w", err)
	}
	defer f.Close()

	def, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return def, nil
}

func (doc *document) definition() (*workflow.Definition, error) {
	if doc.ID == "" {
		return nil, &ParseError{Path: "id", Err: errors.New("missing workflow id")}
	}

	def := &workflow.Definition{
		ID:        doc.ID,
		Variables: doc.Variables,
	}

	targets := make(map[string]bool)
	for _, t := range doc.Transitions {
		targets[t.To] = true
		def.Transitions = append(def.Transitions, workflow.Transition{
			From: t.From,
			To:   t.To,
			If:   t.If,
			Else: t.Else,
		})
	}

	for i, a := range doc.Activities {
		path := fmt.Sprintf("activities[%d]", i)

		da := workflow.Activity{
			ID:        a.ID,
			Kind:      a.Kind,
			Params:    a.Params,
			OnExpired: a.OnExpired,
			Fork:      workflow.ForkMode(a.Fork),
		}

		if a.Timeout != "" {
			d, err := time.ParseDuration(a.Timeout)
			if err != nil {
				return nil, &ParseError{Path: path + ".timeout", Err: err}
			}

			da.Timeout = d
		}

		if a.On != nil {
			kind, err := eventKind(a.On)
			if err != nil {
				return nil, &ParseError{Path: path + ".on", Err: err}
			}

			if targets[a.ID] {
				da.Wait = &workflow.Wait{
					Event:     kind,
					Key:       a.On.Key,
					FormID:    a.On.FormID,
					Exclusive: a.On.Exclusive,
				}
			} else {
				def.Triggers = append(def.Triggers, workflow.Trigger{
					Event:    kind,
					Key:      a.On.Key,
					Activity: a.ID,
				})
			}
		}

		def.Activities = append(def.Activities, da)
	}

	for i, t := range doc.Triggers {
		kind := event.Kind(t.Event)
		if !event.Known(kind) {
			return nil, &ParseError{Path: fmt.Sprintf("triggers[%d].event", i), Err: fmt.Errorf("unknown event %q", t.Event)}
		}

		def.Triggers = append(def.Triggers, workflow.Trigger{
			Event:    kind,
			Key:      t.Key,
			Activity: t.Activity,
		})
	}

	return def, nil
}

func eventKind(b *binding) (event.Kind, error) {
	if b.Event == "" && b.FormID != "" {
		return event.KindFormReplied, nil
	}

	kind := event.Kind(b.Event)
	if !event.Known(kind) {
		return "", fmt.Errorf("unknown event %q", b.Event)
	}

	if b.FormID != "" && kind != event.KindFormReplied {
		return "", fmt.Errorf("form-id requires event %s", event.KindFormReplied)
	}

	return kind, nil
}
