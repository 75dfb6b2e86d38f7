package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/yinan-symphony/symphony-wdk/activity"
	"github.com/yinan-symphony/symphony-wdk/event"
	"github.com/yinan-symphony/symphony-wdk/workflow"
)

const kindWork = "work"

// benchWorkflow fans out into fanOut parallel branches of activities steps each, which join
// into a final activity. Any message starts an instance.
func benchWorkflow(fanOut, activities int) *workflow.Definition {
	def := &workflow.Definition{
		ID: "bench",
		Activities: []workflow.Activity{
			{ID: "start", Kind: kindWork},
			{ID: "done", Kind: kindWork},
		},
		Triggers: []workflow.Trigger{
			{Event: event.KindMessageReceived, Activity: "start"},
		},
	}

	for b := 0; b < fanOut; b++ {
		prev := "start"
		for a := 0; a < activities; a++ {
			id := fmt.Sprintf("b%d_a%d", b, a)
			def.Activities = append(def.Activities, workflow.Activity{ID: id, Kind: kindWork})
			def.Transitions = append(def.Transitions, workflow.Transition{From: prev, To: id})
			prev = id
		}

		def.Transitions = append(def.Transitions, workflow.Transition{From: prev, To: "done"})
	}

	return def
}

// work returns a payload of the requested size as output.
func work(payloadSize int) activity.ExecutorFunc {
	payload := strings.Repeat("x", payloadSize)

	return func(ctx context.Context, ex *activity.Execution) (map[string]any, error) {
		return map[string]any{"payload": payload}, nil
	}
}
