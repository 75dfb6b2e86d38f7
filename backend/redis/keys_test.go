package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Keys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"instance", instanceKey("", "i1"), "instance:i1"},
		{"instance with prefix", instanceKey("p:", "i1"), "p:instance:i1"},
		{"workflow instances", workflowInstancesKey("p:", "wf"), "p:workflow-instances:wf"},
		{"finished", instancesFinishedKey("p:"), "p:instances-finished"},
		{"finished member", finishedMember("wf", "i1"), "wf\x00i1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.got)
		})
	}
}
