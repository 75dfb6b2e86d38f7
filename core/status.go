package core

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
)

// InstanceStatus is the lifecycle status of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusRunning   = InstanceStatus("RUNNING")
	InstanceStatusCompleted = InstanceStatus("COMPLETED")
	InstanceStatusFailed    = InstanceStatus("FAILED")
)

var (
	_ sql.Scanner   = (*InstanceStatus)(nil)
	_ driver.Valuer = InstanceStatus("")
)

func (s InstanceStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *InstanceStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = InstanceStatus(v)
	case []byte:
		*s = InstanceStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into instance status", value)
	}

	return nil
}

// Finished reports whether the status is terminal.
func (s InstanceStatus) Finished() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusFailed
}

// ActivityState is the execution state of one activity within an instance.
type ActivityState int

const (
	ActivityStateNotStarted ActivityState = iota
	ActivityStateWaiting
	ActivityStateExecuted
	ActivityStateSkipped
	ActivityStateExpired
	// ActivityStateFailed marks the activity whose executor failed the instance.
	ActivityStateFailed
)

func (s ActivityState) String() string {
	switch s {
	case ActivityStateNotStarted:
		return "NOT_STARTED"
	case ActivityStateWaiting:
		return "WAITING"
	case ActivityStateExecuted:
		return "EXECUTED"
	case ActivityStateSkipped:
		return "SKIPPED"
	case ActivityStateExpired:
		return "EXPIRED"
	case ActivityStateFailed:
		return "FAILED"
	}

	return fmt.Sprintf("ActivityState(%d)", int(s))
}

func (s ActivityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ActivityState) UnmarshalText(b []byte) error {
	for c := ActivityStateNotStarted; c <= ActivityStateFailed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}

	return fmt.Errorf("unknown activity state %q", string(b))
}
