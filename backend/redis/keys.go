package redis

import "fmt"

func instanceKey(keyPrefix string, instanceID string) string {
	return fmt.Sprintf("%vinstance:%v", keyPrefix, instanceID)
}

// workflowInstancesKey returns the key of the ZSET holding a workflow's instances, scored by creation
// time.
func workflowInstancesKey(keyPrefix string, workflowID string) string {
	return fmt.Sprintf("%vworkflow-instances:%v", keyPrefix, workflowID)
}

// instancesFinishedKey returns the key of the ZSET holding all finished instances, scored by
// completion time. Members are "<workflow id>\x00<instance id>".
func instancesFinishedKey(keyPrefix string) string {
	return keyPrefix + "instances-finished"
}

func finishedMember(workflowID, instanceID string) string {
	return workflowID + "\x00" + instanceID
}
