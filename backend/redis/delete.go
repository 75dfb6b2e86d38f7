package redis

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// Remove finished instances up to a completion time
// KEYS[1] - instances-finished key
// ARGV[1] - max completion timestamp in unix milliseconds, inclusive
// ARGV[2] - key prefix
// ARGV[3] - workflow id, empty for all workflows
var removeFinishedCmd = redis.NewScript(
	`local members = redis.call("ZRANGE", KEYS[1], "-inf", ARGV[1], "BYSCORE")
	local removed = 0
	for i = 1, #members do
		local member = members[i]
		local sep = string.find(member, "\0", 1, true)
		local workflowID = string.sub(member, 1, sep - 1)
		local instanceID = string.sub(member, sep + 1)

		if ARGV[3] == "" or ARGV[3] == workflowID then
			redis.call("DEL", ARGV[2] .. "instance:" .. instanceID)
			redis.call("ZREM", ARGV[2] .. "workflow-instances:" .. workflowID, instanceID)
			redis.call("ZREM", KEYS[1], member)
			removed = removed + 1
		end
	end

	return removed
	`,
)

func removeFinished(ctx context.Context, rdb redis.UniversalClient, keyPrefix string, before string, workflowID string) (int64, error) {
	return removeFinishedCmd.Run(ctx, rdb, []string{instancesFinishedKey(keyPrefix)}, before, keyPrefix, workflowID).Int64()
}
