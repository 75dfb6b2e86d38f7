// Package redis is a Store keeping instance snapshots in Redis. Snapshots are JSON strings, each
// workflow keeps a sorted set of its instances and finished instances are indexed by completion
// time for removal.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	redis "github.com/redis/go-redis/v9"
	"github.com/yinan-symphony/symphony-wdk/backend"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/log"
)

var _ backend.Store = (*redisStore)(nil)

func NewRedisStore(client redis.UniversalClient, opts ...Option) (*redisStore, error) {
	options := &Options{
		Options: backend.ApplyOptions(),
	}

	for _, opt := range opts {
		opt(options)
	}

	rs := &redisStore{
		rdb:     client,
		options: options,
	}

	// Load scripts eagerly, they are not found otherwise when first used in a pipeline.
	if err := removeFinishedCmd.Load(context.Background(), client).Err(); err != nil {
		return nil, fmt.Errorf("loading redis script: %w", err)
	}

	return rs, nil
}

type redisStore struct {
	rdb     redis.UniversalClient
	options *Options
}

func (rs *redisStore) keyPrefix() string {
	return rs.options.KeyPrefix
}

func (rs *redisStore) Close() error {
	return rs.rdb.Close()
}

func (rs *redisStore) SaveInstance(ctx context.Context, snapshot *core.InstanceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling instance: %w", err)
	}

	p := rs.keyPrefix()

	_, err = rs.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		expiration := rs.options.FinishedTTL
		if snapshot.CompletedAt == nil {
			expiration = 0
		}

		pipe.Set(ctx, instanceKey(p, snapshot.InstanceID), data, expiration)

		pipe.ZAdd(ctx, workflowInstancesKey(p, snapshot.WorkflowID), redis.Z{
			Score:  float64(snapshot.CreatedAt.UnixMilli()),
			Member: snapshot.InstanceID,
		})

		if snapshot.CompletedAt != nil {
			pipe.ZAdd(ctx, instancesFinishedKey(p), redis.Z{
				Score:  float64(snapshot.CompletedAt.UnixMilli()),
				Member: finishedMember(snapshot.WorkflowID, snapshot.InstanceID),
			})
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("saving instance: %w", err)
	}

	return nil
}

func (rs *redisStore) GetInstance(ctx context.Context, instanceID string) (*core.InstanceSnapshot, error) {
	data, err := rs.rdb.Get(ctx, instanceKey(rs.keyPrefix(), instanceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, backend.ErrInstanceNotFound
		}

		return nil, fmt.Errorf("getting instance: %w", err)
	}

	return decode(data)
}

func (rs *redisStore) ListInstances(ctx context.Context, workflowID string) ([]*core.InstanceSnapshot, error) {
	p := rs.keyPrefix()
	indexKey := workflowInstancesKey(p, workflowID)

	ids, err := rs.rdb.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, instanceKey(p, id))
	}

	values, err := rs.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("getting instances: %w", err)
	}

	var result []*core.InstanceSnapshot
	var expired []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Expired instance, drop it from the index
			expired = append(expired, ids[i])
			continue
		}

		snapshot, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}

		result = append(result, snapshot)
	}

	if len(expired) > 0 {
		if err := rs.rdb.ZRem(ctx, indexKey, expired...).Err(); err != nil {
			rs.options.Logger.WarnContext(ctx, "could not remove expired instances from index", "error", err)
		}
	}

	return result, nil
}

func (rs *redisStore) RemoveInstances(ctx context.Context, options ...backend.RemovalOption) error {
	o := backend.ApplyRemovalOptions(options...)

	before := "+inf"
	if !o.FinishedBefore.IsZero() {
		// Scores are whole milliseconds, the range is inclusive
		before = strconv.FormatInt(o.FinishedBefore.UnixMilli()-1, 10)
	}

	n, err := removeFinished(ctx, rs.rdb, rs.keyPrefix(), before, o.WorkflowID)
	if err != nil {
		return fmt.Errorf("removing instances: %w", err)
	}

	rs.options.Logger.DebugContext(ctx, "Removed finished instances", log.CountKey, n)

	return nil
}

func decode(data []byte) (*core.InstanceSnapshot, error) {
	var snapshot core.InstanceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshaling instance: %w", err)
	}

	return &snapshot, nil
}
