package engine

import (
	"context"
	"sort"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/yinan-symphony/symphony-wdk/core"
	"github.com/yinan-symphony/symphony-wdk/internal/metrickeys"
	"github.com/yinan-symphony/symphony-wdk/metrics"
)

// retention keeps snapshots of finished instances around for inspection.
type retention struct {
	mc metrics.Client
	c  *ttlcache.Cache[string, *core.InstanceSnapshot]
}

func newRetention(mc metrics.Client, capacity uint64, ttl time.Duration) *retention {
	c := ttlcache.New(
		ttlcache.WithCapacity[string, *core.InstanceSnapshot](capacity),
		ttlcache.WithTTL[string, *core.InstanceSnapshot](ttl),
	)

	c.OnEviction(func(ctx context.Context, er ttlcache.EvictionReason, i *ttlcache.Item[string, *core.InstanceSnapshot]) {
		reason := ""
		switch er {
		case ttlcache.EvictionReasonExpired:
			reason = "expired"
		case ttlcache.EvictionReasonCapacityReached:
			reason = "capacity"
		}

		mc.Counter(metrickeys.InstanceRetentionEviction, metrics.Tags{metrickeys.Reason: reason}, 1)
	})

	go c.Start()

	return &retention{
		mc: mc,
		c:  c,
	}
}

func (r *retention) Get(instanceID string) (*core.InstanceSnapshot, bool) {
	i := r.c.Get(instanceID)
	if i == nil {
		return nil, false
	}

	return i.Value(), true
}

func (r *retention) Store(s *core.InstanceSnapshot) {
	r.c.Set(s.InstanceID, s, ttlcache.DefaultTTL)

	r.mc.Distribution(metrickeys.InstanceRetentionSize, metrics.Tags{}, float64(r.c.Len()))
}

// List returns the retained snapshots of a workflow, oldest first.
func (r *retention) List(workflowID string) []*core.InstanceSnapshot {
	var result []*core.InstanceSnapshot
	for _, i := range r.c.Items() {
		if s := i.Value(); s.WorkflowID == workflowID {
			result = append(result, s)
		}
	}

	sort.Slice(result, func(a, b int) bool {
		return result[a].CreatedAt.Before(result[b].CreatedAt)
	})

	return result
}

func (r *retention) Stop() {
	r.c.Stop()
}
