package coordination

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	instancesKey      = "instances"
	instanceStaleness = 60 * time.Second
)

// InstanceRegistry tracks active instances in Redis. Each instance
// sends periodic heartbeats to a shared hash; instances without a
// heartbeat for more than instanceStaleness are considered inactive.
// Visibility only - presence correctness never depends on this.
type InstanceRegistry struct {
	rdb        *goredis.Client
	instanceID string
	heartbeat  time.Duration
	version    string
}

// InstanceInfo holds metadata about an instance.
type InstanceInfo struct {
	InstanceID string `json:"instance_id"`
	Timestamp  int64  `json:"timestamp"`
	Version    string `json:"version"`
}

// NewInstanceRegistry creates a new instance registry.
// instanceID should be unique per instance (e.g., hostname or UUID).
func NewInstanceRegistry(rdb *goredis.Client, instanceID string, heartbeat time.Duration, version string) *InstanceRegistry {
	return &InstanceRegistry{
		rdb:        rdb,
		instanceID: instanceID,
		heartbeat:  heartbeat,
		version:    version,
	}
}

// Start begins the heartbeat loop. Registers immediately, then renews
// on the heartbeat interval. Blocks until ctx is cancelled, then
// unregisters and returns.
func (r *InstanceRegistry) Start(ctx context.Context) {
	r.register(ctx)

	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.register(ctx)
		case <-ctx.Done():
			r.unregister()
			return
		}
	}
}

func (r *InstanceRegistry) register(ctx context.Context) {
	info := InstanceInfo{
		InstanceID: r.instanceID,
		Timestamp:  time.Now().Unix(),
		Version:    r.version,
	}

	data, err := json.Marshal(info)
	if err != nil {
		return
	}

	r.rdb.HSet(ctx, instancesKey, r.instanceID, data)
}

// unregister removes this instance from the registry during graceful shutdown.
func (r *InstanceRegistry) unregister() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.rdb.HDel(ctx, instancesKey, r.instanceID)
}

// ActiveInstances returns all instances with a heartbeat within the
// staleness window.
func (r *InstanceRegistry) ActiveInstances(ctx context.Context) ([]InstanceInfo, error) {
	instances, err := r.rdb.HGetAll(ctx, instancesKey).Result()
	if err != nil {
		return nil, err
	}

	infos := []InstanceInfo{}
	cutoff := time.Now().Add(-instanceStaleness).Unix()

	for _, data := range instances {
		var info InstanceInfo
		if err := json.Unmarshal([]byte(data), &info); err != nil {
			continue
		}
		if info.Timestamp >= cutoff {
			infos = append(infos, info)
		}
	}

	return infos, nil
}
