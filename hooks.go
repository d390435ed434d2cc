package kafka

import "time"

// Hook is implemented by any type wanting to observe Base-client-level
// events: metadata refreshes, retries, consumer-group rebalances,
// heartbeats. A caller registers a Hooks slice mixing whichever of the
// sub-interfaces below it implements, mirroring the same pattern
// internal/kconn uses one layer down for connection events. This is the
// library's diagnostics seam (spec's "structured events on named
// channels"); nothing here hard-wires a specific metrics backend.
type Hook interface{}

// MetadataRefreshHook observes a completed metadata refresh.
type MetadataRefreshHook interface {
	OnMetadataRefresh(topics []string, forced bool, dur time.Duration, err error)
}

// RetryHook observes one attempt of performWithRetry.
type RetryHook interface {
	OnRetry(operation string, attempt int, err error)
}

// RebalanceHook observes a consumer group state transition.
type RebalanceHook interface {
	OnRebalance(groupID string, from, to GroupState, err error)
}

// HeartbeatHook observes one heartbeat round trip.
type HeartbeatHook interface {
	OnHeartbeat(groupID string, dur time.Duration, err error)
}

// Hooks is a set of Hook implementations invoked together.
type Hooks []Hook

func (hs Hooks) each(fn func(Hook)) {
	for _, h := range hs {
		fn(h)
	}
}
