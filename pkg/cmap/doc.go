// Package cmap provides a concurrent map implementation for TradeGate.
//
// The map is split into a power-of-two number of shards, each guarded by its
// own RWMutex. Keys are routed to shards with murmur3, which keeps lock
// contention low when many request goroutines touch different identities.
//
//   - Get, Has, Range and Keys take read locks
//   - Set, Delete, Update, Compute, Pop and DeleteIf take write locks
//   - Update and Compute run their callback under the shard lock, which
//     makes read-modify-write sequences atomic per key
//
// Usage:
//
//	m := cmap.New[string, []time.Time]()
//	m.Compute(ip, func(w []time.Time, _ bool) ([]time.Time, bool) {
//		return append(w, now), true
//	})
package cmap
