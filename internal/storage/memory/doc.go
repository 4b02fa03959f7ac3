// Package memory provides in-memory storage for TradeGate.
//
// Store implements the service repositories on sharded concurrent maps
// with secondary indexes by owner. It backs the "memory" storage driver
// and is used by tests throughout the module.
//
// DefenseStore implements defense.StateStore for a single process. Rate
// windows are updated under the owning shard lock so prune, count and
// append happen atomically per identity.
//
// Thread Safety:
//
// All operations are thread-safe. Cross-index updates in Store take a
// store-wide lock; DefenseStore only uses shard locks.
package memory
