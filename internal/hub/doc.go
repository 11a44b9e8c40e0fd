// Package hub implements the core of Hearth: the concurrent
// producer/consumer state-management engine.
//
// Sensor goroutines push timestamped readings onto a bounded
// ReadingChannel. A single Controller goroutine drains the channel,
// updates the authoritative State, evaluates automation rules against a
// snapshot, and applies the resulting actuator transitions. Monitoring
// callers (the HTTP API) interact with the hub only through the
// Controller's synchronised accessors.
//
// Architecture:
//
//	sensors ──▶ ReadingChannel ──▶ Controller ──▶ State ◀── monitoring reads
//	                                   │             ▲
//	                                   ▼             │
//	                               RuleEngine ── transitions
//	                                   │
//	                                   ▼
//	                                EventSink
//
// # Key Types
//
//   - Reading: one immutable sensor observation
//   - State: the single source of truth, guarded by a sync.RWMutex
//   - ReadingChannel: bounded N-producer/1-consumer queue with an
//     accounted drop policy under saturation
//   - RuleEngine: pure snapshot → transitions decision logic
//   - Controller: the consumer loop and lifecycle state machine
//
// # Thread Safety
//
// State, ReadingChannel, and all Controller accessors are safe for
// concurrent use. The RuleEngine is pure and therefore trivially safe.
package hub
