package core

// events.go — fire-and-forget topic broadcast, adapted from the teacher's
// core/network.go Broadcast/SetBroadcaster pair. DuxNet has no P2P gossip
// layer to fan these out over (that belongs to the out-of-scope transport),
// so the default broadcaster simply fans out in-process to subscribers;
// a deployment wanting external delivery (webhook, message bus) registers
// its own BroadcasterFunc via Subscribe (topic "" receives every event).

import (
	"encoding/json"
	"sync"
)

// Topic names emitted by the core, per spec §6 "Event bus (emitted)".
const (
	TopicEscrowCreated   = "escrow.created"
	TopicEscrowReleased  = "escrow.released"
	TopicEscrowRefunded  = "escrow.refunded"
	TopicDisputeOpened   = "dispute.opened"
	TopicDisputeResolved = "dispute.resolved"
	TopicFundAirdrop     = "fund.airdrop"
	TopicTaskCompleted   = "task.completed"
	TopicTaskFailed      = "task.failed"
)

// BroadcasterFunc is the signature for the global broadcast hook.
type BroadcasterFunc func(topic string, payload []byte)

var (
	busMu       sync.RWMutex
	subscribers = map[string][]BroadcasterFunc{}
)

// Subscribe registers fn to be called whenever Broadcast fires on topic.
// Passing "" subscribes to every topic.
func Subscribe(topic string, fn BroadcasterFunc) {
	busMu.Lock()
	defer busMu.Unlock()
	subscribers[topic] = append(subscribers[topic], fn)
}

// ClearSubscribers removes all registered subscribers. Used by tests.
func ClearSubscribers() {
	busMu.Lock()
	defer busMu.Unlock()
	subscribers = map[string][]BroadcasterFunc{}
}

// Broadcast marshals payload to JSON and fans it out to every subscriber of
// topic plus every wildcard subscriber. Marshal failures are logged and
// swallowed: event delivery is best-effort and must never fail the caller's
// state transition (spec §4.12 "fire-and-log").
func Broadcast(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		stdLogger.WithError(err).WithField("topic", topic).Warn("event payload marshal failed")
		return
	}
	busMu.RLock()
	fns := append(append([]BroadcasterFunc{}, subscribers[topic]...), subscribers[""]...)
	busMu.RUnlock()
	for _, fn := range fns {
		fn(topic, data)
	}
}
