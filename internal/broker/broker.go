// Package broker exposes the single-object API protocol adapters talk
// to: produce, consume, create/list topics, and get_next_offset,
// composing the topic registry with the subscription registry.
package broker

import (
	"errors"

	"eventqueued/internal/subscription"
	"eventqueued/internal/topicregistry"
)

// ErrEmptyPayload is returned by Produce for a zero-length payload; this
// implementation follows the source system in rejecting them rather than
// accepting empty records (see DESIGN.md's Open Question decisions).
var ErrEmptyPayload = errors.New("broker: payload must not be empty")

// ErrEmptyTopic is returned by Produce and CreateTopic when given an
// empty topic name.
var ErrEmptyTopic = errors.New("broker: topic must not be empty")

// Record is a single delivered or consumed message.
type Record struct {
	Topic   string
	Offset  uint64
	Payload []byte
}

// Broker is the facade spec'd in §4.4: it owns no storage itself, only
// the two registries it composes.
type Broker struct {
	topics *topicregistry.Registry
	subs   *subscription.Registry
}

// New wraps an already-opened topic registry and a fresh subscription
// registry into a Broker.
func New(topics *topicregistry.Registry) *Broker {
	return &Broker{
		topics: topics,
		subs:   subscription.NewRegistry(),
	}
}

// Produce appends payload to topic, dispatches the committed record to
// matching subscribers, and returns its assigned offset. Dispatch happens
// only after the append fully commits, and runs unconditionally even if
// individual subscriber delivery later fails — dispatch failures are the
// subscriber's problem, never the producer's.
func (b *Broker) Produce(topic string, payload []byte) (uint64, error) {
	if topic == "" {
		return 0, ErrEmptyTopic
	}
	if len(payload) == 0 {
		return 0, ErrEmptyPayload
	}

	log, err := b.topics.GetOrCreate(topic)
	if err != nil {
		return 0, err
	}

	offset, err := log.Append(payload)
	if err != nil {
		return 0, err
	}

	b.subs.OnNewRecord(subscription.Record{Topic: topic, Offset: offset, Payload: payload})
	return offset, nil
}

// Consume returns up to maxRecords records starting at startOffset, or an
// empty slice if the topic does not exist.
func (b *Broker) Consume(topic string, startOffset uint64, maxRecords uint32) ([]Record, error) {
	log, ok := b.topics.Get(topic)
	if !ok {
		return []Record{}, nil
	}

	raw, err := log.Read(startOffset, maxRecords)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(raw))
	for i, r := range raw {
		records[i] = Record{Topic: topic, Offset: r.Offset, Payload: r.Payload}
	}
	return records, nil
}

// CreateTopic creates the topic's directory/files if absent. It is
// idempotent: calling it on an existing topic is a success, with no
// distinguished outcome for "created" vs. "already existed".
func (b *Broker) CreateTopic(topic string) (bool, error) {
	if topic == "" {
		return false, ErrEmptyTopic
	}
	if _, err := b.topics.GetOrCreate(topic); err != nil {
		return false, err
	}
	return true, nil
}

// ListTopics returns every known topic name.
func (b *Broker) ListTopics() []string {
	return b.topics.List()
}

// GetNextOffset returns the offset the topic's next Produce would be
// assigned, or 0 if the topic does not exist.
func (b *Broker) GetNextOffset(topic string) uint64 {
	log, ok := b.topics.Get(topic)
	if !ok {
		return 0
	}
	return log.NextOffset()
}

// Subscribe registers a live subscriber against topic. start_offset may
// be behind the topic's current next offset; the caller is responsible
// for the catch-up protocol (§4.3) — issuing its own Consume call for any
// backlog before or alongside delivery of pushed records.
func (b *Broker) Subscribe(topic, subscriberID string, startOffset uint64, executor subscription.Executor, deliver subscription.DeliverFunc) {
	b.subs.Subscribe(topic, subscriberID, startOffset, executor, deliver)
}

// Unsubscribe removes subscriberID from topic.
func (b *Broker) Unsubscribe(topic, subscriberID string) {
	b.subs.Unsubscribe(topic, subscriberID)
}

// UnsubscribeAll removes subscriberID from every topic it's registered
// against. Adapters call this when a client session closes.
func (b *Broker) UnsubscribeAll(subscriberID string) {
	b.subs.UnsubscribeAll(subscriberID)
}

// TopicExists reports whether topic has ever been created.
func (b *Broker) TopicExists(topic string) bool {
	_, ok := b.topics.Get(topic)
	return ok
}
