package wsapi

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"eventqueued/internal/broker"
	"eventqueued/internal/rlog"
	"eventqueued/internal/subscription"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	outboundQueueSize = 64

	// subscribeCatchUpLimit bounds the one-shot backfill handleSubscribe
	// issues for records already committed before the subscribe call
	// (§4.3's catch-up protocol). Older records past this limit are not
	// backfilled, and this adapter has no consume command; push delivery
	// picks up every record committed from here on regardless.
	subscribeCatchUpLimit = 10000
)

// session owns one upgraded WebSocket connection: a read pump decoding
// client frames and dispatching them, and a write pump that serializes
// every outbound frame — both responses and asynchronous push
// notifications — onto the single connection, grounded on the teacher's
// read/process loop split and the ping/pong keepalive shown in
// alpacahq-marketstore's stream package.
type session struct {
	id       string
	conn     *websocket.Conn
	broker   *broker.Broker
	executor subscription.Executor

	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, b *broker.Broker, executor subscription.Executor) *session {
	return &session{
		id:       uuid.New().String(),
		conn:     conn,
		broker:   b,
		executor: executor,
		outbound: make(chan []byte, outboundQueueSize),
		done:     make(chan struct{}),
	}
}

func (s *session) serve() {
	go s.writePump()
	s.readPump()
}

// readPump decodes one client frame at a time and dispatches it
// synchronously. Pushed records reach the client via the subscriber's
// executor, not this goroutine; the exception is the catch-up backlog
// handleSubscribe delivers inline, which, like every response, waits for
// room in the outbound queue.
func (s *session) readPump() {
	defer s.teardown()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			rlog.Debug("wsapi: session %s: malformed frame: %v", s.id, err)
			continue
		}
		s.handle(frame)
	}
}

func (s *session) handle(frame clientFrame) {
	switch frame.Command {
	case cmdProduceRequest:
		s.handleProduce(frame)
	case cmdSubscribeTopicRequest:
		s.handleSubscribe(frame)
	case cmdUnsubscribeTopicRequest:
		s.handleUnsubscribe(frame)
	case cmdCreateTopicRequest:
		s.handleCreateTopic(frame)
	case cmdListTopicsRequest:
		s.handleListTopics(frame)
	case cmdGetNextOffsetRequest:
		s.handleGetNextOffset(frame)
	default:
		s.send(errorFrame(frame.Command, frame.ReqID, "unknown command"))
	}
}

func (s *session) handleProduce(frame clientFrame) {
	offset, err := s.broker.Produce(frame.Topic, []byte(frame.Payload))
	if err != nil {
		s.send(errorFrame(frame.Command, frame.ReqID, err.Error()))
		return
	}
	resp := successFrame(frame.Command, frame.ReqID)
	resp.Topic = frame.Topic
	resp.Offset = &offset
	s.send(resp)
}

func (s *session) handleSubscribe(frame clientFrame) {
	var startOffset uint64
	if frame.StartOffset != nil {
		startOffset = *frame.StartOffset
	}

	// The session's own id is the subscriber identity the registry and
	// teardown use, per §9's session-lifecycle note — the client's
	// subscriber_id field is accepted for protocol symmetry but the
	// adapter is the one that must be able to sweep every subscription
	// on disconnect, so it owns the key.
	//
	// Subscribe before backfilling: this guarantees every record produced
	// from this point on is captured by the push path even while the
	// catch-up consume below is still running, at the cost of a possible
	// duplicate delivery right at the seam (never a gap) — the catch-up
	// protocol in §4.3 allows backfilled records to be delivered
	// "before or interleaved with" the pushed notifications.
	s.broker.Subscribe(frame.Topic, s.id, startOffset, s.executor, s.deliver)
	s.send(successFrame(frame.Command, frame.ReqID))

	if backlog, err := s.broker.Consume(frame.Topic, startOffset, subscribeCatchUpLimit); err != nil {
		rlog.Debug("wsapi: session %s: catch-up consume failed: %v", s.id, err)
	} else if len(backlog) > 0 {
		s.deliver(frame.Topic, toSubscriptionRecords(backlog))
	}
}

func toSubscriptionRecords(records []broker.Record) []subscription.Record {
	out := make([]subscription.Record, len(records))
	for i, r := range records {
		out[i] = subscription.Record{Topic: r.Topic, Offset: r.Offset, Payload: r.Payload}
	}
	return out
}

func (s *session) handleUnsubscribe(frame clientFrame) {
	s.broker.Unsubscribe(frame.Topic, s.id)
	s.send(successFrame(frame.Command, frame.ReqID))
}

func (s *session) handleCreateTopic(frame clientFrame) {
	if _, err := s.broker.CreateTopic(frame.Topic); err != nil {
		s.send(errorFrame(frame.Command, frame.ReqID, err.Error()))
		return
	}
	s.send(successFrame(frame.Command, frame.ReqID))
}

func (s *session) handleListTopics(frame clientFrame) {
	resp := successFrame(frame.Command, frame.ReqID)
	resp.Topics = s.broker.ListTopics()
	s.send(resp)
}

func (s *session) handleGetNextOffset(frame clientFrame) {
	next := s.broker.GetNextOffset(frame.Topic)
	resp := successFrame(frame.Command, frame.ReqID)
	resp.Topic = frame.Topic
	resp.NextOffset = &next
	s.send(resp)
}

// deliver is the subscription registry's DeliverFunc for this session: it
// turns a pushed batch into a message_batch_notification frame.
func (s *session) deliver(topic string, records []subscription.Record) {
	messages := make([]messagePayload, len(records))
	for i, r := range records {
		messages[i] = messagePayload{Offset: r.Offset, Topic: topic, Payload: string(r.Payload)}
	}
	s.send(serverFrame{Command: cmdMessageBatchNotification, Topic: topic, Messages: messages})
}

func (s *session) send(frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		rlog.Error("wsapi: session %s: marshal error: %v", s.id, err)
		return
	}
	select {
	case s.outbound <- data:
	case <-s.done:
	}
}

// writePump is the only goroutine that writes to the connection, per
// gorilla/websocket's single-writer requirement; it also drives the
// ping keepalive.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-s.outbound:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.broker.UnsubscribeAll(s.id)
		s.conn.Close()
	})
}
