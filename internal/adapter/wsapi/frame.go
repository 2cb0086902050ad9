package wsapi

// clientFrame is a JSON frame sent by the client. The exact fields used
// depend on Command (§6: "JSON frames over upgraded HTTP connection").
type clientFrame struct {
	Command      string  `json:"command"`
	ReqID        string  `json:"req_id,omitempty"`
	Topic        string  `json:"topic,omitempty"`
	SubscriberID string  `json:"subscriber_id,omitempty"`
	StartOffset  *uint64 `json:"start_offset,omitempty"`
	Payload      string  `json:"payload,omitempty"`
}

// serverFrame is a JSON frame sent to the client: either a response
// echoing the originating req_id, or an unsolicited push notification.
type serverFrame struct {
	Command      string          `json:"command"`
	ReqID        string          `json:"req_id,omitempty"`
	Success      *bool           `json:"success,omitempty"`
	Topic        string          `json:"topic,omitempty"`
	Offset       *uint64         `json:"offset,omitempty"`
	NextOffset   *uint64         `json:"next_offset,omitempty"`
	Topics       []string        `json:"topics,omitempty"`
	Messages     []messagePayload `json:"messages,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type messagePayload struct {
	Offset  uint64 `json:"offset"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

const (
	cmdProduceRequest         = "produce_request"
	cmdSubscribeTopicRequest  = "subscribe_topic_request"
	cmdUnsubscribeTopicRequest = "unsubscribe_topic_request"
	cmdCreateTopicRequest     = "create_topic_request"
	cmdListTopicsRequest      = "list_topics_request"
	cmdGetNextOffsetRequest   = "get_next_offset_request"

	cmdMessageBatchNotification = "message_batch_notification"
)

func successFrame(cmd, reqID string) serverFrame {
	yes := true
	return serverFrame{Command: cmd, ReqID: reqID, Success: &yes}
}

func errorFrame(cmd, reqID, message string) serverFrame {
	no := false
	return serverFrame{Command: cmd, ReqID: reqID, Success: &no, ErrorMessage: message}
}
