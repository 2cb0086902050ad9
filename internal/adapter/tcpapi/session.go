package tcpapi

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"eventqueued/internal/broker"
	"eventqueued/internal/rlog"
	"eventqueued/internal/wire"
)

const (
	readBufferSize  = 4 * 1024
	writeBufferSize = 4 * 1024
)

// session owns one accepted TCP connection: a read loop that decodes
// frames and a single in-order handler that dispatches each one to the
// broker before the next is read, mirroring the teacher's
// goroutine-per-connection model without its heartbeat machinery, which
// this protocol has no use for.
type session struct {
	id     string
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex
	writer  *bufio.Writer

	broker *broker.Broker
}

func newSession(conn net.Conn, b *broker.Broker) *session {
	return &session{
		id:     uuid.New().String(),
		conn:   conn,
		reader: bufio.NewReaderSize(conn, readBufferSize),
		writer: bufio.NewWriterSize(conn, writeBufferSize),
		broker: b,
	}
}

// serve runs until the connection closes or a frame can't be decoded, at
// which point it's torn down. It never returns an error the caller must
// act on beyond closing the connection.
func (s *session) serve() {
	defer s.conn.Close()

	for {
		req, err := wire.DecodeRequestFrame(s.reader)
		if err != nil {
			if errors.Is(err, wire.ErrPayloadTooLarge) {
				s.writeResponse(&wire.ResponseFrame{Status: wire.StatusErrPayloadTooLarge})
			} else if !errors.Is(err, io.EOF) {
				rlog.Debug("tcpapi: session %s: decode error: %v", s.id, err)
			}
			return
		}

		resp := s.handle(req)
		if err := s.writeResponse(resp); err != nil {
			rlog.Debug("tcpapi: session %s: write error: %v", s.id, err)
			return
		}
	}
}

func (s *session) writeResponse(resp *wire.ResponseFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := resp.Encode(s.writer); err != nil {
		return err
	}
	return s.writer.Flush()
}

// handle strips any optional wire-treatment flags (compression, a trailing
// checksum) off the request before dispatching on its base command, so
// every handler below still only ever sees the plain payload shape §6.3
// documents for that command.
func (s *session) handle(req *wire.RequestFrame) *wire.ResponseFrame {
	payload, err := s.unwrap(req)
	if err != nil {
		return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
	}
	req = &wire.RequestFrame{Command: req.Command.Base(), Payload: payload}

	switch req.Command {
	case wire.CommandProduce:
		return s.handleProduce(req)
	case wire.CommandConsume:
		return s.handleConsume(req)
	case wire.CommandGetNextOffset:
		return s.handleGetNextOffset(req)
	case wire.CommandCreateTopic:
		return s.handleCreateTopic(req)
	case wire.CommandListTopics:
		return s.handleListTopics(req)
	default:
		return errorResponse(req.Command, wire.StatusErrUnknownCommand, "unknown command")
	}
}

func (s *session) unwrap(req *wire.RequestFrame) ([]byte, error) {
	payload := req.Payload
	if req.Command.HasFlag(wire.CommandFlagChecksummed) {
		stripped, err := stripChecksum(payload)
		if err != nil {
			return nil, err
		}
		payload = stripped
	}
	if req.Command.HasFlag(wire.CommandFlagCompressed) {
		decompressed, err := wire.DecompressSnappy(payload)
		if err != nil {
			return nil, err
		}
		payload = decompressed
	}
	return payload, nil
}

func (s *session) handleProduce(req *wire.RequestFrame) *wire.ResponseFrame {
	topic, message, err := decodeProduceRequest(req.Payload)
	if err != nil {
		return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
	}

	offset, err := s.broker.Produce(topic, message)
	if err != nil {
		if errors.Is(err, broker.ErrEmptyPayload) || errors.Is(err, broker.ErrEmptyTopic) {
			return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
		}
		return errorResponse(req.Command, wire.StatusErrProduceFailed, err.Error())
	}

	return &wire.ResponseFrame{Command: req.Command, Status: wire.StatusSuccess, Payload: encodeProduceResponse(offset)}
}

func (s *session) handleConsume(req *wire.RequestFrame) *wire.ResponseFrame {
	topic, startOffset, maxMessages, err := decodeConsumeRequest(req.Payload)
	if err != nil {
		return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
	}

	records, err := s.broker.Consume(topic, startOffset, maxMessages)
	if err != nil {
		return errorResponse(req.Command, wire.StatusErrInternalServer, err.Error())
	}

	return &wire.ResponseFrame{Command: req.Command, Status: wire.StatusSuccess, Payload: encodeConsumeResponse(records)}
}

func (s *session) handleGetNextOffset(req *wire.RequestFrame) *wire.ResponseFrame {
	topic, err := decodeTopicNameRequest(req.Payload)
	if err != nil {
		return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
	}

	nextOffset := s.broker.GetNextOffset(topic)
	return &wire.ResponseFrame{Command: req.Command, Status: wire.StatusSuccess, Payload: encodeGetNextOffsetResponse(nextOffset)}
}

func (s *session) handleCreateTopic(req *wire.RequestFrame) *wire.ResponseFrame {
	topic, err := decodeTopicNameRequest(req.Payload)
	if err != nil {
		return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
	}

	if _, err := s.broker.CreateTopic(topic); err != nil {
		return errorResponse(req.Command, wire.StatusErrInvalidRequest, err.Error())
	}
	return &wire.ResponseFrame{Command: req.Command, Status: wire.StatusSuccess, Payload: nil}
}

func (s *session) handleListTopics(req *wire.RequestFrame) *wire.ResponseFrame {
	names := s.broker.ListTopics()
	return &wire.ResponseFrame{Command: req.Command, Status: wire.StatusSuccess, Payload: encodeListTopicsResponse(names)}
}

func errorResponse(cmd wire.Command, status wire.Status, message string) *wire.ResponseFrame {
	var buf []byte
	if message != "" {
		buf = []byte(message)
	}
	return &wire.ResponseFrame{Command: cmd, Status: status, Payload: buf}
}
