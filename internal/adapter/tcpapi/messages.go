package tcpapi

import (
	"bytes"

	"eventqueued/internal/broker"
	"eventqueued/internal/wire"
)

const maxTopicNameLen = 0xFFFF

func decodeProduceRequest(payload []byte) (topic string, message []byte, err error) {
	r := bytes.NewReader(payload)
	topic, err = wire.ReadString16(r, maxTopicNameLen)
	if err != nil {
		return "", nil, err
	}
	message, err = wire.ReadBytes32(r, wire.MaxPayloadSize)
	if err != nil {
		return "", nil, err
	}
	return topic, message, nil
}

func encodeProduceResponse(offset uint64) []byte {
	var buf bytes.Buffer
	_ = wire.WriteUint64(&buf, offset)
	return buf.Bytes()
}

func decodeConsumeRequest(payload []byte) (topic string, startOffset uint64, maxMessages uint32, err error) {
	r := bytes.NewReader(payload)
	topic, err = wire.ReadString16(r, maxTopicNameLen)
	if err != nil {
		return "", 0, 0, err
	}
	startOffset, err = wire.ReadUint64(r)
	if err != nil {
		return "", 0, 0, err
	}
	maxMessages, err = wire.ReadUint32(r)
	if err != nil {
		return "", 0, 0, err
	}
	return topic, startOffset, maxMessages, nil
}

func encodeConsumeResponse(records []broker.Record) []byte {
	var buf bytes.Buffer
	_ = wire.WriteUint32(&buf, uint32(len(records)))
	for _, r := range records {
		_ = wire.WriteUint64(&buf, r.Offset)
		_ = wire.WriteBytes32(&buf, r.Payload)
	}
	return buf.Bytes()
}

func decodeTopicNameRequest(payload []byte) (string, error) {
	r := bytes.NewReader(payload)
	return wire.ReadString16(r, maxTopicNameLen)
}

func encodeGetNextOffsetResponse(nextOffset uint64) []byte {
	var buf bytes.Buffer
	_ = wire.WriteUint64(&buf, nextOffset)
	return buf.Bytes()
}

func encodeListTopicsResponse(names []string) []byte {
	var buf bytes.Buffer
	_ = wire.WriteUint32(&buf, uint32(len(names)))
	for _, name := range names {
		_ = wire.WriteString16(&buf, name)
	}
	return buf.Bytes()
}
