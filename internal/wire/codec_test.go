package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUintRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteUint8(&buf, 0x7F))
	require.NoError(t, WriteUint16(&buf, 0xBEEF))
	require.NoError(t, WriteUint32(&buf, 0xDEADBEEF))
	require.NoError(t, WriteUint64(&buf, 0x1122334455667788))

	u8, err := ReadUint8(&buf)
	require.NoError(t, err)
	require.Equal(t, uint8(0x7F), u8)

	u16, err := ReadUint16(&buf)
	require.NoError(t, err)
	require.Equal(t, uint16(0xBEEF), u16)

	u32, err := ReadUint32(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := ReadUint64(&buf)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1122334455667788), u64)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString16(&buf, "orders"))
	require.NoError(t, WriteBytes32(&buf, []byte("payload bytes")))

	topic, err := ReadString16(&buf, 0xFFFF)
	require.NoError(t, err)
	require.Equal(t, "orders", topic)

	payload, err := ReadBytes32(&buf, MaxPayloadSize)
	require.NoError(t, err)
	require.Equal(t, []byte("payload bytes"), payload)
}

func TestReadString16RejectsOverLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString16(&buf, "too-long-for-the-limit"))
	_, err := ReadString16(&buf, 4)
	require.Error(t, err)
}

func TestRequestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	orig := &RequestFrame{Command: CommandProduce, Payload: []byte("hello")}
	require.NoError(t, orig.Encode(&buf))

	decoded, err := DecodeRequestFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, orig.Command, decoded.Command)
	require.Equal(t, orig.Payload, decoded.Payload)
}

func TestResponseFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	orig := &ResponseFrame{Command: CommandConsume, Status: StatusSuccess, Payload: []byte("ok")}
	require.NoError(t, orig.Encode(&buf))

	decoded, err := DecodeResponseFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, orig.Command, decoded.Command)
	require.Equal(t, orig.Status, decoded.Status)
	require.Equal(t, orig.Payload, decoded.Payload)
}

func TestDecodeRequestFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint8(&buf, uint8(CommandProduce)))
	require.NoError(t, WriteUint32(&buf, MaxPayloadSize+1))

	_, err := DecodeRequestFrame(&buf)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestSnappyRoundTrip(t *testing.T) {
	data := []byte("a payload worth compressing, repeated repeated repeated")
	compressed := CompressSnappy(data)
	decompressed, err := DecompressSnappy(compressed)
	require.NoError(t, err)
	require.Equal(t, data, decompressed)
}
