package tcpapi

import (
	"encoding/binary"
	"errors"

	"eventqueued/internal/checksum"
)

var errChecksumMismatch = errors.New("tcpapi: payload failed checksum verification")

// appendChecksum is the sender's half of CommandFlagChecksummed: it trails
// the payload with a big-endian CRC32 (IEEE) the receiver strips and
// verifies before touching the command's documented payload shape.
func appendChecksum(payload []byte) []byte {
	sum := make([]byte, 4)
	binary.BigEndian.PutUint32(sum, uint32(checksum.IEEE(payload)))
	return append(payload, sum...)
}

// stripChecksum is the receiver's half: it splits the trailing 4-byte CRC32
// off payload and verifies it against the remaining bytes.
func stripChecksum(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, errChecksumMismatch
	}
	data, sum := payload[:len(payload)-4], payload[len(payload)-4:]
	want := checksum.CRC(binary.BigEndian.Uint32(sum))
	if !want.Verify(data) {
		return nil, errChecksumMismatch
	}
	return data, nil
}
