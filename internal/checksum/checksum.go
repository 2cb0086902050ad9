// Package checksum guards wire-protocol payloads with CRC32 (IEEE).
package checksum

import "hash/crc32"

type CRC uint32

func IEEE(data []byte) CRC {
	return CRC(crc32.ChecksumIEEE(data))
}

func (c CRC) Verify(data []byte) bool {
	return c == IEEE(data)
}
