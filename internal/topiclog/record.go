package topiclog

import "encoding/binary"

// Record is a single committed message: its assigned offset and payload.
// The owning topic name is supplied by the caller (the facade), not stored
// per record, matching spec.md's Record attributes.
type Record struct {
	Offset  uint64
	Payload []byte
}

// diskOrder is the byte order used for every multi-byte field in the data
// log, index, and metadata files. spec.md §4.1 calls this "the host's
// natural byte order... a single-node local format, not a wire format" and
// leaves the specific choice to the implementation (§9: "implementers are
// free to pick either convention so long as readers and the recovery scan
// agree"). LittleEndian is picked here and used consistently by every
// reader, writer, and the recovery scan.
var diskOrder = binary.LittleEndian

const (
	// recordHeaderSize is the on-disk record header: offset (8) + payload
	// length (4), preceding the payload bytes themselves.
	recordHeaderSize = 8 + 4
	// indexEntrySize is one (offset, byte_position) pair in index.idx.
	indexEntrySize = 8 + 8
	// metadataSize is the single next_offset value in metadata.meta.
	metadataSize = 8
)
