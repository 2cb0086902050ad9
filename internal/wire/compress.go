package wire

import "github.com/golang/snappy"

// CompressSnappy and DecompressSnappy wrap the binary adapter's optional
// payload compression, grounded on the teacher's own
// internal/core/protocol CompressWithSnappy/DecompressWithSnappy helpers.
func CompressSnappy(data []byte) []byte {
	return snappy.Encode(nil, data)
}

func DecompressSnappy(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}
