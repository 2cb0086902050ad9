// Package wire implements the binary codec used by the length-prefixed
// stream adapter (§6.3): fixed-width integers in network (big-endian) byte
// order and length-prefixed byte strings, read against or written to any
// io.Reader/io.Writer. It mirrors the encode/decode helpers the teacher
// keeps in internal/core/protocol, generalized from a pooled bytes.Buffer
// over a fixed request shape to plain stream reads/writes against the
// command set this spec defines.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrStringTooLong is returned when a string exceeds the length prefix's
// addressable range before encoding.
var ErrStringTooLong = errors.New("wire: string exceeds length-prefix capacity")

func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func ReadUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func WriteUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// WriteString16 writes a string prefixed by its 2-byte length, used for
// topic names on the wire.
func WriteString16(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return ErrStringTooLong
	}
	if err := WriteUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString16 reads a 2-byte-length-prefixed string, rejecting lengths
// beyond maxLen.
func ReadString16(r io.Reader, maxLen uint16) (string, error) {
	n, err := ReadUint16(r)
	if err != nil {
		return "", err
	}
	if n > maxLen {
		return "", fmt.Errorf("wire: string length %d exceeds limit %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteBytes32 writes a byte string prefixed by its 4-byte length, used for
// message payloads and error strings.
func WriteBytes32(w io.Writer, b []byte) error {
	if uint64(len(b)) > 0xFFFFFFFF {
		return ErrStringTooLong
	}
	if err := WriteUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadBytes32 reads a 4-byte-length-prefixed byte string, rejecting lengths
// beyond maxLen.
func ReadBytes32(r io.Reader, maxLen uint32) ([]byte, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, fmt.Errorf("wire: payload length %d exceeds limit %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func WriteString32(w io.Writer, s string) error {
	return WriteBytes32(w, []byte(s))
}

func ReadString32(r io.Reader, maxLen uint32) (string, error) {
	b, err := ReadBytes32(r, maxLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
