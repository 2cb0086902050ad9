package wire

import (
	"bytes"
	"errors"
	"io"
)

// Command identifies a binary-adapter request (§6.3).
type Command uint8

const (
	CommandProduce       Command = 0x01
	CommandConsume       Command = 0x02
	CommandGetNextOffset Command = 0x03
	CommandCreateTopic   Command = 0x04
	CommandListTopics    Command = 0x05
)

// The command byte's two high bits are unused by the command table above
// (§6.3 only assigns 0x01-0x05), so they carry optional per-request wire
// treatment without touching the frame's byte layout: a client may OR one
// or both flags onto PRODUCE/CONSUME to ask the server to decompress
// and/or checksum-verify the payload before decoding it as that command's
// documented request shape. Neither flag changes what's stored on disk or
// what a plain, unflagged client sees.
const (
	CommandFlagCompressed  Command = 0x80
	CommandFlagChecksummed Command = 0x40
	commandFlagMask        Command = CommandFlagCompressed | CommandFlagChecksummed
)

// Base strips any wire-treatment flags, returning the underlying command.
func (c Command) Base() Command { return c &^ commandFlagMask }

// HasFlag reports whether the given flag bit is set on c.
func (c Command) HasFlag(flag Command) bool { return c&flag != 0 }

// Status identifies the outcome of a binary-adapter request (§6.3).
type Status uint8

const (
	StatusSuccess            Status = 0x00
	StatusErrTopicNotFound   Status = 0x01
	StatusErrInvalidOffset   Status = 0x02
	StatusErrSerialization   Status = 0x03
	StatusErrProduceFailed   Status = 0x04
	StatusErrInternalServer  Status = 0x05
	StatusErrInvalidRequest  Status = 0x06
	StatusErrPayloadTooLarge Status = 0x07
	StatusErrUnknownCommand  Status = 0x08
)

// MaxPayloadSize is the largest frame payload the binary adapter accepts;
// oversized requests yield StatusErrPayloadTooLarge and terminate the
// session (§6.3).
const MaxPayloadSize = 64 * 1024 * 1024

// RequestFrame is {command: 1 byte, payload_length: 4 bytes BE, payload}.
type RequestFrame struct {
	Command Command
	Payload []byte
}

func (f *RequestFrame) Encode(w io.Writer) error {
	if err := WriteUint8(w, uint8(f.Command)); err != nil {
		return err
	}
	return WriteBytes32(w, f.Payload)
}

// DecodeRequestFrame reads one request frame from r. A payload longer than
// MaxPayloadSize is reported via ErrPayloadTooLarge without reading the
// (unbounded) remainder of the frame — the caller must close the session.
func DecodeRequestFrame(r io.Reader) (*RequestFrame, error) {
	cmd, err := ReadUint8(r)
	if err != nil {
		return nil, err
	}
	length, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &RequestFrame{Command: Command(cmd), Payload: payload}, nil
}

// ResponseFrame is {command: 1 byte, status: 1 byte, payload_length: 4
// bytes BE, payload}.
type ResponseFrame struct {
	Command Command
	Status  Status
	Payload []byte
}

func (f *ResponseFrame) Encode(w io.Writer) error {
	if err := WriteUint8(w, uint8(f.Command)); err != nil {
		return err
	}
	if err := WriteUint8(w, uint8(f.Status)); err != nil {
		return err
	}
	return WriteBytes32(w, f.Payload)
}

func (f *ResponseFrame) Bytes() []byte {
	var buf bytes.Buffer
	_ = f.Encode(&buf)
	return buf.Bytes()
}

func DecodeResponseFrame(r io.Reader) (*ResponseFrame, error) {
	cmd, err := ReadUint8(r)
	if err != nil {
		return nil, err
	}
	status, err := ReadUint8(r)
	if err != nil {
		return nil, err
	}
	length, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if length > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &ResponseFrame{Command: Command(cmd), Status: Status(status), Payload: payload}, nil
}

// ErrPayloadTooLarge is returned by DecodeRequestFrame when the declared
// payload length exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("wire: payload exceeds max frame size")
