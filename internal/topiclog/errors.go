package topiclog

import "errors"

var (
	ErrClosed       = errors.New("topiclog: topic is closed")
	ErrEmptyName    = errors.New("topiclog: topic name must not be empty")
	ErrCorruptIndex = errors.New("topiclog: index file size is not a multiple of the entry size")
)
