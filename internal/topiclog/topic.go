// Package topiclog implements a single topic's durable, ordered,
// append-only storage: the data log, its offset index, and its metadata
// file, plus the startup recovery procedure that reconciles all three
// after an unclean shutdown (spec.md §4.1).
package topiclog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"eventqueued/internal/rlog"
)

const (
	dataLogFilename  = "data.log"
	indexFilename    = "index.idx"
	metadataFilename = "metadata.meta"
)

// Topic owns the on-disk state of one topic: its data log, index, and
// metadata files, its in-memory index, and the lock that serializes every
// append and read against them.
type Topic struct {
	name string
	dir  string

	dataPath  string
	indexPath string
	metaPath  string

	mu        sync.Mutex
	dataFile  *os.File
	indexFile *os.File
	metaFile  *os.File

	writePos   uint64
	nextOffset uint64
	index      *offsetIndex
	closed     bool
}

// Open loads (or creates) the topic rooted at dir, running the recovery
// protocol before returning. dir is the topic's own directory, already
// scoped to this topic's name by the caller (the topic registry).
func Open(dir, name string) (*Topic, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("topiclog: create topic directory %q: %w", dir, err)
	}

	t := &Topic{
		name:      name,
		dir:       dir,
		dataPath:  filepath.Join(dir, dataLogFilename),
		indexPath: filepath.Join(dir, indexFilename),
		metaPath:  filepath.Join(dir, metadataFilename),
		index:     newOffsetIndex(),
	}

	var err error
	t.dataFile, err = os.OpenFile(t.dataPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("topiclog: open data log: %w", err)
	}
	t.indexFile, err = os.OpenFile(t.indexPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		t.dataFile.Close()
		return nil, fmt.Errorf("topiclog: open index: %w", err)
	}
	t.metaFile, err = os.OpenFile(t.metaPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.dataFile.Close()
		t.indexFile.Close()
		return nil, fmt.Errorf("topiclog: open metadata: %w", err)
	}

	if err := t.recover(); err != nil {
		t.dataFile.Close()
		t.indexFile.Close()
		t.metaFile.Close()
		return nil, err
	}
	return t, nil
}

// Name returns the topic's name.
func (t *Topic) Name() string { return t.name }

// recover runs the five-step startup protocol from spec.md §4.1.
func (t *Topic) recover() error {
	nextOffset, err := t.loadMetadata() // step 1
	if err != nil {
		return err
	}
	t.nextOffset = nextOffset

	t.loadIndex() // step 2, best-effort

	needsScan, err := t.needsDataScan() // step 3
	if err != nil {
		return err
	}
	if needsScan {
		if err := t.rebuildFromDataLog(); err != nil { // step 4
			return err
		}
	}

	recomputed := uint64(0) // step 5
	if top, ok := t.index.max(); ok {
		recomputed = top.offset + 1
	}
	if recomputed != t.nextOffset {
		rlog.Warn("topiclog: topic %q next_offset recovered as %d (metadata said %d)", t.name, recomputed, t.nextOffset)
		t.nextOffset = recomputed
		if err := t.writeMetadata(t.nextOffset); err != nil {
			return err
		}
	}

	info, err := t.dataFile.Stat()
	if err != nil {
		return fmt.Errorf("topiclog: stat data log: %w", err)
	}
	t.writePos = uint64(info.Size())
	return nil
}

// loadMetadata implements step 1: a missing or short metadata file is
// treated as a fresh topic and rewritten.
func (t *Topic) loadMetadata() (uint64, error) {
	buf := make([]byte, metadataSize)
	n, err := t.metaFile.ReadAt(buf, 0)
	if err != nil || n != metadataSize {
		if werr := t.writeMetadata(0); werr != nil {
			return 0, werr
		}
		return 0, nil
	}
	return diskOrder.Uint64(buf), nil
}

func (t *Topic) writeMetadata(next uint64) error {
	buf := make([]byte, metadataSize)
	diskOrder.PutUint64(buf, next)
	if _, err := t.metaFile.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("topiclog: write metadata: %w", err)
	}
	return t.metaFile.Sync()
}

// loadIndex implements step 2: read the index sequentially, stopping at
// the first short read or parse error and treating everything after it as
// lost (the data-log scan, if triggered, rebuilds it).
func (t *Topic) loadIndex() {
	t.index.reset()
	if _, err := t.indexFile.Seek(0, io.SeekStart); err != nil {
		return
	}
	buf := make([]byte, indexEntrySize)
	for {
		n, err := io.ReadFull(t.indexFile, buf)
		if err != nil {
			if n > 0 {
				rlog.Warn("topiclog: topic %q: %v (read %d of %d bytes for trailing entry)", t.name, ErrCorruptIndex, n, indexEntrySize)
			}
			return
		}
		offset := diskOrder.Uint64(buf[0:8])
		position := diskOrder.Uint64(buf[8:16])
		t.index.insert(offset, position)
	}
}

// needsDataScan implements step 3, plus one refinement: beyond the
// cardinality check spec.md names (index empty, or its highest offset
// trailing next_offset by more than one), it also verifies the record the
// last index entry points at is still fully readable. Without that check,
// corruption that truncates the data log's tail *after* a clean shutdown
// (rather than mid-append) would go undetected at startup even though the
// index and metadata still agree with each other — see DESIGN.md.
func (t *Topic) needsDataScan() (bool, error) {
	info, err := t.dataFile.Stat()
	if err != nil {
		return false, fmt.Errorf("topiclog: stat data log: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	top, ok := t.index.max()
	if !ok {
		return true, nil
	}
	if t.nextOffset == 0 || top.offset < t.nextOffset-1 {
		return true, nil
	}

	readable, err := t.recordFullyReadableAt(top.position, top.offset, uint64(info.Size()))
	if err != nil {
		return false, err
	}
	return !readable, nil
}

func (t *Topic) recordFullyReadableAt(position, expectedOffset, fileSize uint64) (bool, error) {
	if position+recordHeaderSize > fileSize {
		return false, nil
	}
	header := make([]byte, recordHeaderSize)
	if _, err := t.dataFile.ReadAt(header, int64(position)); err != nil {
		return false, nil
	}
	offset := diskOrder.Uint64(header[0:8])
	payloadLen := diskOrder.Uint32(header[8:12])
	if offset != expectedOffset {
		return false, nil
	}
	return position+recordHeaderSize+uint64(payloadLen) <= fileSize, nil
}

// rebuildFromDataLog implements step 4: scan data.log from byte 0,
// stopping at the first record that can't be fully read, and replace the
// in-memory index and on-disk index file with exactly what the scan
// recovered.
func (t *Topic) rebuildFromDataLog() error {
	f, err := os.Open(t.dataPath)
	if err != nil {
		return fmt.Errorf("topiclog: open data log for recovery scan: %w", err)
	}
	defer f.Close()

	fresh := newOffsetIndex()
	var pos uint64
	header := make([]byte, recordHeaderSize)
	recovered := 0
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			break
		}
		offset := diskOrder.Uint64(header[0:8])
		payloadLen := diskOrder.Uint32(header[8:12])
		recordStart := pos

		if _, err := io.CopyN(io.Discard, f, int64(payloadLen)); err != nil {
			break
		}
		fresh.insert(offset, recordStart)
		pos += recordHeaderSize + uint64(payloadLen)
		recovered++
	}

	rlog.Info("topiclog: topic %q recovery scan reconciled %d records from data.log", t.name, recovered)
	t.index = fresh
	return t.rewriteIndexFile()
}

func (t *Topic) rewriteIndexFile() error {
	if err := t.indexFile.Truncate(0); err != nil {
		return fmt.Errorf("topiclog: truncate index for rebuild: %w", err)
	}
	if _, err := t.indexFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("topiclog: seek index for rebuild: %w", err)
	}
	buf := make([]byte, indexEntrySize)
	for _, e := range t.index.entries {
		diskOrder.PutUint64(buf[0:8], e.offset)
		diskOrder.PutUint64(buf[8:16], e.position)
		if _, err := t.indexFile.Write(buf); err != nil {
			return fmt.Errorf("topiclog: rewrite index entry: %w", err)
		}
	}
	return t.indexFile.Sync()
}

// Append commits payload as the next record, under the topic lock. Any
// I/O error surfaces to the caller and leaves next_offset unchanged — the
// record is not considered committed.
func (t *Topic) Append(payload []byte) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrClosed
	}

	offset := t.nextOffset
	position := t.writePos

	header := make([]byte, recordHeaderSize)
	diskOrder.PutUint64(header[0:8], offset)
	diskOrder.PutUint32(header[8:12], uint32(len(payload)))

	if _, err := t.dataFile.Write(header); err != nil {
		return 0, fmt.Errorf("topiclog: write record header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := t.dataFile.Write(payload); err != nil {
			return 0, fmt.Errorf("topiclog: write record payload: %w", err)
		}
	}
	if err := t.dataFile.Sync(); err != nil {
		return 0, fmt.Errorf("topiclog: flush data log: %w", err)
	}

	entry := make([]byte, indexEntrySize)
	diskOrder.PutUint64(entry[0:8], offset)
	diskOrder.PutUint64(entry[8:16], position)
	if _, err := t.indexFile.Write(entry); err != nil {
		return 0, fmt.Errorf("topiclog: write index entry: %w", err)
	}
	if err := t.indexFile.Sync(); err != nil {
		return 0, fmt.Errorf("topiclog: flush index: %w", err)
	}

	if err := t.writeMetadata(offset + 1); err != nil {
		return 0, err
	}

	t.index.insert(offset, position)
	t.writePos = position + recordHeaderSize + uint64(len(payload))
	t.nextOffset = offset + 1

	return offset, nil
}

// Read returns up to maxRecords records starting at startOffset, stopping
// early on a short read or an index/data mismatch without treating either
// as a hard error (spec.md §4.1's read failure semantics).
func (t *Topic) Read(startOffset uint64, maxRecords uint32) ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if startOffset >= t.nextOffset || maxRecords == 0 {
		return []Record{}, nil
	}

	entry, ok := t.index.lowerBound(startOffset)
	if !ok {
		return []Record{}, nil
	}

	// A fresh read-only handle per call, per spec.md §9: the writer's
	// handle is never shared for positioning, so readers never serialize
	// behind writes beyond the topic lock itself.
	f, err := os.Open(t.dataPath)
	if err != nil {
		return nil, fmt.Errorf("topiclog: open data log for read: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(entry.position), io.SeekStart); err != nil {
		return nil, fmt.Errorf("topiclog: seek data log: %w", err)
	}

	records := make([]Record, 0, maxRecords)
	expected := entry.offset
	header := make([]byte, recordHeaderSize)
	for uint32(len(records)) < maxRecords && expected < t.nextOffset {
		if _, err := io.ReadFull(f, header); err != nil {
			break
		}
		offset := diskOrder.Uint64(header[0:8])
		payloadLen := diskOrder.Uint32(header[8:12])
		if offset != expected {
			rlog.Error("topiclog: index/data mismatch in topic %q: expected offset %d, found %d", t.name, expected, offset)
			break
		}

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			break
		}

		records = append(records, Record{Offset: offset, Payload: payload})
		expected++
	}
	return records, nil
}

// NextOffset returns the offset the next successful Append will be
// assigned.
func (t *Topic) NextOffset() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextOffset
}

// Close releases the topic's file handles. It does not flush anything
// beyond what Append already flushed per-call.
func (t *Topic) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var firstErr error
	for _, f := range []*os.File{t.dataFile, t.indexFile, t.metaFile} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
