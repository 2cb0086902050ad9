package topiclog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTopic(t *testing.T, name string) (*Topic, string) {
	t.Helper()
	dir := t.TempDir()
	topicDir := filepath.Join(dir, name)
	topic, err := Open(topicDir, name)
	require.NoError(t, err)
	t.Cleanup(func() { topic.Close() })
	return topic, topicDir
}

func TestAppendAssignsContiguousOffsets(t *testing.T) {
	topic, _ := newTestTopic(t, "orders")

	for want := uint64(0); want < 10; want++ {
		got, err := topic.Append([]byte("payload"))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.Equal(t, uint64(10), topic.NextOffset())
}

func TestReadReturnsRecordsInOrderFromOffset(t *testing.T) {
	topic, _ := newTestTopic(t, "orders")

	for i := 0; i < 5; i++ {
		_, err := topic.Append([]byte{byte(i)})
		require.NoError(t, err)
	}

	records, err := topic.Read(2, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		require.Equal(t, uint64(2+i), r.Offset)
		require.Equal(t, []byte{byte(2 + i)}, r.Payload)
	}
}

func TestReadPastNextOffsetReturnsEmpty(t *testing.T) {
	topic, _ := newTestTopic(t, "orders")
	_, err := topic.Append([]byte("a"))
	require.NoError(t, err)

	records, err := topic.Read(100, 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestReadRespectsMaxRecords(t *testing.T) {
	topic, _ := newTestTopic(t, "orders")
	for i := 0; i < 20; i++ {
		_, err := topic.Append([]byte("x"))
		require.NoError(t, err)
	}

	records, err := topic.Read(0, 5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.Equal(t, uint64(0), records[0].Offset)
	require.Equal(t, uint64(4), records[4].Offset)
}

func TestReopenAfterCleanShutdownPreservesState(t *testing.T) {
	topic, dir := newTestTopic(t, "orders")
	for i := 0; i < 7; i++ {
		_, err := topic.Append([]byte("m"))
		require.NoError(t, err)
	}
	require.NoError(t, topic.Close())

	reopened, err := Open(dir, "orders")
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(7), reopened.NextOffset())
	records, err := reopened.Read(0, 100)
	require.NoError(t, err)
	require.Len(t, records, 7)
}

func TestEmptyPayloadRoundTrips(t *testing.T) {
	topic, _ := newTestTopic(t, "orders")
	offset, err := topic.Append(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)

	records, err := topic.Read(0, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Empty(t, records[0].Payload)
}

// TestRecoveryRebuildsIndexWhenIndexFileMissing covers the "crash before
// index write" scenario: the data log is intact but index.idx is absent.
func TestRecoveryRebuildsIndexWhenIndexFileMissing(t *testing.T) {
	topic, dir := newTestTopic(t, "e")
	for i := 0; i < 50; i++ {
		_, err := topic.Append([]byte("record"))
		require.NoError(t, err)
	}
	require.NoError(t, topic.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, indexFilename)))

	reopened, err := Open(dir, "e")
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(50), reopened.NextOffset())
	records, err := reopened.Read(0, 100)
	require.NoError(t, err)
	require.Len(t, records, 50)
}

// TestRecoveryRebuildsMetadataWhenMetadataFileMissing covers the "crash
// before metadata flush" scenario.
func TestRecoveryRebuildsMetadataWhenMetadataFileMissing(t *testing.T) {
	topic, dir := newTestTopic(t, "e")
	for i := 0; i < 12; i++ {
		_, err := topic.Append([]byte("record"))
		require.NoError(t, err)
	}
	require.NoError(t, topic.Close())

	require.NoError(t, os.Remove(filepath.Join(dir, metadataFilename)))

	reopened, err := Open(dir, "e")
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(12), reopened.NextOffset())
}

// TestRecoveryDetectsTruncatedTail is the scenario named explicitly in
// spec.md §8: 1000 records committed, the last 5 bytes of data.log are
// truncated away (simulating a crash mid-write whose index entry and
// metadata nonetheless made it to disk first), and get_next_offset after
// restart must come back as 999, not 1000.
func TestRecoveryDetectsTruncatedTail(t *testing.T) {
	topic, dir := newTestTopic(t, "e")
	for i := 0; i < 1000; i++ {
		_, err := topic.Append([]byte("0123456789"))
		require.NoError(t, err)
	}
	require.NoError(t, topic.Close())

	dataPath := filepath.Join(dir, dataLogFilename)
	info, err := os.Stat(dataPath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(dataPath, info.Size()-5))

	reopened, err := Open(dir, "e")
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint64(999), reopened.NextOffset())

	records, err := reopened.Read(0, 2000)
	require.NoError(t, err)
	require.Len(t, records, 999)
}

func TestRecoveryOnEmptyTopicDirectory(t *testing.T) {
	dir := t.TempDir()
	topic, err := Open(filepath.Join(dir, "fresh"), "fresh")
	require.NoError(t, err)
	defer topic.Close()

	require.Equal(t, uint64(0), topic.NextOffset())
	records, err := topic.Read(0, 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestAppendAfterCloseFails(t *testing.T) {
	topic, _ := newTestTopic(t, "orders")
	require.NoError(t, topic.Close())

	_, err := topic.Append([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestOpenRejectsEmptyName(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, "")
	require.ErrorIs(t, err, ErrEmptyName)
}
