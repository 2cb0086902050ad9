package topicregistry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCreatesOnFirstCall(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	topic, err := r.GetOrCreate("orders")
	require.NoError(t, err)
	require.Equal(t, "orders", topic.Name())

	again, err := r.GetOrCreate("orders")
	require.NoError(t, err)
	require.Same(t, topic, again)
}

func TestGetOrCreateRejectsEmptyName(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.GetOrCreate("")
	require.Error(t, err)
}

func TestListReturnsSortedNames(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.GetOrCreate("zebra")
	require.NoError(t, err)
	_, err = r.GetOrCreate("apple")
	require.NoError(t, err)

	require.Equal(t, []string{"apple", "zebra"}, r.List())
}

func TestOpenRecoversExistingTopicDirectories(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)

	topic, err := r.GetOrCreate("orders")
	require.NoError(t, err)
	_, err = topic.Append([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	recovered, ok := reopened.Get("orders")
	require.True(t, ok)
	require.Equal(t, uint64(1), recovered.NextOffset())
}

func TestGetOnUnknownTopicReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.Get("nonexistent")
	require.False(t, ok)
}

func TestOpenCreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()
}
