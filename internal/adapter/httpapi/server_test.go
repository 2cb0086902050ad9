package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"eventqueued/internal/broker"
	"eventqueued/internal/topicregistry"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	registry, err := topicregistry.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	b := broker.New(registry)
	s := New("127.0.0.1:0", b, "", "")
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestProduceAndConsumeOverHTTP(t *testing.T) {
	s := newTestServer(t)
	base := "http://" + s.Addr()

	body, _ := json.Marshal(produceRequest{Payload: "hello"})
	resp, err := http.Post(base+"/topics/orders/produce", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var produced produceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&produced))
	require.Equal(t, uint64(0), produced.Offset)

	resp, err = http.Get(base + "/topics/orders/consume?offset=0&max_messages=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []recordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	require.Equal(t, "hello", records[0].Payload)
}

func TestConsumeOnMissingTopicReturnsEmptyArray(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get("http://" + s.Addr() + "/topics/missing/consume")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []recordResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Empty(t, records)
}

func TestProduceRejectsEmptyPayload(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(produceRequest{Payload: ""})
	resp, err := http.Post("http://"+s.Addr()+"/topics/orders/produce", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateTopicIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	base := "http://" + s.Addr()

	for i := 0; i < 2; i++ {
		resp, err := http.Post(base+"/topics/orders", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var out createTopicResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		require.Equal(t, "created_or_exists", out.Status)
	}
}

func TestListTopics(t *testing.T) {
	s := newTestServer(t)
	base := "http://" + s.Addr()

	_, err := http.Post(base+"/topics/orders", "application/json", nil)
	require.NoError(t, err)

	resp, err := http.Get(base + "/topics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	require.Equal(t, []string{"orders"}, names)
}

func TestNextOffsetOnMissingTopicReturnsZero(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get("http://" + s.Addr() + "/topics/missing/next_offset")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out nextOffsetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, uint64(0), out.NextOffset)
}

func TestStreamDeliversExistingRecords(t *testing.T) {
	s := newTestServer(t)
	base := "http://" + s.Addr()

	body, _ := json.Marshal(produceRequest{Payload: "first"})
	_, err := http.Post(base+"/topics/orders/produce", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/topics/orders/stream?offset=0", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "event: message")
	require.Contains(t, fmt.Sprintf("%s", buf[:n]), "first")
}
