package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"eventqueued/internal/broker"
)

const (
	defaultMaxMessages = 100
	hardMaxMessages    = 1000
)

type produceRequest struct {
	Payload string `json:"payload"`
}

type produceResponse struct {
	Topic  string `json:"topic"`
	Offset uint64 `json:"offset"`
}

type recordResponse struct {
	Offset  uint64 `json:"offset"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

type createTopicResponse struct {
	Topic  string `json:"topic"`
	Status string `json:"status"`
}

type nextOffsetResponse struct {
	Topic      string `json:"topic"`
	NextOffset uint64 `json:"next_offset"`
}

func (s *Server) handleProduce(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["name"]

	var body produceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	offset, err := s.broker.Produce(topic, []byte(body.Payload))
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrEmptyPayload), errors.Is(err, broker.ErrEmptyTopic):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, produceResponse{Topic: topic, Offset: offset})
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["name"]
	startOffset, maxMessages, err := parseConsumeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.broker.Consume(topic, startOffset, maxMessages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]recordResponse, len(records))
	for i, rec := range records {
		out[i] = recordResponse{Offset: rec.Offset, Topic: rec.Topic, Payload: string(rec.Payload)}
	}
	writeJSON(w, http.StatusOK, out)
}

func parseConsumeQuery(r *http.Request) (startOffset uint64, maxMessages uint32, err error) {
	query := r.URL.Query()

	if raw := query.Get("offset"); raw != "" {
		startOffset, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, errors.New("invalid offset")
		}
	}

	maxMessages = defaultMaxMessages
	if raw := query.Get("max_messages"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, 0, errors.New("invalid max_messages")
		}
		maxMessages = uint32(n)
	}
	if maxMessages > hardMaxMessages {
		maxMessages = hardMaxMessages
	}
	return startOffset, maxMessages, nil
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["name"]

	if _, err := s.broker.CreateTopic(topic); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, createTopicResponse{Topic: topic, Status: "created_or_exists"})
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.broker.ListTopics())
}

func (s *Server) handleNextOffset(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["name"]
	writeJSON(w, http.StatusOK, nextOffsetResponse{Topic: topic, NextOffset: s.broker.GetNextOffset(topic)})
}
