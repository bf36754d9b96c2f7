package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/ledger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/logger"
	"github.com/jmcanterafonseca-iota/iota-anchor-channels/internal/node/api"
)

// decodeJSON reads the request body into dst. Bodies over the size limit map to a
// request_too_large error, anything unreadable to a validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return api.NewRequestTooLargeError(fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		}
		return ledger.WrapValidationError(err, "invalid request body")
	}
	return nil
}

// decodeChannelMessage decodes a message posted under /channels/{channelAddress}.
func decodeChannelMessage(r *http.Request) (*ledger.Message, error) {
	var m ledger.Message
	if err := decodeJSON(r, &m); err != nil {
		return nil, err
	}
	if addr := chi.URLParam(r, "channelAddress"); m.ChannelAddress != addr {
		return nil, ledger.NewValidationError("channelAddress does not match the request path")
	}
	return &m, nil
}

// handleCreateChannel accepts a signed announce message.
//
//	POST /api/v1/channels -> 201 ledger.ChannelInfo
func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var announce ledger.Message
	if err := decodeJSON(r, &announce); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	info, err := s.ledger.CreateChannel(r.Context(), &announce)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	logger.ContextRequestLogger(r.Context()).Info("channel created",
		slog.String("channel_address", info.ChannelAddress),
		slog.String("announce_message_id", info.AnnounceMessageID))

	api.RespondWithJSONPayload(w, http.StatusCreated, info)
}

// handleSubscribe accepts a signed subscribe message.
//
//	POST /api/v1/channels/{channelAddress}/subscriptions -> 200 ledger.Subscription
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	m, err := decodeChannelMessage(r)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	sub, err := s.ledger.Subscribe(r.Context(), m)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, sub)
}

// handlePublish accepts a signed packet anchored to an existing message of the channel.
//
//	POST /api/v1/channels/{channelAddress}/messages -> 201 ledger.Message
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	m, err := decodeChannelMessage(r)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	stored, err := s.ledger.Publish(r.Context(), m)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusCreated, stored)
}

// handleGetMessage returns one message of the channel.
//
//	GET /api/v1/channels/{channelAddress}/messages/{messageId} -> 200 ledger.Message
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	m, err := s.ledger.GetMessage(r.Context(), chi.URLParam(r, "channelAddress"), chi.URLParam(r, "messageId"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, m)
}

// handleListMessages lists the signed packets of the channel in commit order.
//
//	GET /api/v1/channels/{channelAddress}/messages?linkId=&after=&limit= -> 200 api.MessagesResponse
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	q := ledger.ListQuery{
		ChannelAddress: chi.URLParam(r, "channelAddress"),
		LinkID:         r.URL.Query().Get("linkId"),
	}

	if after := r.URL.Query().Get("after"); after != "" {
		v, err := strconv.ParseUint(after, 10, 64)
		if err != nil {
			api.RespondWithErrorResponse(w, r, ledger.WrapValidationError(err, "invalid after parameter"))
			return
		}
		q.AfterSeq = v
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			api.RespondWithErrorResponse(w, r, ledger.WrapValidationError(err, "invalid limit parameter"))
			return
		}
		q.Limit = v
	}

	messages, err := s.ledger.ListMessages(r.Context(), q)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	if messages == nil {
		messages = []*ledger.Message{}
	}

	api.RespondWithJSONPayload(w, http.StatusOK, api.MessagesResponse{Messages: messages})
}
