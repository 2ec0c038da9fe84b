// Package server implements a protocol-faithful dev stand-in for the
// inference service: the buffered HTTP endpoint, the inference log store
// and the websocket signaling endpoint.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
	"moodflix-capture/internal/infrastructure/transport"
)

// catalog is the canned recommendation pool. The real engine selects by
// detected mood; the stub rotates through the pool.
var catalog = []string{
	"Interstellar",
	"Joker",
	"Inside Out",
	"The Grand Budapest Hotel",
	"Whiplash",
	"Paddington 2",
	"Her",
	"Mad Max: Fury Road",
}

const recommendationCount = 3

// inferencePayload mirrors the buffered-variant request body.
type inferencePayload struct {
	Environment domain.EnvironmentSnapshot `json:"environment"`
	Images      []string                   `json:"images"`
	Audio       string                     `json:"audio"`
}

// InferenceHandler serves the buffered HTTP inference endpoint.
type InferenceHandler struct {
	logger application.Logger

	mu  sync.Mutex
	seq int
}

// NewInferenceHandler creates the handler.
func NewInferenceHandler(logger application.Logger) *InferenceHandler {
	return &InferenceHandler{logger: logger}
}

// Infer accepts a bare or MFNP-enveloped inference request and answers
// with a recommendation list in the matching shape.
func (h *InferenceHandler) Infer(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, envelopeError("unreadable body"))
		return
	}

	var enveloped bool
	var env transport.Envelope
	payloadBytes := body
	if err := json.Unmarshal(body, &env); err == nil && env.Protocol != "" {
		enveloped = true
		if env.Protocol != transport.ProtocolName {
			c.JSON(http.StatusBadRequest, envelopeError("Unsupported protocol"))
			return
		}
		if env.MessageType != transport.MessageTypeInference {
			c.JSON(http.StatusBadRequest, envelopeError("Unsupported message type"))
			return
		}
		payloadBytes = env.Payload
	}

	var payload inferencePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.JSON(http.StatusBadRequest, envelopeError("invalid payload"))
		return
	}
	if len(payload.Images) == 0 {
		c.JSON(http.StatusBadRequest, envelopeError("images are required"))
		return
	}

	h.logger.Info("inference request: %d frames, %d audio bytes, city=%s",
		len(payload.Images), len(payload.Audio), payload.Environment.City)

	titles := h.pick()
	if enveloped {
		c.JSON(http.StatusOK, gin.H{
			"protocol":     transport.ProtocolName,
			"version":      transport.ProtocolVersion,
			"sender":       transport.SenderServer,
			"message_type": transport.MessageTypeInference,
			"payload": gin.H{
				"recommendations": titles,
				"mood":            "neutral",
				"tone":            "calm",
			},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": titles})
}

// pick is called concurrently by the HTTP and signaling handlers.
func (h *InferenceHandler) pick() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	titles := make([]string, 0, recommendationCount)
	for i := 0; i < recommendationCount; i++ {
		titles = append(titles, catalog[(h.seq+i)%len(catalog)])
	}
	h.seq = (h.seq + recommendationCount) % len(catalog)
	return titles
}

func envelopeError(reason string) gin.H {
	return gin.H{
		"protocol":     transport.ProtocolName,
		"version":      transport.ProtocolVersion,
		"sender":       transport.SenderServer,
		"message_type": transport.MessageTypeError,
		"payload":      gin.H{"reason": reason},
	}
}

// LogHandler serves the inference log endpoint.
type LogHandler struct {
	store  *LogStore
	logger application.Logger
}

// NewLogHandler creates the handler.
func NewLogHandler(store *LogStore, logger application.Logger) *LogHandler {
	return &LogHandler{store: store, logger: logger}
}

// Append stores one log record from a bare or enveloped POST body.
func (h *LogHandler) Append(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, envelopeError("unreadable body"))
		return
	}

	payloadBytes := body
	var env transport.Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Protocol == transport.ProtocolName {
		if env.MessageType != transport.MessageTypeInferenceLog {
			c.JSON(http.StatusBadRequest, envelopeError("Unsupported message type"))
			return
		}
		payloadBytes = env.Payload
	}

	var rec transport.LogRecord
	if err := json.Unmarshal(payloadBytes, &rec); err != nil {
		c.JSON(http.StatusBadRequest, envelopeError("invalid payload"))
		return
	}
	if rec.MovieTitle == "" {
		c.JSON(http.StatusBadRequest, envelopeError("movieTitle is required"))
		return
	}
	if rec.ClientSentAt == "" {
		rec.ClientSentAt = time.Now().Format(time.RFC3339)
	}

	if err := h.store.Append(rec); err != nil {
		h.logger.Error("log append failed: %v", err)
		c.JSON(http.StatusInternalServerError, envelopeError("store failure"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// List returns the most recent stored entries.
func (h *LogHandler) List(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := h.store.Tail(limit)
	if err != nil {
		h.logger.Error("log read failed: %v", err)
		c.JSON(http.StatusInternalServerError, envelopeError("store failure"))
		return
	}
	c.JSON(http.StatusOK, entries)
}
