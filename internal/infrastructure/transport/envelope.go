package transport

import (
	"encoding/json"
	"fmt"
)

// MFNP envelope constants.
const (
	ProtocolName    = "MFNP"
	ProtocolVersion = 1.0
	SenderClient    = "client"
	SenderServer    = "server"

	MessageTypeInference    = "inference"
	MessageTypeInferenceLog = "inference-log"
	MessageTypeError        = "error"
)

// Envelope is the optional MFNP wrapper around request and response
// payloads.
type Envelope struct {
	Protocol    string          `json:"protocol"`
	Version     float64         `json:"version"`
	Sender      string          `json:"sender"`
	MessageType string          `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
}

// errorPayload is the payload shape of enveloped error responses.
type errorPayload struct {
	Reason string `json:"reason"`
}

// WrapMessage encloses payload in an MFNP envelope of the given type.
func WrapMessage(messageType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{
		Protocol:    ProtocolName,
		Version:     ProtocolVersion,
		Sender:      SenderClient,
		MessageType: messageType,
		Payload:     raw,
	})
}

// unwrapResponse extracts the payload from a response body. Enveloped
// bodies yield their payload (and the envelope's message type); bare
// bodies pass through unchanged.
func unwrapResponse(body []byte) (payload json.RawMessage, messageType string, err error) {
	var env Envelope
	if jsonErr := json.Unmarshal(body, &env); jsonErr == nil && env.Protocol == ProtocolName {
		return env.Payload, env.MessageType, nil
	}
	if !json.Valid(body) {
		return nil, "", fmt.Errorf("response is not valid JSON")
	}
	return json.RawMessage(body), "", nil
}
