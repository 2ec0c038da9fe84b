package transport

import (
	"encoding/json"
	"testing"
)

func TestWrapMessage(t *testing.T) {
	body, err := WrapMessage(MessageTypeInference, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("WrapMessage: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Protocol != ProtocolName {
		t.Errorf("protocol = %q, want %q", env.Protocol, ProtocolName)
	}
	if env.Version != ProtocolVersion {
		t.Errorf("version = %v, want %v", env.Version, ProtocolVersion)
	}
	if env.Sender != SenderClient {
		t.Errorf("sender = %q, want %q", env.Sender, SenderClient)
	}
	if env.MessageType != MessageTypeInference {
		t.Errorf("message_type = %q, want %q", env.MessageType, MessageTypeInference)
	}

	var payload map[string]string
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["k"] != "v" {
		t.Errorf("payload = %v", payload)
	}
}

func TestUnwrapResponse(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantPayload string
		wantType    string
		wantErr     bool
	}{
		{
			name:        "enveloped",
			body:        `{"protocol":"MFNP","version":1.0,"sender":"server","message_type":"inference","payload":{"recommendations":["Joker"]}}`,
			wantPayload: `{"recommendations":["Joker"]}`,
			wantType:    MessageTypeInference,
		},
		{
			name:        "bare passes through",
			body:        `{"recommendations":["Joker"]}`,
			wantPayload: `{"recommendations":["Joker"]}`,
		},
		{
			name:    "invalid json",
			body:    `not json`,
			wantErr: true,
		},
		{
			name:        "foreign protocol treated as bare",
			body:        `{"protocol":"XYZ","payload":{}}`,
			wantPayload: `{"protocol":"XYZ","payload":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, messageType, err := unwrapResponse([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unwrapResponse: %v", err)
			}
			if string(payload) != tt.wantPayload {
				t.Errorf("payload = %s, want %s", payload, tt.wantPayload)
			}
			if messageType != tt.wantType {
				t.Errorf("messageType = %q, want %q", messageType, tt.wantType)
			}
		})
	}
}
