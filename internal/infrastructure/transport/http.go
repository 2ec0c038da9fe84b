// Package transport delivers capture payloads to the inference service.
// Two adapters share one contract: a buffered HTTP POST carrying base64
// media, and a WebRTC peer connection negotiated over a websocket
// signaling channel.
package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

// HTTPConfig configures the buffered HTTP transport.
type HTTPConfig struct {
	URL      string
	Envelope bool // wrap requests in the MFNP envelope
	Client   *http.Client
}

// BufferedHTTP implements application.Transport with a single JSON POST
// carrying the whole capture payload, awaited synchronously.
type BufferedHTTP struct {
	cfg    HTTPConfig
	logger application.Logger
}

// inferenceRequest is the buffered-variant request body.
type inferenceRequest struct {
	Environment domain.EnvironmentSnapshot `json:"environment"`
	Images      []string                   `json:"images"`
	Audio       string                     `json:"audio"`
}

// inferenceResponse covers both known response payload shapes; some
// server builds answer with "movies" instead of "recommendations".
type inferenceResponse struct {
	Recommendations []string `json:"recommendations"`
	Movies          []string `json:"movies"`
	Error           string   `json:"error"`
	Reason          string   `json:"reason"`
}

// NewBufferedHTTP creates the buffered HTTP transport.
func NewBufferedHTTP(cfg HTTPConfig, logger application.Logger) *BufferedHTTP {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &BufferedHTTP{cfg: cfg, logger: logger}
}

// Send serializes the payload, issues one POST and parses the response
// into an InferenceResult.
func (t *BufferedHTTP) Send(ctx context.Context, payload *domain.CapturePayload) (*domain.InferenceResult, error) {
	req := inferenceRequest{Environment: payload.Environment}
	req.Images = make([]string, 0, len(payload.Frames))
	for _, frame := range payload.Frames {
		req.Images = append(req.Images, base64.StdEncoding.EncodeToString(frame.Data))
	}
	if payload.Audio != nil {
		req.Audio = base64.StdEncoding.EncodeToString(payload.Audio.Data)
	}

	var body []byte
	var err error
	if t.cfg.Envelope {
		body, err = WrapMessage(MessageTypeInference, req)
	} else {
		body, err = json.Marshal(req)
	}
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.cfg.Client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &domain.TransportError{Kind: domain.TransportTimeout, Message: "inference request timed out", Err: err}
		}
		return nil, &domain.TransportError{Kind: domain.TransportNetworkUnreachable, Err: err}
	}
	defer resp.Body.Close()
	t.logger.Debug("inference server responded in %s", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{Kind: domain.TransportHTTPStatus, StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportNetworkUnreachable, Err: err}
	}
	return parseInferenceResponse(respBody)
}

// Close implements application.Transport; the HTTP variant holds no
// persistent connection.
func (t *BufferedHTTP) Close() error { return nil }

// parseInferenceResponse turns a response body (bare or enveloped) into a
// result or a typed failure.
func parseInferenceResponse(body []byte) (*domain.InferenceResult, error) {
	payload, messageType, err := unwrapResponse(body)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportMalformedResponse, Err: err}
	}

	var resp inferenceResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportMalformedResponse, Err: err}
	}

	if resp.Error != "" {
		return nil, &domain.ServerError{Message: resp.Error}
	}
	if messageType == MessageTypeError {
		if resp.Reason != "" {
			return nil, &domain.ServerError{Message: resp.Reason}
		}
		return nil, &domain.ServerError{Message: "unspecified server error"}
	}

	titles := resp.Recommendations
	if titles == nil {
		titles = resp.Movies
	}
	if titles == nil {
		return nil, &domain.TransportError{
			Kind:    domain.TransportMalformedResponse,
			Message: "response carries neither recommendations nor error",
		}
	}
	return &domain.InferenceResult{Recommendations: titles}, nil
}
