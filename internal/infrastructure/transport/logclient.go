package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

// LogRecord is one inference outcome reported to the auxiliary log
// endpoint.
type LogRecord struct {
	ClientSentAt string                     `json:"clientSentAt"`
	Env          domain.EnvironmentSnapshot `json:"env"`
	MovieTitle   string                     `json:"movieTitle"`
	Mood         string                     `json:"mood"`
	Tone         string                     `json:"tone"`
}

// LogEntry is a stored record as returned by the log endpoint.
type LogEntry struct {
	ClientSentAt   string `json:"clientSentAt"`
	City           string `json:"city"`
	TodayStatus    string `json:"today_status"`
	TomorrowStatus string `json:"tomorrow_status"`
	Weekday        string `json:"weekday"`
	WeatherDesc    string `json:"weather_desc"`
	Temperature    string `json:"temperature"`
	Mood           string `json:"mood"`
	Tone           string `json:"tone"`
	MovieTitle     string `json:"movieTitle"`
}

// LogClient talks to the fire-and-forget inference log endpoint. Send
// failures are logged and otherwise ignored; this is the only component
// allowed to swallow errors.
type LogClient struct {
	url    string
	client *http.Client
	logger application.Logger
}

// NewLogClient creates a log client for the given endpoint URL.
func NewLogClient(url string, client *http.Client, logger application.Logger) *LogClient {
	if client == nil {
		client = &http.Client{}
	}
	return &LogClient{url: url, client: client, logger: logger}
}

// Send posts one record. The response is ignored; failures are logged only.
func (c *LogClient) Send(ctx context.Context, rec LogRecord) {
	body, err := WrapMessage(MessageTypeInferenceLog, rec)
	if err != nil {
		c.logger.Error("inference log marshal failed: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("inference log request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("inference log send failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("inference log server returned %d", resp.StatusCode)
	}
}

// Fetch returns the most recent stored log entries.
func (c *LogClient) Fetch(ctx context.Context, limit int) ([]LogEntry, error) {
	url := fmt.Sprintf("%s?limit=%d", c.url, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportNetworkUnreachable, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.TransportError{Kind: domain.TransportHTTPStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportNetworkUnreachable, Err: err}
	}
	payload, _, err := unwrapResponse(body)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportMalformedResponse, Err: err}
	}
	var entries []LogEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportMalformedResponse, Err: err}
	}
	return entries, nil
}
