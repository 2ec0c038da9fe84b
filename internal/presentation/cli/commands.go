// Package cli is the terminal front-end for the capture client.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/config"
	"moodflix-capture/internal/domain"
	"moodflix-capture/internal/infrastructure/transport"
)

// Config is the parsed command-line configuration.
type Config struct {
	InferenceURL    string
	SignalingURL    string
	LogURL          string
	Transport       string
	DeviceID        string
	FrameCount      int
	FrameIntervalMs int
	TimeoutSec      int
	Envelope        bool
	Debug           bool
	ListDevices     bool
	ShowLogs        int
}

// ParseFlags parses command-line arguments, with environment configuration
// as defaults.
func ParseFlags(defaults config.Config) *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.InferenceURL, "inference-url", defaults.InferenceURL, "buffered HTTP inference endpoint")
	flag.StringVar(&cfg.SignalingURL, "signaling-url", defaults.SignalingURL, "websocket signaling endpoint")
	flag.StringVar(&cfg.LogURL, "log-url", defaults.LogURL, "inference log endpoint")
	flag.StringVar(&cfg.Transport, "transport", defaults.Transport, "transport variant: http or webrtc")
	flag.StringVar(&cfg.DeviceID, "device", "", "camera device id (auto-selected when empty)")
	flag.IntVar(&cfg.FrameCount, "frames", defaults.FrameCount, "number of frames per capture")
	flag.IntVar(&cfg.FrameIntervalMs, "interval", defaults.FrameIntervalMs, "inter-frame interval in milliseconds")
	flag.IntVar(&cfg.TimeoutSec, "timeout", defaults.ResultTimeoutSec, "result wait timeout in seconds")
	flag.BoolVar(&cfg.Envelope, "envelope", defaults.Envelope, "wrap requests in the MFNP envelope")
	flag.BoolVar(&cfg.Debug, "debug", defaults.Debug, "enable debug logging")
	flag.BoolVar(&cfg.ListDevices, "list-devices", false, "list available capture devices and exit")
	flag.IntVar(&cfg.ShowLogs, "show-logs", 0, "fetch the N most recent inference logs and exit")

	flag.Parse()
	return cfg
}

// CLI drives one capture session from the terminal.
type CLI struct {
	service   *application.CaptureService
	logClient *transport.LogClient
	logger    application.Logger
	config    *Config
}

// NewCLI creates the CLI front-end.
func NewCLI(service *application.CaptureService, logClient *transport.LogClient, logger application.Logger, cfg *Config) *CLI {
	return &CLI{service: service, logClient: logClient, logger: logger, config: cfg}
}

// Run executes the selected command: device listing, log fetching, or one
// full capture session.
func (c *CLI) Run() error {
	if c.config.ListDevices {
		return c.listDevices()
	}
	if c.config.ShowLogs > 0 {
		return c.showLogs()
	}
	return c.captureOnce()
}

func (c *CLI) listDevices() error {
	devices, err := c.service.ListDevices()
	if err != nil {
		return err
	}
	fmt.Println("Available devices:")
	for i, d := range devices {
		fmt.Printf("[%d] %s (%s) id=%s\n", i, d.Label, d.Kind, d.ID)
	}
	return nil
}

func (c *CLI) showLogs() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	entries, err := c.logClient.Fetch(ctx, c.config.ShowLogs)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-12s mood=%s tone=%s  %s\n", e.ClientSentAt, e.City, e.Mood, e.Tone, e.MovieTitle)
	}
	return nil
}

func (c *CLI) captureOnce() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer c.service.End()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		c.logger.Info("interrupt received, shutting down")
		cancel()
		c.service.End()
	}()

	if err := c.service.Begin(ctx, c.config.DeviceID); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	fmt.Println("Camera is live. Press Enter to capture your mood (Ctrl-C to quit).")
	if !waitForEnter(ctx) {
		return nil
	}

	fmt.Println("Capturing... this may take up to 30 seconds.")
	result, err := c.service.Capture(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return describeFailure(err)
	}

	fmt.Println("Recommendations:")
	for i, title := range result.Recommendations {
		fmt.Printf("%d. %s\n", i+1, title)
	}

	if sess := c.service.Session(); sess != nil && len(result.Recommendations) > 0 {
		logCtx, logCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer logCancel()
		c.logClient.Send(logCtx, transport.LogRecord{
			ClientSentAt: time.Now().Format(time.RFC3339),
			Env:          sess.Environment,
			MovieTitle:   result.Recommendations[0],
		})
	}
	return nil
}

// waitForEnter blocks on stdin; false means the context ended first.
func waitForEnter(ctx context.Context) bool {
	lines := make(chan struct{}, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Scan()
		lines <- struct{}{}
	}()
	select {
	case <-lines:
		return true
	case <-ctx.Done():
		return false
	}
}

// describeFailure maps the error taxonomy to a human-readable message
// while keeping the structured error wrapped.
func describeFailure(err error) error {
	var devErr *domain.DeviceError
	var trErr *domain.TransportError
	var srvErr *domain.ServerError
	switch {
	case errors.As(err, &devErr):
		return fmt.Errorf("camera/microphone problem (%s): %w", devErr.Kind, err)
	case errors.As(err, &trErr):
		return fmt.Errorf("could not reach the inference server (%s): %w", trErr.Kind, err)
	case errors.As(err, &srvErr):
		return fmt.Errorf("the inference server rejected the request: %w", err)
	case errors.Is(err, domain.ErrEmptyResult):
		return fmt.Errorf("the server returned no recommendations: %w", err)
	default:
		return err
	}
}
