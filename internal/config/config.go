// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds settings shared by the client and the dev server.
type Config struct {
	// Client side.
	InferenceURL     string // buffered HTTP inference endpoint
	SignalingURL     string // websocket signaling endpoint
	LogURL           string // inference log endpoint
	Transport        string // "http" or "webrtc"
	FrameCount       int
	FrameIntervalMs  int
	ResultTimeoutSec int
	Envelope         bool // wrap buffered requests in the MFNP envelope
	Debug            bool
	LogFile          string

	// Dev server side.
	Port         string
	LogStorePath string
}

// Load reads configuration, consulting a .env file when present.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		InferenceURL:     getenv("INFERENCE_URL", "http://localhost:8000/inference"),
		SignalingURL:     getenv("SIGNALING_URL", "ws://localhost:8000/signaling"),
		LogURL:           getenv("INFERENCE_LOG_URL", "http://localhost:8000/inference/log"),
		Transport:        getenv("TRANSPORT", "http"),
		FrameCount:       getenvInt("FRAME_COUNT", 20),
		FrameIntervalMs:  getenvInt("FRAME_INTERVAL_MS", 250),
		ResultTimeoutSec: getenvInt("RESULT_TIMEOUT_SEC", 30),
		Envelope:         getenvBool("MFNP_ENVELOPE", false),
		Debug:            getenvBool("DEBUG", false),
		LogFile:          getenv("LOG_FILE", ""),
		Port:             getenv("PORT", "8000"),
		LogStorePath:     getenv("LOG_STORE_PATH", "tmp/user_logs.csv"),
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}
