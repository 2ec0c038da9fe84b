package main

import (
	"context"
	"os"
	"time"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/config"
	"moodflix-capture/internal/infrastructure/camera"
	"moodflix-capture/internal/infrastructure/environment"
	"moodflix-capture/internal/infrastructure/logger"
	"moodflix-capture/internal/infrastructure/recorder"
	"moodflix-capture/internal/infrastructure/sampler"
	"moodflix-capture/internal/infrastructure/transport"
	"moodflix-capture/internal/presentation/cli"
)

func main() {
	envCfg := config.Load()
	flags := cli.ParseFlags(envCfg)

	log := logger.New(flags.Debug, envCfg.LogFile)

	manager, err := camera.NewManager(log)
	if err != nil {
		log.Error("codec setup failed: %v", err)
		os.Exit(1)
	}

	var tr application.Transport
	live := flags.Transport == "webrtc"
	if live {
		dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		tr, err = transport.DialWebRTC(dialCtx, transport.WebRTCConfig{SignalingURL: flags.SignalingURL}, log)
		cancel()
		if err != nil {
			log.Error("signaling connection failed: %v", err)
			os.Exit(1)
		}
	} else {
		tr = transport.NewBufferedHTTP(transport.HTTPConfig{
			URL:      flags.InferenceURL,
			Envelope: flags.Envelope,
		}, log)
	}

	service := application.NewCaptureService(
		manager,
		sampler.NewSampler(log),
		recorder.NewRecorder(log),
		tr,
		environment.NewProvider(),
		log,
		application.SessionConfig{
			FrameCount:    flags.FrameCount,
			FrameInterval: time.Duration(flags.FrameIntervalMs) * time.Millisecond,
			ResultTimeout: time.Duration(flags.TimeoutSec) * time.Second,
			LiveStream:    live,
		},
	)

	logClient := transport.NewLogClient(flags.LogURL, nil, log)
	app := cli.NewCLI(service, logClient, log, flags)
	if err := app.Run(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
