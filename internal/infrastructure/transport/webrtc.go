package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

const defaultSTUNServer = "stun:stun.l.google.com:19302"

// WebRTCConfig configures the live streaming transport.
type WebRTCConfig struct {
	SignalingURL string
	ICEServers   []string
}

// localTrackProvider is satisfied by track handles that can be attached to
// a peer connection.
type localTrackProvider interface {
	WebRTCTrack() webrtc.TrackLocal
}

// mediaEnginePopulator is satisfied by track handles that must register
// their codecs before negotiation.
type mediaEnginePopulator interface {
	PopulateMediaEngine(me *webrtc.MediaEngine)
}

// WebRTCTransport implements application.Transport by streaming the live
// media tracks to the inference server over a peer connection and awaiting
// an asynchronous result on the signaling channel. It owns the peer
// connection and signaling channel lifetimes.
type WebRTCTransport struct {
	cfg    WebRTCConfig
	logger application.Logger
	sig    *SignalingClient

	mu sync.Mutex
	pc *webrtc.PeerConnection
}

// DialWebRTC opens the signaling channel up front, before media
// acquisition completes. The peer connection itself is created per send.
func DialWebRTC(ctx context.Context, cfg WebRTCConfig, logger application.Logger) (*WebRTCTransport, error) {
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = []string{defaultSTUNServer}
	}
	sig, err := DialSignaling(ctx, cfg.SignalingURL, logger)
	if err != nil {
		return nil, err
	}
	return &WebRTCTransport{cfg: cfg, logger: logger, sig: sig}, nil
}

// Send attaches the payload's live tracks to a new peer connection, runs
// the offer/answer/ICE exchange over the signaling channel, requests
// inference and awaits the terminal message.
func (t *WebRTCTransport) Send(ctx context.Context, payload *domain.CapturePayload) (*domain.InferenceResult, error) {
	t.sig.drainPending()

	pc, err := t.newPeerConnection(payload.Tracks)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	t.mu.Lock()
	t.pc = pc
	t.mu.Unlock()
	defer t.closePeer()

	attached := 0
	for _, track := range payload.Tracks {
		provider, ok := track.(localTrackProvider)
		if !ok {
			continue
		}
		_, err := pc.AddTransceiverFromTrack(provider.WebRTCTrack(), webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendonly,
		})
		if err != nil {
			return nil, fmt.Errorf("attach %s track: %w", track.Kind(), err)
		}
		attached++
	}
	if attached == 0 {
		return nil, &domain.DeviceError{Kind: domain.DeviceUnavailable, Reason: "no attachable media tracks"}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		if err := t.sig.SendCandidate(c.ToJSON()); err != nil {
			t.logger.Debug("relay local ICE candidate: %v", err)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	if err := t.sig.SendOffer(offer); err != nil {
		return nil, err
	}

	answer, err := t.sig.AwaitAnswer(ctx)
	if err != nil {
		return nil, err
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	t.logger.Info("answer applied, media streaming to inference server")

	// Relay remote candidates for as long as the request is pending.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case init := <-t.sig.RemoteCandidates():
				if err := pc.AddICECandidate(init); err != nil {
					t.logger.Debug("add remote ICE candidate: %v", err)
				}
			}
		}
	}()

	if err := t.sig.SendInferOnce(payload.Environment); err != nil {
		return nil, err
	}
	return t.sig.AwaitResult(ctx)
}

// newPeerConnection builds the peer connection from a media engine carrying
// the tracks' codecs; binding a track to a connection whose engine does not
// know its codec fails during negotiation.
func (t *WebRTCTransport) newPeerConnection(tracks []domain.MediaTrack) (*webrtc.PeerConnection, error) {
	cfg := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: t.cfg.ICEServers}},
	}
	for _, track := range tracks {
		if populator, ok := track.(mediaEnginePopulator); ok {
			me := &webrtc.MediaEngine{}
			populator.PopulateMediaEngine(me)
			return webrtc.NewAPI(webrtc.WithMediaEngine(me)).NewPeerConnection(cfg)
		}
	}
	return webrtc.NewPeerConnection(cfg)
}

// Close shuts down the peer connection and the signaling channel.
func (t *WebRTCTransport) Close() error {
	t.closePeer()
	return t.sig.Close()
}

func (t *WebRTCTransport) closePeer() {
	t.mu.Lock()
	pc := t.pc
	t.pc = nil
	t.mu.Unlock()
	if pc != nil {
		if err := pc.Close(); err != nil {
			t.logger.Debug("peer connection close: %v", err)
		}
	}
}
