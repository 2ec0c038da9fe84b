package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

// clientMessage covers every message kind a capture client sends over the
// signaling channel.
type clientMessage struct {
	Offer       *webrtc.SessionDescription `json:"offer"`
	ICE         *webrtc.ICECandidateInit   `json:"ice"`
	Action      string                     `json:"action"`
	Environment domain.EnvironmentSnapshot `json:"environment"`
}

// SignalingHandler answers WebRTC offers and serves inference results over
// the signaling websocket.
type SignalingHandler struct {
	logger    application.Logger
	inference *InferenceHandler
	upgrader  websocket.Upgrader
}

// NewSignalingHandler creates the handler.
func NewSignalingHandler(inference *InferenceHandler, logger application.Logger) *SignalingHandler {
	return &SignalingHandler{
		logger:    logger,
		inference: inference,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WS upgrades the connection and runs one signaling session: one peer
// connection per websocket, torn down together.
func (h *SignalingHandler) WS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("signaling upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		h.logger.Error("peer connection create failed: %v", err)
		return
	}
	defer pc.Close()

	var writeMu sync.Mutex
	write := func(v interface{}) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("signaling write: %v", err)
		}
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil {
			write(map[string]interface{}{"ice": cand.ToJSON()})
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		h.logger.Info("track received: kind=%s", track.Kind())
		// Drain incoming media; the stub has no real engine to feed.
		go func() {
			for {
				if _, _, err := track.ReadRTP(); err != nil {
					return
				}
			}
		}()
	})

	h.logger.Info("signaling client connected: %s", conn.RemoteAddr())
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.logger.Info("signaling client disconnected: %s", conn.RemoteAddr())
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			write(map[string]string{"error": "invalid json"})
			continue
		}

		switch {
		case msg.Offer != nil:
			if err := pc.SetRemoteDescription(*msg.Offer); err != nil {
				write(map[string]string{"error": "offer error: " + err.Error()})
				continue
			}
			answer, err := pc.CreateAnswer(nil)
			if err != nil {
				write(map[string]string{"error": "answer error: " + err.Error()})
				continue
			}
			if err := pc.SetLocalDescription(answer); err != nil {
				write(map[string]string{"error": "answer error: " + err.Error()})
				continue
			}
			write(map[string]interface{}{"answer": pc.LocalDescription()})

		case msg.ICE != nil:
			if err := pc.AddICECandidate(*msg.ICE); err != nil {
				h.logger.Debug("add remote ICE candidate: %v", err)
			}

		case msg.Action == "infer_once":
			h.logger.Info("infer_once from %s, city=%s", conn.RemoteAddr(), msg.Environment.City)
			write(map[string]interface{}{"inference_result": h.inference.pick()})

		default:
			write(map[string]string{"error": "unknown message"})
		}
	}
}
