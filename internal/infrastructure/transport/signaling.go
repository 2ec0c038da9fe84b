package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"moodflix-capture/internal/application"
	"moodflix-capture/internal/domain"
)

const remoteCandidateBuffer = 16

// signalOutcome is a terminal message from the signaling channel.
type signalOutcome struct {
	titles []string
	err    error
}

// inboundMessage covers every message kind the signaling server sends.
type inboundMessage struct {
	Answer          *webrtc.SessionDescription `json:"answer"`
	ICE             *webrtc.ICECandidateInit   `json:"ice"`
	InferenceResult []string                   `json:"inference_result"`
	Error           string                     `json:"error"`
}

// Outbound message shapes.
type offerMessage struct {
	Offer webrtc.SessionDescription `json:"offer"`
}

type iceMessage struct {
	ICE webrtc.ICECandidateInit `json:"ice"`
}

type inferOnceMessage struct {
	Action      string                     `json:"action"`
	Environment domain.EnvironmentSnapshot `json:"environment"`
}

// SignalingClient is the persistent duplex message channel used to
// negotiate the peer connection and receive the asynchronous inference
// result. Inbound messages are dispatched by kind from a single read pump.
type SignalingClient struct {
	conn   *websocket.Conn
	logger application.Logger

	writeMu sync.Mutex

	answerCh  chan webrtc.SessionDescription
	remoteICE chan webrtc.ICECandidateInit
	resultCh  chan signalOutcome

	closeOnce sync.Once
	closed    chan struct{}
}

// DialSignaling opens the signaling connection. Fails with
// SignalingUnavailable when the endpoint cannot be reached.
func DialSignaling(ctx context.Context, url string, logger application.Logger) (*SignalingClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.TransportSignalingUnavailable, Err: err}
	}
	c := &SignalingClient{
		conn:      conn,
		logger:    logger,
		answerCh:  make(chan webrtc.SessionDescription, 1),
		remoteICE: make(chan webrtc.ICECandidateInit, remoteCandidateBuffer),
		resultCh:  make(chan signalOutcome, 1),
		closed:    make(chan struct{}),
	}
	go c.readPump()
	logger.Info("signaling connected: %s", url)
	return c, nil
}

func (c *SignalingClient) readPump() {
	defer c.markClosed()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("signaling read ended: %v", err)
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Error("signaling message parse failed: %v", err)
			continue
		}
		switch {
		case msg.Answer != nil:
			select {
			case c.answerCh <- *msg.Answer:
			default:
				c.logger.Debug("dropping duplicate answer")
			}
		case msg.ICE != nil:
			select {
			case c.remoteICE <- *msg.ICE:
			default:
				c.logger.Debug("dropping remote ICE candidate, buffer full")
			}
		case msg.InferenceResult != nil:
			select {
			case c.resultCh <- signalOutcome{titles: msg.InferenceResult}:
			default:
			}
		case msg.Error != "":
			select {
			case c.resultCh <- signalOutcome{err: &domain.ServerError{Message: msg.Error}}:
			default:
			}
		default:
			c.logger.Debug("ignoring unknown signaling message")
		}
	}
}

// drainPending discards messages buffered by an abandoned exchange, such as
// a result that arrived after its capture timed out. Called before a new
// exchange so stale messages cannot be attributed to it.
func (c *SignalingClient) drainPending() {
	for {
		select {
		case <-c.answerCh:
		case <-c.remoteICE:
		case <-c.resultCh:
		default:
			return
		}
	}
}

// SendOffer relays the local session description.
func (c *SignalingClient) SendOffer(sd webrtc.SessionDescription) error {
	return c.writeJSON(offerMessage{Offer: sd})
}

// SendCandidate relays a locally generated ICE candidate.
func (c *SignalingClient) SendCandidate(init webrtc.ICECandidateInit) error {
	return c.writeJSON(iceMessage{ICE: init})
}

// SendInferOnce asks the server to run inference on the live stream using
// the given environment context.
func (c *SignalingClient) SendInferOnce(env domain.EnvironmentSnapshot) error {
	return c.writeJSON(inferOnceMessage{Action: "infer_once", Environment: env})
}

// AwaitAnswer blocks until the remote session description arrives.
func (c *SignalingClient) AwaitAnswer(ctx context.Context) (webrtc.SessionDescription, error) {
	select {
	case sd := <-c.answerCh:
		return sd, nil
	case <-c.closed:
		return webrtc.SessionDescription{}, &domain.TransportError{Kind: domain.TransportSignalingUnavailable, Message: "signaling closed before answer"}
	case <-ctx.Done():
		return webrtc.SessionDescription{}, timeoutOr(ctx, "no answer from signaling server")
	}
}

// RemoteCandidates returns the stream of remote ICE candidates.
func (c *SignalingClient) RemoteCandidates() <-chan webrtc.ICECandidateInit {
	return c.remoteICE
}

// AwaitResult blocks until a terminal inference message arrives.
func (c *SignalingClient) AwaitResult(ctx context.Context) (*domain.InferenceResult, error) {
	select {
	case out := <-c.resultCh:
		if out.err != nil {
			return nil, out.err
		}
		return &domain.InferenceResult{Recommendations: out.titles}, nil
	case <-c.closed:
		return nil, &domain.TransportError{Kind: domain.TransportSignalingUnavailable, Message: "signaling closed before result"}
	case <-ctx.Done():
		return nil, timeoutOr(ctx, "no result from inference server")
	}
}

// Close shuts the channel down. Safe to call multiple times.
func (c *SignalingClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *SignalingClient) markClosed() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

func (c *SignalingClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		return &domain.TransportError{Kind: domain.TransportSignalingUnavailable, Err: err}
	}
	return nil
}

func timeoutOr(ctx context.Context, msg string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &domain.TransportError{Kind: domain.TransportTimeout, Message: msg, Err: ctx.Err()}
	}
	return &domain.TransportError{Kind: domain.TransportSignalingUnavailable, Message: msg, Err: ctx.Err()}
}
