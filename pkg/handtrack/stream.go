package handtrack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/gwillem/handremap/pkg/xform"
)

// WireJoint is a joint pose as sent over the stream.
type WireJoint struct {
	Position [3]float64 `json:"p"`
	Rotation [4]float64 `json:"q"` // x, y, z, w
}

// WireFrame is the JSON message carrying one tracked hand.
type WireFrame struct {
	Hand        string               `json:"hand"`
	TimestampMs int64                `json:"timestamp_ms,omitempty"`
	Joints      map[string]WireJoint `json:"joints"`
}

// ToFrame converts a wire message. Unknown joint names are ignored.
func (w WireFrame) ToFrame() (Frame, error) {
	hand, err := ParseHand(w.Hand)
	if err != nil {
		return Frame{}, err
	}
	f := Frame{Hand: hand, Timestamp: time.Now()}
	if w.TimestampMs > 0 {
		f.Timestamp = time.UnixMilli(w.TimestampMs)
	}
	for name, j := range w.Joints {
		k, err := ParseKeypoint(name)
		if err != nil {
			continue
		}
		q := mgl64.Quat{W: j.Rotation[3], V: mgl64.Vec3{j.Rotation[0], j.Rotation[1], j.Rotation[2]}}
		if q.Len() == 0 {
			q = mgl64.QuatIdent()
		}
		f.SetJoint(k, xform.New(mgl64.Vec3(j.Position), q.Normalize()))
	}
	return f, nil
}

// FromFrame converts a frame into its wire message.
func FromFrame(f Frame) WireFrame {
	w := WireFrame{
		Hand:        f.Hand.String(),
		TimestampMs: f.Timestamp.UnixMilli(),
		Joints:      make(map[string]WireJoint, KeypointCount),
	}
	for i := 0; i < KeypointCount; i++ {
		if !f.Tracked[i] {
			continue
		}
		t := f.Joints[i]
		w.Joints[Keypoint(i).String()] = WireJoint{
			Position: [3]float64(t.Translation),
			Rotation: [4]float64{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W},
		}
	}
	return w
}

// StreamSource receives frames from a websocket endpoint. The newest frame
// per hand wins; frames older than MaxAge are reported as missing.
type StreamSource struct {
	MaxAge time.Duration
	Logger *slog.Logger

	conn *websocket.Conn

	mu       sync.RWMutex
	frames   map[Hand]Frame
	received map[Hand]time.Time
	err      error
	done     chan struct{}
}

// DialStream connects to url and starts reading frames until ctx is
// cancelled or the connection drops.
func DialStream(ctx context.Context, url string) (*StreamSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial tracking stream: %w", err)
	}

	s := &StreamSource{
		MaxAge:   500 * time.Millisecond,
		Logger:   slog.Default(),
		conn:     conn,
		frames:   make(map[Hand]Frame, 2),
		received: make(map[Hand]time.Time, 2),
		done:     make(chan struct{}),
	}

	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-s.done:
		}
	}()
	go s.readLoop()

	return s, nil
}

func (s *StreamSource) readLoop() {
	defer close(s.done)
	for {
		var msg WireFrame
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
		f, err := msg.ToFrame()
		if err != nil {
			s.Logger.Debug("dropping tracking frame", "err", err)
			continue
		}
		s.mu.Lock()
		s.frames[f.Hand] = f
		s.received[f.Hand] = time.Now()
		s.mu.Unlock()
	}
}

// Frame implements Source.
func (s *StreamSource) Frame(hand Hand) (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[hand]
	if !ok {
		return Frame{}, false
	}
	if s.MaxAge > 0 && time.Since(s.received[hand]) > s.MaxAge {
		return Frame{}, false
	}
	return f, true
}

// Err returns the error that ended the read loop, if any.
func (s *StreamSource) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Done is closed when the read loop exits.
func (s *StreamSource) Done() <-chan struct{} {
	return s.done
}

// Close closes the connection and waits for the read loop to exit.
func (s *StreamSource) Close() error {
	err := s.conn.Close()
	<-s.done
	return err
}
