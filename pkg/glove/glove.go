package glove

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/xform"
)

// Glove is a servo data glove worn on one hand.
type Glove struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	hand        handtrack.Hand
	calibration Calibration

	mu    sync.RWMutex
	frame handtrack.Frame
	have  bool
}

// Open creates and initializes a glove connection.
func Open(port string, hand handtrack.Hand, cal Calibration) (*Glove, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, cal.IDs()...)

	return &Glove{
		bus:         bus,
		group:       group,
		hand:        hand,
		calibration: cal,
	}, nil
}

// Close closes the glove's bus connection.
func (g *Glove) Close() error {
	return g.bus.Close()
}

// Release disables torque on all servos so the fingers move freely.
func (g *Glove) Release(ctx context.Context) error {
	return g.group.DisableAll(ctx)
}

// ReadRaw reads the uncalibrated servo position of every finger.
func (g *Glove) ReadRaw(ctx context.Context) (map[handtrack.Finger]int, error) {
	raw, err := g.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	out := make(map[handtrack.Finger]int, len(raw))
	for id, pos := range raw {
		if finger, _, ok := g.calibration.ByID(id); ok {
			out[finger] = pos
		}
	}
	return out, nil
}

// ReadCurls reads the current curl of every calibrated finger.
func (g *Glove) ReadCurls(ctx context.Context) (map[handtrack.Finger]float64, error) {
	raw, err := g.ReadRaw(ctx)
	if err != nil {
		return nil, err
	}

	curls := make(map[handtrack.Finger]float64, len(raw))
	for finger, pos := range raw {
		curls[finger] = g.calibration[finger].Curl(pos)
	}
	return curls, nil
}

// Poll reads the glove and stores a synthesized frame for Frame to return.
// The wrist stays at the tracker origin; a glove has no position sensing.
func (g *Glove) Poll(ctx context.Context) error {
	curls, err := g.ReadCurls(ctx)
	if err != nil {
		return err
	}
	f := handtrack.FrameFromCurls(g.hand, xform.Identity(), curls)

	g.mu.Lock()
	g.frame = f
	g.have = true
	g.mu.Unlock()
	return nil
}

// Frame implements handtrack.Source.
func (g *Glove) Frame(hand handtrack.Hand) (handtrack.Frame, bool) {
	if hand != g.hand {
		return handtrack.Frame{}, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frame, g.have
}

// Run polls the glove at hz until ctx is cancelled. Read errors are passed
// to onErr and polling continues.
func (g *Glove) Run(ctx context.Context, hz int, onErr func(error)) error {
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.Poll(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
