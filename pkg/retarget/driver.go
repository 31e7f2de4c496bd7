package retarget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/skeleton"
)

var (
	// ErrNoFrame is reported for ticks where the source had no frame with a
	// tracked wrist.
	ErrNoFrame = errors.New("no tracked frame")

	// ErrNotValid is reported when the mapping resolved nothing usable.
	ErrNotValid = errors.New("mapping has no resolved bones")
)

// State is the result of one driver tick.
type State struct {
	Bones     []BoneTransform
	Curls     map[handtrack.Finger]float64
	Timestamp time.Time
	Error     error
}

// DriverConfig holds what a Driver runs.
type DriverConfig struct {
	Node      *Node
	Container *skeleton.BoneContainer
	Source    handtrack.Source
	Hz        int
}

// Driver evaluates a Node against a source on a fixed tick.
type Driver struct {
	node      *Node
	container *skeleton.BoneContainer
	source    handtrack.Source
	hz        int

	mu      sync.RWMutex
	latest  State
	running bool
	stateCh chan State
	logCh   chan string
}

// NewDriver resolves the node's bones against the container and returns a
// driver ready to Start.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Node == nil {
		return nil, fmt.Errorf("driver needs a node")
	}
	if cfg.Container == nil {
		return nil, fmt.Errorf("driver needs a bone container")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}

	cfg.Node.InitializeBoneReferences(cfg.Container)
	if !cfg.Node.IsValidToEvaluate(cfg.Container) {
		return nil, fmt.Errorf("skeleton %s: %w", cfg.Container.Skeleton().Name, ErrNotValid)
	}

	return &Driver{
		node:      cfg.Node,
		container: cfg.Container,
		source:    cfg.Source,
		hz:        cfg.Hz,
		stateCh:   make(chan State, 1),
		logCh:     make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates. Only the newest
// state is kept when the reader falls behind.
func (d *Driver) States() <-chan State {
	return d.stateCh
}

// Logs returns a channel that receives log messages.
func (d *Driver) Logs() <-chan string {
	return d.logCh
}

// Hz returns the tick frequency.
func (d *Driver) Hz() int {
	return d.hz
}

// Container returns the bone container the node is resolved against.
func (d *Driver) Container() *skeleton.BoneContainer {
	return d.container
}

// Latest returns the most recent state.
func (d *Driver) Latest() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

func (d *Driver) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case d.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start runs the tick loop until ctx is done.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("already running")
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		d.log("Retargeting stopped")
	}()

	d.log("Retargeting %s (%d pairs resolved) at %d Hz",
		d.container.Skeleton().Name, d.node.Table.ResolvedCount(), d.hz)

	ticker := time.NewTicker(time.Second / time.Duration(d.hz))
	defer ticker.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s := d.Step()
			if s.Error != nil && !errors.Is(s.Error, lastErr) {
				d.log("Tick error: %v", s.Error)
			}
			lastErr = s.Error
		}
	}
}

// Step evaluates a single tick against the reference pose and publishes
// the result.
func (d *Driver) Step() State {
	s := State{Timestamp: time.Now()}

	frame, ok := d.node.frame(d.source, d.node.Table.Hand)
	if !ok {
		s.Error = ErrNoFrame
		d.publish(s)
		return s
	}
	s.Curls = make(map[handtrack.Finger]float64, len(handtrack.AllFingers()))
	for _, f := range handtrack.AllFingers() {
		s.Curls[f] = handtrack.FingerCurl(&frame, f)
	}

	// Curls and bones come from the same frame.
	pose := skeleton.NewRefPose(d.container)
	if d.node.IsValidToEvaluate(d.container) {
		s.Bones = d.node.evaluateFrame(pose, &frame)
	}
	if s.Bones == nil {
		s.Error = ErrNoFrame
	}
	d.publish(s)
	return s
}

func (d *Driver) publish(s State) {
	d.mu.Lock()
	d.latest = s
	d.mu.Unlock()

	select {
	case d.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-d.stateCh:
		default:
		}
		select {
		case d.stateCh <- s:
		default:
		}
	}
}
