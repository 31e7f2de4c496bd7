package handtrack

import (
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gwillem/handremap/pkg/xform"
)

// Frame is one sample of a tracked hand.
type Frame struct {
	Hand      Hand
	Joints    [KeypointCount]xform.Transform
	Tracked   [KeypointCount]bool
	Timestamp time.Time
}

// Joint returns a keypoint's transform and whether it was tracked.
func (f *Frame) Joint(k Keypoint) (xform.Transform, bool) {
	if !k.Valid() || !f.Tracked[k] {
		return xform.Identity(), false
	}
	return f.Joints[k], true
}

// SetJoint stores a keypoint transform and marks it tracked.
func (f *Frame) SetJoint(k Keypoint, t xform.Transform) {
	f.Joints[k] = t
	f.Tracked[k] = true
}

// Source supplies the most recent frame for a hand. Implementations must be
// safe for concurrent use.
type Source interface {
	Frame(hand Hand) (Frame, bool)
}

// StaticSource holds frames set by the caller.
type StaticSource struct {
	mu     sync.RWMutex
	frames map[Hand]Frame
}

// NewStaticSource returns a source holding the given frames.
func NewStaticSource(frames ...Frame) *StaticSource {
	s := &StaticSource{frames: make(map[Hand]Frame, 2)}
	for _, f := range frames {
		s.frames[f.Hand] = f
	}
	return s
}

// Set replaces the frame for f.Hand.
func (s *StaticSource) Set(f Frame) {
	s.mu.Lock()
	s.frames[f.Hand] = f
	s.mu.Unlock()
}

// Frame implements Source.
func (s *StaticSource) Frame(hand Hand) (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[hand]
	return f, ok
}

// FingerCurl returns how far a finger is bent, from 0 (straight) to 1
// (fully curled), measured as the angle between the finger's base and its
// distal joint.
func FingerCurl(f *Frame, finger Finger) float64 {
	kps := finger.Keypoints()
	base, ok := f.Joint(kps[0])
	if !ok {
		return 0
	}
	distal, ok := f.Joint(kps[len(kps)-2])
	if !ok {
		return 0
	}
	rel := base.Rotation.Inverse().Mul(distal.Rotation)
	angle := 2 * math.Acos(math.Min(1, math.Abs(rel.W)))
	return math.Min(1, angle/maxCurlAngle(finger))
}

// Segment lengths in meters from each keypoint to the next along a finger.
var segmentLengths = map[Finger][]float64{
	Thumb:  {0.035, 0.032, 0.025},
	Index:  {0.065, 0.040, 0.025, 0.020},
	Middle: {0.063, 0.045, 0.028, 0.021},
	Ring:   {0.058, 0.042, 0.026, 0.020},
	Little: {0.054, 0.032, 0.018, 0.018},
}

// Metacarpal base offsets from the wrist, in the wrist frame of a right hand.
var metacarpalBase = map[Finger]mgl64.Vec3{
	Thumb:  {0.020, 0.025, -0.010},
	Index:  {0.010, 0.020, 0},
	Middle: {0.010, 0.002, 0},
	Ring:   {0.010, -0.015, 0},
	Little: {0.008, -0.030, 0},
}

func maxCurlAngle(f Finger) float64 {
	if f == Thumb {
		return math.Pi / 2
	}
	return 3 * math.Pi / 4
}

// FrameFromCurls synthesizes a frame for a hand posed by per-finger curl
// values in [0, 1], with the wrist placed at wrist. Missing fingers are
// straight. The bend is spread evenly over the joints after the metacarpal.
func FrameFromCurls(hand Hand, wrist xform.Transform, curls map[Finger]float64) Frame {
	f := Frame{Hand: hand, Timestamp: time.Now()}
	f.SetJoint(Wrist, wrist)

	palm := xform.New(mgl64.Vec3{0.045, 0, 0}, mgl64.QuatIdent())
	f.SetJoint(Palm, palm.Mul(wrist))

	// Fingers close toward the palm: -Z on a right hand, +Z on a left one.
	bendAxis := mgl64.Vec3{0, 1, 0}
	if hand == Left {
		bendAxis = mgl64.Vec3{0, -1, 0}
	}

	for _, finger := range AllFingers() {
		curl := math.Max(0, math.Min(1, curls[finger]))
		kps := finger.Keypoints()
		lengths := segmentLengths[finger]
		bendJoints := len(kps) - 2 // joints that bend: all but metacarpal and tip
		step := mgl64.QuatRotate(curl*maxCurlAngle(finger)/float64(bendJoints), bendAxis)

		// Chain in the wrist frame, then lift into tracker space.
		base := metacarpalBase[finger]
		if hand == Left {
			base[2] = -base[2]
		}
		local := xform.New(base, mgl64.QuatIdent())
		f.SetJoint(kps[0], local.Mul(wrist))
		for i := 1; i < len(kps); i++ {
			rot := mgl64.QuatIdent()
			if i < len(kps)-1 {
				rot = step
			}
			seg := xform.New(mgl64.Vec3{lengths[i-1], 0, 0}, rot)
			local = seg.Mul(local)
			f.SetJoint(kps[i], local.Mul(wrist))
		}
	}
	return f
}
