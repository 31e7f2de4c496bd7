// Package handtrack models hand-tracking data: the hand joint keypoints a
// tracker reports, per-hand frames of joint transforms, and the sources that
// produce them.
//
// Joint frames follow one convention regardless of source: +X points toward
// the fingertips, +Y toward the thumb side and +Z is X cross Y, which is the
// back of a right hand and the palm of a left hand. Positions are in meters
// in the tracker's reference space.
package handtrack

import (
	"fmt"
	"strings"
)

// Hand selects the left or right hand.
type Hand uint8

const (
	Left Hand = iota
	Right
)

func (h Hand) String() string {
	if h == Left {
		return "left"
	}
	return "right"
}

// Suffix returns the single-letter side suffix used in bone names.
func (h Hand) Suffix() string {
	if h == Left {
		return "l"
	}
	return "r"
}

// ParseHand parses "left"/"l" or "right"/"r".
func ParseHand(s string) (Hand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Left, fmt.Errorf("unknown hand %q", s)
}

// Keypoint identifies a hand joint reported by a tracker.
type Keypoint uint8

const (
	Palm Keypoint = iota
	Wrist
	ThumbMetacarpal
	ThumbProximal
	ThumbDistal
	ThumbTip
	IndexMetacarpal
	IndexProximal
	IndexIntermediate
	IndexDistal
	IndexTip
	MiddleMetacarpal
	MiddleProximal
	MiddleIntermediate
	MiddleDistal
	MiddleTip
	RingMetacarpal
	RingProximal
	RingIntermediate
	RingDistal
	RingTip
	LittleMetacarpal
	LittleProximal
	LittleIntermediate
	LittleDistal
	LittleTip

	KeypointCount int = iota
)

var keypointNames = [KeypointCount]string{
	"palm", "wrist",
	"thumb_metacarpal", "thumb_proximal", "thumb_distal", "thumb_tip",
	"index_metacarpal", "index_proximal", "index_intermediate", "index_distal", "index_tip",
	"middle_metacarpal", "middle_proximal", "middle_intermediate", "middle_distal", "middle_tip",
	"ring_metacarpal", "ring_proximal", "ring_intermediate", "ring_distal", "ring_tip",
	"little_metacarpal", "little_proximal", "little_intermediate", "little_distal", "little_tip",
}

func (k Keypoint) String() string {
	if int(k) < KeypointCount {
		return keypointNames[k]
	}
	return fmt.Sprintf("keypoint(%d)", k)
}

// Valid reports whether k is a known keypoint.
func (k Keypoint) Valid() bool {
	return int(k) < KeypointCount
}

// ParseKeypoint accepts snake_case names as returned by String, ignoring
// case and treating "-" or " " like "_". "pinky" is accepted for "little".
func ParseKeypoint(s string) (Keypoint, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	norm = strings.Replace(norm, "pinky", "little", 1)
	for i, name := range keypointNames {
		if name == norm {
			return Keypoint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown keypoint %q", s)
}

// Finger groups keypoints by digit.
type Finger uint8

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Little
)

// AllFingers returns the fingers from thumb to little.
func AllFingers() []Finger {
	return []Finger{Thumb, Index, Middle, Ring, Little}
}

var fingerNames = [...]string{"thumb", "index", "middle", "ring", "little"}

func (f Finger) String() string {
	if int(f) < len(fingerNames) {
		return fingerNames[f]
	}
	return fmt.Sprintf("finger(%d)", f)
}

// Keypoints returns the keypoints of a finger from base to tip. The thumb
// has no intermediate joint.
func (f Finger) Keypoints() []Keypoint {
	switch f {
	case Thumb:
		return []Keypoint{ThumbMetacarpal, ThumbProximal, ThumbDistal, ThumbTip}
	case Index:
		return []Keypoint{IndexMetacarpal, IndexProximal, IndexIntermediate, IndexDistal, IndexTip}
	case Middle:
		return []Keypoint{MiddleMetacarpal, MiddleProximal, MiddleIntermediate, MiddleDistal, MiddleTip}
	case Ring:
		return []Keypoint{RingMetacarpal, RingProximal, RingIntermediate, RingDistal, RingTip}
	default:
		return []Keypoint{LittleMetacarpal, LittleProximal, LittleIntermediate, LittleDistal, LittleTip}
	}
}

// ParseFinger parses a finger name. "pinky" is accepted for "little".
func ParseFinger(s string) (Finger, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "pinky" {
		norm = "little"
	}
	for _, f := range AllFingers() {
		if f.String() == norm {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown finger %q", s)
}

// MarshalText lets fingers key JSON objects by name.
func (f Finger) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Finger) UnmarshalText(b []byte) error {
	parsed, err := ParseFinger(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
