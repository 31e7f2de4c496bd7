// Package glove reads finger curl from a servo-encoder data glove: one
// Feetech servo per finger, backdriven by the wearer, used purely as an
// angle sensor.
package glove

import "github.com/gwillem/handremap/pkg/handtrack"

// DefaultIDs are the servo IDs of a five-finger glove, thumb to little.
var DefaultIDs = map[handtrack.Finger]int{
	handtrack.Thumb:  1,
	handtrack.Index:  2,
	handtrack.Middle: 3,
	handtrack.Ring:   4,
	handtrack.Little: 5,
}

// FingerCount is the number of servos on a full glove.
const FingerCount = 5
