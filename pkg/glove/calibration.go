package glove

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gwillem/handremap/pkg/handtrack"
)

// SensorCalibration holds calibration data for a single finger servo.
type SensorCalibration struct {
	ID        int `json:"id"`
	DriveMode int `json:"drive_mode"` // 1 when the servo reads high for an open finger
	RangeMin  int `json:"range_min"`
	RangeMax  int `json:"range_max"`
}

// Calibration holds calibration data for all fingers.
type Calibration map[handtrack.Finger]SensorCalibration

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal Calibration
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// Curl converts a raw servo position to a curl value in [0, 1].
func (c SensorCalibration) Curl(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	curl := float64(raw-c.RangeMin) / rangeSize
	if curl < 0 {
		curl = 0
	} else if curl > 1 {
		curl = 1
	}
	if c.DriveMode == 1 {
		curl = 1 - curl
	}
	return curl
}

// Raw converts a curl value in [0, 1] back to a raw servo position.
func (c SensorCalibration) Raw(curl float64) int {
	if c.DriveMode == 1 {
		curl = 1 - curl
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(curl*rangeSize+0.5) + c.RangeMin
}

// IDs returns the servo IDs for all calibrated fingers, thumb first.
func (c Calibration) IDs() []int {
	ids := make([]int, 0, len(c))
	for _, f := range handtrack.AllFingers() {
		if sc, ok := c[f]; ok {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

// ByID returns the finger and calibration for a given servo ID.
func (c Calibration) ByID(id int) (handtrack.Finger, SensorCalibration, bool) {
	for f, sc := range c {
		if sc.ID == id {
			return f, sc, true
		}
	}
	return 0, SensorCalibration{}, false
}

// Calibrate builds a calibration from observed servo extremes. open and
// closed hold the raw reading of each finger servo with the hand open and
// made into a fist.
func Calibrate(open, closed map[handtrack.Finger]int) Calibration {
	cal := make(Calibration, len(open))
	for f, o := range open {
		c, ok := closed[f]
		if !ok {
			continue
		}
		sc := SensorCalibration{ID: DefaultIDs[f], RangeMin: o, RangeMax: c}
		if c < o {
			sc = SensorCalibration{ID: DefaultIDs[f], DriveMode: 1, RangeMin: c, RangeMax: o}
		}
		cal[f] = sc
	}
	return cal
}
