package ipmi

import (
	"fmt"
)

type ThresholdStatus string

const (
	// Normal operating ranges
	ThresholdStatusOK ThresholdStatus = "ok"
	// Lower Non-Recoverable
	ThresholdStatusLNR ThresholdStatus = "lnr"
	// Lower Critical
	ThresholdStatusLCR ThresholdStatus = "lcr"
	// Lower Non-Critical
	ThresholdStatusLNC ThresholdStatus = "lnc"
	// Upper Non-Recoverable
	ThresholdStatusUNR ThresholdStatus = "unr"
	// Upper Critical
	ThresholdStatusUCR ThresholdStatus = "ucr"
	// Upper Non-Critical
	ThresholdStatusUNC ThresholdStatus = "unc"
)

// NewThresholdStatus decodes the threshold comparison bits a Get Sensor
// Reading response carries (Section 43.1), picking the most severe
// threshold currently crossed.
func NewThresholdStatus(status uint8) ThresholdStatus {
	switch {
	case status&0x04 != 0:
		return ThresholdStatusLNR
	case status&0x20 != 0:
		return ThresholdStatusUNR
	case status&0x02 != 0:
		return ThresholdStatusLCR
	case status&0x10 != 0:
		return ThresholdStatusUCR
	case status&0x01 != 0:
		return ThresholdStatusLNC
	case status&0x08 != 0:
		return ThresholdStatusUNC
	default:
		return ThresholdStatusOK
	}
}

// SensorType is the sensor type code carried in an SDR record or a Get
// Sensor Reading response (Table 42-3). This repo does not carry the full
// human-readable sensor-type name table (a large static lookup table, out
// of scope per the Non-goals); callers that need a name for display look
// up the numeric code themselves.
type SensorType uint8

func (t SensorType) String() string {
	return fmt.Sprintf("type(0x%02x)", uint8(t))
}

// UnitType is a sensor base or modifier unit code (Section 43.17). As with
// SensorType, no static unit-name table is carried — only the numeric code.
type UnitType uint8

func (u UnitType) String() string {
	return fmt.Sprintf("unit(0x%02x)", uint8(u))
}
