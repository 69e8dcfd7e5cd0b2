package ipmi

import "fmt"

// EventType is the event/reading-type code an SEL event record or SDR
// sensor carries (Table 42-2): which family of offset meanings EventData1
// selects from (threshold, generic discrete, or sensor-specific).
type EventType uint8

func (e EventType) IsUnspecified() bool    { return e == 0x00 }
func (e EventType) IsThreshold() bool      { return e == 0x01 }
func (e EventType) IsGeneric() bool        { return e >= 0x02 && e <= 0x0c }
func (e EventType) IsSensorSpecific() bool { return e == 0x6f }
func (e EventType) IsOEM() bool            { return e >= 0x70 && e <= 0x7f }

func (e EventType) String() string {
	return fmt.Sprintf("0x%02x", uint8(e))
}
