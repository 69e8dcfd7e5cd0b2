package ipmi

import (
	"time"
)

const (
	timestampUnspecified = 0xffffffff
	timestampPostInitMin = 0x00000000
	timestampPostInitMax = 0x20000000
)

// Timestamp is the 4-byte seconds-since-epoch format SEL records and most
// SDR timestamps carry (Section 37). Two parts of the range are reserved
// for special meanings rather than real dates: 0xffffffff (IsUnspecified)
// and the low range up to 0x20000000 (IsPostInit).
type Timestamp struct {
	Value uint32
}

// IsUnspecified reports whether no timestamp was ever recorded (the BMC
// clock was never set, or the field genuinely doesn't apply).
func (t *Timestamp) IsUnspecified() bool {
	return t.Value == timestampUnspecified
}

// IsPostInit reports whether Value falls in the reserved low range meaning
// "sometime since the last BMC reset, before the clock was set" rather than
// a real wall-clock second count.
func (t *Timestamp) IsPostInit() bool {
	return t.Value >= timestampPostInitMin && t.Value <= timestampPostInitMax
}

// Time converts Value to a wall-clock time.Time. The result is meaningless
// when IsUnspecified or IsPostInit is true; check those first.
func (t *Timestamp) Time() time.Time {
	return time.Unix(int64(t.Value), 0)
}

// Format renders the timestamp using format (see time.Format), falling
// back to a descriptive string for the two reserved non-date values.
func (t *Timestamp) Format(format string) string {
	switch {
	case t.IsUnspecified():
		return "Unspecified"
	case t.IsPostInit():
		return "Post-Init"
	default:
		return t.Time().Format(format)
	}
}

func (t *Timestamp) String() string {
	return t.Format(time.RFC3339)
}
