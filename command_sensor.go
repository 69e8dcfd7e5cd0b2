package ipmi

// sensorReadingStatusMinLen is the shortest response Get Sensor Reading
// can return: the reading byte plus the one status byte every sensor
// carries, before any event-data bytes (Section 35.14).
const sensorReadingStatusMinLen = 2

// GetSensorReadingCommand reads the current value and status bits of one
// sensor by number (Section 35.14). SensorData2/SensorData3 are only
// populated for threshold-based sensors reporting assertion state; a
// discrete sensor's response may carry neither.
type GetSensorReadingCommand struct {
	RsLUN        uint8
	SensorNumber uint8

	SensorReading      uint8
	ReadingUnavailable bool
	ScanningDisabled   bool
	EventDisabled      bool
	SensorData2        uint8
	SensorData3        uint8
}

func (c *GetSensorReadingCommand) Name() string { return "Get Sensor Reading" }
func (c *GetSensorReadingCommand) Code() uint8  { return 0x2d }

func (c *GetSensorReadingCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnSensorReq, c.RsLUN)
}

func (c *GetSensorReadingCommand) String() string           { return cmdToJSON(c) }
func (c *GetSensorReadingCommand) Marshal() ([]byte, error) { return []byte{c.SensorNumber}, nil }

func (c *GetSensorReadingCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, sensorReadingStatusMinLen); err != nil {
		return nil, err
	}

	c.SensorReading = buf[0]
	status := buf[1]
	c.ReadingUnavailable = status&0x20 != 0
	c.ScanningDisabled = status&0x40 == 0
	c.EventDisabled = status&0x80 == 0

	rest := buf[sensorReadingStatusMinLen:]
	if len(rest) >= 1 {
		c.SensorData2 = rest[0]
	}
	if len(rest) >= 2 {
		c.SensorData3 = rest[1]
		return rest[2:], nil
	}
	return nil, nil
}

// IsValid reports whether SensorReading reflects a live, enabled sensor
// rather than one that is still being scanned or has gone offline.
func (c *GetSensorReadingCommand) IsValid() bool {
	return !c.ReadingUnavailable && !c.ScanningDisabled
}

// ThresholdStatus decodes SensorData2 as a threshold-based sensor's
// comparison result. Meaningless for a discrete sensor.
func (c *GetSensorReadingCommand) ThresholdStatus() ThresholdStatus {
	return NewThresholdStatus(c.SensorData2)
}
