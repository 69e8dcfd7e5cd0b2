package ipmi

import (
	"encoding/binary"
)

// getSDRRepositoryInfoRespLen is the fixed response length Section 33.9
// defines; this repo only decodes the version and record count out of it,
// leaving the free-space/timestamp/support-flag fields undecoded.
const getSDRRepositoryInfoRespLen = 14

// GetSDRRepositoryInfoCommand reports the SDR repository version and how
// many records it holds (Section 33.9) — enough to drive a bounded walk.
type GetSDRRepositoryInfoCommand struct {
	SDRVersion  uint8 // 0x01: IPMIv1.0, 0x51: IPMIv1.5, 0x02: IPMIv2.0
	RecordCount uint16
}

func (c *GetSDRRepositoryInfoCommand) Name() string { return "Get SDR Repository Info" }
func (c *GetSDRRepositoryInfoCommand) Code() uint8  { return 0x20 }

func (c *GetSDRRepositoryInfoCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnStorageReq, 0)
}

func (c *GetSDRRepositoryInfoCommand) String() string           { return cmdToJSON(c) }
func (c *GetSDRRepositoryInfoCommand) Marshal() ([]byte, error) { return []byte{}, nil }

func (c *GetSDRRepositoryInfoCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, getSDRRepositoryInfoRespLen); err != nil {
		return nil, err
	}
	c.SDRVersion = buf[0]
	c.RecordCount = binary.LittleEndian.Uint16(buf[1:3])
	return buf[getSDRRepositoryInfoRespLen:], nil
}

// ReserveSDRRepositoryCommand obtains a reservation ID that must accompany
// every Get SDR call in a single repository walk (Section 33.11) — the BMC
// uses it to detect the repository changing mid-walk.
type ReserveSDRRepositoryCommand struct {
	ReservationID uint16
}

func (c *ReserveSDRRepositoryCommand) Name() string { return "Reserve SDR Repository" }
func (c *ReserveSDRRepositoryCommand) Code() uint8  { return 0x22 }

func (c *ReserveSDRRepositoryCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnStorageReq, 0)
}

func (c *ReserveSDRRepositoryCommand) String() string           { return cmdToJSON(c) }
func (c *ReserveSDRRepositoryCommand) Marshal() ([]byte, error) { return []byte{}, nil }

func (c *ReserveSDRRepositoryCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, 2); err != nil {
		return nil, err
	}
	c.ReservationID = binary.LittleEndian.Uint16(buf)
	return buf[2:], nil
}

// GetSDRCommand reads ReadBytes bytes of one SDR record starting at
// RecordOffset (Section 33.12). The repository walk in sdr.go first reads
// the record header, then the body in chunks of at most the adaptive chunk
// size it maintains, shrinking that size if the BMC rejects a read as too long.
type GetSDRCommand struct {
	ReservationID uint16
	RecordID      uint16
	RecordOffset  uint8
	ReadBytes     uint8

	NextRecordID uint16
	RecordData   []byte
}

func (c *GetSDRCommand) Name() string           { return "Get SDR" }
func (c *GetSDRCommand) Code() uint8            { return 0x23 }
func (c *GetSDRCommand) NetFnRsLUN() NetFnRsLUN { return NewNetFnRsLUN(NetFnStorageReq, 0) }
func (c *GetSDRCommand) String() string         { return cmdToJSON(c) }

func (c *GetSDRCommand) Marshal() ([]byte, error) {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf, c.ReservationID)
	binary.LittleEndian.PutUint16(buf[2:], c.RecordID)
	buf[4] = c.RecordOffset
	buf[5] = c.ReadBytes
	return buf, nil
}

func (c *GetSDRCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, 2); err != nil {
		return nil, err
	}

	c.NextRecordID = binary.LittleEndian.Uint16(buf)
	body := buf[2:]

	if len(body) > int(c.ReadBytes) {
		c.RecordData = append([]byte{}, body[:c.ReadBytes]...)
		return body[c.ReadBytes:], nil
	}
	c.RecordData = append([]byte{}, body...)
	return nil, nil
}
