package ipmi

import (
	"encoding/binary"
)

// getSELInfoRespLen is the fixed response length Section 31.2 defines.
const getSELInfoRespLen = 14

// GetSELInfoCommand reports the SEL version, current entry count, and the
// operations the BMC supports against it (Section 31.2) — SELGetEntries
// uses Entries to size its walk.
type GetSELInfoCommand struct {
	SELVersion        uint8
	Entries           uint16
	FreeSpace         uint16
	LastAddTime       uint32
	LastDelTime       uint32
	SupportAllocInfo  bool
	SupportReserve    bool
	SupportPartialAdd bool
	SupportDelete     bool
	Overflow          bool
}

func (c *GetSELInfoCommand) Name() string { return "Get SEL Info" }
func (c *GetSELInfoCommand) Code() uint8  { return 0x40 }

func (c *GetSELInfoCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnStorageReq, 0)
}

func (c *GetSELInfoCommand) String() string           { return cmdToJSON(c) }
func (c *GetSELInfoCommand) Marshal() ([]byte, error) { return []byte{}, nil }

func (c *GetSELInfoCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, getSELInfoRespLen); err != nil {
		return nil, err
	}

	c.SELVersion = buf[0]
	c.Entries = binary.LittleEndian.Uint16(buf[1:3])
	c.FreeSpace = binary.LittleEndian.Uint16(buf[3:5])
	c.LastAddTime = binary.LittleEndian.Uint32(buf[5:9])
	c.LastDelTime = binary.LittleEndian.Uint32(buf[9:13])

	flags := buf[13]
	c.SupportAllocInfo = flags&0x01 != 0
	c.SupportReserve = flags&0x02 != 0
	c.SupportPartialAdd = flags&0x04 != 0
	c.SupportDelete = flags&0x08 != 0
	c.Overflow = flags&0x80 != 0

	return buf[getSELInfoRespLen:], nil
}

// ReserveSELCommand obtains a reservation ID that must accompany a
// subsequent Get SEL Entry call walking the log (Section 31.4).
type ReserveSELCommand struct {
	ReservationID uint16
}

func (c *ReserveSELCommand) Name() string { return "Reserve SEL" }
func (c *ReserveSELCommand) Code() uint8  { return 0x42 }

func (c *ReserveSELCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnStorageReq, 0)
}

func (c *ReserveSELCommand) String() string           { return cmdToJSON(c) }
func (c *ReserveSELCommand) Marshal() ([]byte, error) { return []byte{}, nil }

func (c *ReserveSELCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, 2); err != nil {
		return nil, err
	}
	c.ReservationID = binary.LittleEndian.Uint16(buf)
	return buf[2:], nil
}

// GetSELEntryCommand reads ReadBytes bytes of one SEL record starting at
// RecordOffset (Section 31.5); selGetRecord in sel.go always asks for the
// full 16-byte record in one call.
type GetSELEntryCommand struct {
	ReservationID uint16
	RecordID      uint16
	RecordOffset  uint8
	ReadBytes     uint8

	NextRecordID uint16
	RecordData   []byte
}

func (c *GetSELEntryCommand) Name() string           { return "Get SEL Entry" }
func (c *GetSELEntryCommand) Code() uint8            { return 0x43 }
func (c *GetSELEntryCommand) NetFnRsLUN() NetFnRsLUN { return NewNetFnRsLUN(NetFnStorageReq, 0) }
func (c *GetSELEntryCommand) String() string         { return cmdToJSON(c) }

func (c *GetSELEntryCommand) Marshal() ([]byte, error) {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf, c.ReservationID)
	binary.LittleEndian.PutUint16(buf[2:], c.RecordID)
	buf[4] = c.RecordOffset
	buf[5] = c.ReadBytes
	return buf, nil
}

func (c *GetSELEntryCommand) Unmarshal(buf []byte) ([]byte, error) {
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
