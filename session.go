package ipmi

import (
	"fmt"
)

// payloadType identifies the kind of payload an IPMI v2.0 session header
// carries (Section 13.27.3). The top two bits double as the encrypted/
// authenticated flags once a session is active.
type payloadType uint8

const (
	payloadTypeIPMI        payloadType = 0x00
	payloadTypeSOL         payloadType = 0x01
	payloadTypeOEM         payloadType = 0x02
	payloadTypeRMCPOpenReq payloadType = 0x10
	payloadTypeRMCPOpenRes payloadType = 0x11
	payloadTypeRAKP1       payloadType = 0x12
	payloadTypeRAKP2       payloadType = 0x13
	payloadTypeRAKP3       payloadType = 0x14
	payloadTypeRAKP4       payloadType = 0x15
)

// Pure returns the payload type with the encrypted/authenticated flag bits
// cleared.
func (p payloadType) Pure() payloadType {
	return payloadType(byte(p) & 0x3f)
}

func (p *payloadType) SetEncrypted(b bool) {
	if b {
		*p = payloadType(byte(*p) | 0x80)
	} else {
		*p = payloadType(byte(*p) & 0x7f)
	}
}

func (p payloadType) Encrypted() bool {
	return p&0x80 != 0
}

func (p *payloadType) SetAuthenticated(b bool) {
	if b {
		*p = payloadType(byte(*p) | 0x40)
	} else {
		*p = payloadType(byte(*p) & 0xbf)
	}
}

func (p payloadType) Authenticated() bool {
	return p&0x40 != 0
}

// authType is the legacy IPMI v1.5 session authentication type, reused by
// the v2.0 header to flag RMCP+ (Section 13.6).
type authType uint8

const (
	authTypeNone     authType = 0x0
	authTypeMD2      authType = 0x1
	authTypeMD5      authType = 0x2
	authTypePassword authType = 0x4
	authTypeOEM      authType = 0x5
	authTypeRMCPPlus authType = 0x6
)

func (a authType) String() string {
	switch a {
	case authTypeNone:
		return "NONE"
	case authTypeMD2:
		return "MD2"
	case authTypeMD5:
		return "MD5"
	case authTypePassword:
		return "PASSWORD"
	case authTypeOEM:
		return "OEM"
	case authTypeRMCPPlus:
		return "RMCP+"
	default:
		return fmt.Sprintf("Reserved(%d)", a)
	}
}

// sessionHeader is satisfied by both the IPMI v1.5 and v2.0 session
// headers, letting the packet (de)serializer stay version-agnostic.
// The client sends v2.0 headers for everything but the one v1.5-framed
// discovery probe; v1.5 is otherwise parsed on the wire just far enough
// to be distinguished from v2.0 (see lan.go).
type sessionHeader interface {
	ID() uint32
	AuthType() authType
	PayloadType() payloadType
	SetEncrypted(bool)
	SetAuthenticated(bool)
	PayloadLength() int
	SetPayloadLength(int)
	Marshal() ([]byte, error)
	Unmarshal([]byte) ([]byte, error)
	String() string
}
