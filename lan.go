package ipmi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"time"
)

const (
	sessionHeaderV1_5Size         = 10 // When authentication type is none
	sessionHeaderV1_5SizeWithAuth = 26
)

// sessionHeaderV1_5 is the legacy IPMI v1.5 session header. §1 scopes a
// full v1.5 session (challenge/activate, MD2/MD5/password authentication)
// out of this client; it is decoded only so a v1.5 response can be told
// apart from a v2.0 one, and encoded only for the one pre-authentication
// message the discovery phase needs: an unauthenticated
// Get Channel Authentication Capabilities probe (Section 22.13) that any
// BMC, v1.5-only or v2.0-capable, will answer.
type sessionHeaderV1_5 struct {
	authType      authType
	sequence      uint32
	id            uint32
	payloadLength uint8
	authCode      [16]byte // present when authType != authTypeNone
}

func (s *sessionHeaderV1_5) ID() uint32               { return s.id }
func (s *sessionHeaderV1_5) AuthType() authType       { return s.authType }
func (s *sessionHeaderV1_5) PayloadType() payloadType { return payloadTypeIPMI }
func (s *sessionHeaderV1_5) SetEncrypted(bool)        {}
func (s *sessionHeaderV1_5) SetAuthenticated(bool)    {}
func (s *sessionHeaderV1_5) PayloadLength() int       { return int(s.payloadLength) }
func (s *sessionHeaderV1_5) SetPayloadLength(n int)   { s.payloadLength = uint8(n) }

func (s *sessionHeaderV1_5) Marshal() ([]byte, error) {
	var buf []byte
	if s.authType == authTypeNone {
		buf = make([]byte, sessionHeaderV1_5Size)
	} else {
		buf = make([]byte, sessionHeaderV1_5SizeWithAuth)
		copy(buf[sessionHeaderV1_5Size-1:], s.authCode[:])
	}
	buf[0] = byte(s.authType)
	binary.LittleEndian.PutUint32(buf[1:], s.sequence)
	binary.LittleEndian.PutUint32(buf[5:], s.id)
	buf[len(buf)-1] = s.payloadLength
	return buf, nil
}

func (s *sessionHeaderV1_5) Unmarshal(buf []byte) ([]byte, error) {
	if len(buf) < sessionHeaderV1_5Size {
		return nil, &MalformedPacketError{
			Where:  "ipmi v1.5 session header",
			Detail: fmt.Sprintf("need at least %d bytes, got %d: %s", sessionHeaderV1_5Size, len(buf), hex.EncodeToString(buf)),
		}
	}
	s.authType = authType(buf[0])
	s.sequence = binary.LittleEndian.Uint32(buf[1:])
	s.id = binary.LittleEndian.Uint32(buf[5:])

	if s.authType == authTypeNone {
		s.payloadLength = buf[sessionHeaderV1_5Size-1]
		return buf[sessionHeaderV1_5Size:], nil
	}
	if len(buf) >= sessionHeaderV1_5SizeWithAuth {
		copy(s.authCode[:], buf[sessionHeaderV1_5Size-1:])
		s.payloadLength = buf[sessionHeaderV1_5SizeWithAuth-1]
		return buf[sessionHeaderV1_5SizeWithAuth:], nil
	}

	return nil, &MalformedPacketError{
		Where:  "ipmi v1.5 session header",
		Detail: fmt.Sprintf("authenticated header needs %d bytes, got %d: %s", sessionHeaderV1_5SizeWithAuth, len(buf), hex.EncodeToString(buf)),
	}
}

func (s *sessionHeaderV1_5) String() string {
	return fmt.Sprintf(`{"AuthType":"%s","Sequence":%d,"ID":%d,"PayloadLength":%d,"AuthCode":"%s"}`,
		s.authType, s.sequence, s.id, s.payloadLength, hex.EncodeToString(s.authCode[:]))
}

// probeChannelAuthCapabilities sends an unauthenticated v1.5-framed
// Get Channel Authentication Capabilities request over conn and returns
// the decoded capability bits. It is used once, during Discovery, before
// any session exists — no sequence tracking or retry state survives it.
func probeChannelAuthCapabilities(conn net.Conn, timeout time.Duration, version Version, priv PrivilegeLevel) (*channelAuthCapCommand, error) {
	cac := newChannelAuthCapCommand(version, priv)

	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: &sessionHeaderV1_5{authType: authTypeNone},
		Request: &ipmiRequestMessage{
			RsAddr:  bmcSlaveAddress,
			RqAddr:  remoteSWID,
			RqSeq:   0,
			Command: cac,
		},
	}

	payload, err := req.Request.Marshal()
	if err != nil {
		return nil, err
	}
	req.PayloadBytes = payload
	req.SessionHeader.SetPayloadLength(len(payload))

	res, _, err := sendMessage(conn, req, timeout)
	if err != nil {
		return nil, err
	}
	pkt, ok := res.(*ipmiPacket)
	if !ok {
		return nil, &MalformedPacketError{Where: "channel auth capabilities probe", Detail: res.String()}
	}
	rsm, ok := pkt.Response.(*ipmiResponseMessage)
	if !ok {
		return nil, &MalformedPacketError{Where: "channel auth capabilities probe", Detail: pkt.String()}
	}
	if rsm.CompletionCode != CompletionOK {
		return nil, &CompletionCodeError{Command: cac, Code: rsm.CompletionCode}
	}
	if _, err := cac.Unmarshal(rsm.Data); err != nil {
		return nil, err
	}
	return cac, nil
}
