package ipmi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

const sessionHeaderV2_0Size = 12 // When payload type is not OEM

type sessionHeaderV2_0 struct {
	authType      authType
	payloadType   payloadType
	id            uint32
	sequence      uint32
	payloadLength uint16
}

func (s *sessionHeaderV2_0) ID() uint32               { return s.id }
func (s *sessionHeaderV2_0) AuthType() authType       { return s.authType }
func (s *sessionHeaderV2_0) PayloadType() payloadType { return s.payloadType }
func (s *sessionHeaderV2_0) SetEncrypted(b bool)      { s.payloadType.SetEncrypted(b) }
func (s *sessionHeaderV2_0) SetAuthenticated(b bool)  { s.payloadType.SetAuthenticated(b) }
func (s *sessionHeaderV2_0) PayloadLength() int       { return int(s.payloadLength) }
func (s *sessionHeaderV2_0) SetPayloadLength(n int)   { s.payloadLength = uint16(n) }

func (s *sessionHeaderV2_0) Marshal() ([]byte, error) {
	buf := make([]byte, sessionHeaderV2_0Size)
	buf[0] = byte(s.authType)
	buf[1] = byte(s.payloadType)
	binary.LittleEndian.PutUint32(buf[2:], s.id)
	binary.LittleEndian.PutUint32(buf[6:], s.sequence)
	binary.LittleEndian.PutUint16(buf[10:], s.payloadLength)
	return buf, nil
}

func (s *sessionHeaderV2_0) Unmarshal(buf []byte) ([]byte, error) {
	if len(buf) < sessionHeaderV2_0Size {
		return nil, &MalformedPacketError{
			Where:  "ipmi v2.0 session header",
			Detail: fmt.Sprintf("need %d bytes, got %d: %s", sessionHeaderV2_0Size, len(buf), hex.EncodeToString(buf)),
		}
	}
	s.authType = authType(buf[0])
	s.payloadType = payloadType(buf[1])
	s.id = binary.LittleEndian.Uint32(buf[2:])
	s.sequence = binary.LittleEndian.Uint32(buf[6:])
	s.payloadLength = binary.LittleEndian.Uint16(buf[10:])
	return buf[sessionHeaderV2_0Size:], nil
}

func (s *sessionHeaderV2_0) String() string {
	return fmt.Sprintf(`{"AuthType":"%s","PayLoadType":%d,"ID":%d,"Sequence":%d,"PayloadLength":%d}`,
		s.authType, s.payloadType, s.id, s.sequence, s.payloadLength)
}

// header builds a v2.0 session header for the given payload, advancing
// this session's sequence counter (Section 13.8).
func (c *ActiveClient) header(p payloadType) sessionHeader {
	return &sessionHeaderV2_0{
		authType:    authTypeRMCPPlus,
		id:          c.id,
		sequence:    c.nextSequence(),
		payloadType: p,
	}
}

// openSession runs the four discovery/handshake steps that bring up an
// RMCP+ session: Get Channel Authentication Capabilities, Open Session
// Request/Response, RAKP Message 1/2, and RAKP Message 3/4. On success
// c.id/k1/k2 hold the live session state and the optional Set Session
// Privilege Level command has already run.
func (c *ActiveClient) openSession() error {
	// 1. Get Channel Authentication Capabilities, framed as v1.5 so any
	// BMC (v1.5-only or v2.0-capable) will answer it.
	cac, err := probeChannelAuthCapabilities(c.conn, c.args.ReadTimeout, V2_0, c.args.PrivilegeLevel)
	if err != nil {
		// Retry once without requesting IPMI v2 support explicitly.
		cac, err = probeChannelAuthCapabilities(c.conn, c.args.ReadTimeout, V1_5, c.args.PrivilegeLevel)
		if err != nil {
			return err
		}
	}
	if !cac.IsSupportedAuthType(authTypeRMCPPlus) {
		return &UnsupportedVersionError{Detail: "BMC does not advertise RMCP+ (IPMI v2.0) support: " + cac.String()}
	}

	// 2. Open Session Request
	priv := c.args.PrivilegeLevel
	if priv == PrivilegeAdministrator {
		// Request the highest level matching the proposed algorithms.
		priv = PrivilegeLevel(0)
	}

	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: c.header(payloadTypeRMCPOpenReq),
		Request: &openSessionRequest{
			ConsoleID:      consoleID,
			PrivilegeLevel: priv,
			CipherSuiteID:  c.args.CipherSuiteID,
		},
	}
	pkt, err := c.sendPacket(req)
	if err != nil {
		return err
	}

	osr, ok := pkt.Response.(*openSessionResponse)
	if !ok {
		return &MalformedPacketError{Where: "open session response", Detail: pkt.String()}
	}
	if osr.StatusCode != rakpStatusNoErrors {
		return &OpenSessionStatusError{Status: osr.StatusCode, Detail: pkt.String()}
	}
	if consoleID != osr.ConsoleID {
		return &MalformedPacketError{
			Where:  "open session response",
			Detail: fmt.Sprintf("console session ID mismatch: sent 0x%x, received 0x%x", consoleID, osr.ConsoleID),
		}
	}
	if reqSuite := cipherSuiteIDs[c.args.CipherSuiteID]; !reqSuite.Equal(&osr.CipherSuite) {
		return &MalformedPacketError{
			Where:  "open session response",
			Detail: fmt.Sprintf("cipher suite mismatch: requested %s, negotiated %s", reqSuite, osr.CipherSuite),
		}
	}

	// 3. Exchange RAKP Message 1/2
	r1 := &rakpMessage1{
		ManagedID:       osr.ManagedID,
		PrivilegeLevel:  c.args.PrivilegeLevel,
		PrivilegeLookup: false,
		Username:        c.args.Username,
	}

	req = &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: c.header(payloadTypeRAKP1),
		Request:       r1,
	}
	pkt, err = c.sendPacket(req)
	if err != nil {
		return err
	}

	r2, ok := pkt.Response.(*rakpMessage2)
	if !ok {
		return &MalformedPacketError{Where: "rakp message 2", Detail: pkt.String()}
	}
	if r2.StatusCode != rakpStatusNoErrors {
		return &OpenSessionStatusError{Status: r2.StatusCode, Detail: pkt.String()}
	}
	if consoleID != r2.ConsoleID {
		return &MalformedPacketError{
			Where:  "rakp message 2",
			Detail: fmt.Sprintf("console session ID mismatch: sent 0x%x, received 0x%x", consoleID, r2.ConsoleID),
		}
	}
	if err = r2.ValidateAuthCode(c.args, r1); err != nil {
		return err
	}

	// 4. Activate session: RAKP Message 3/4
	r3 := &rakpMessage3{
		StatusCode: rakpStatusNoErrors,
		ManagedID:  osr.ManagedID,
	}
	r3.GenerateAuthCode(c.args, r1, r2)
	r3.GenerateSIK(c.args, r1, r2)
	r3.GenerateK1(c.args)
	r3.GenerateK2(c.args)

	req = &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: c.header(payloadTypeRAKP3),
		Request:       r3,
	}
	pkt, err = c.sendPacket(req)
	if err != nil {
		return err
	}

	r4, ok := pkt.Response.(*rakpMessage4)
	if !ok {
		return &MalformedPacketError{Where: "rakp message 4", Detail: pkt.String()}
	}
	if r4.StatusCode != rakpStatusNoErrors {
		return &OpenSessionStatusError{Status: r4.StatusCode, Detail: pkt.String()}
	}
	if consoleID != r4.ConsoleID {
		return &MalformedPacketError{
			Where:  "rakp message 4",
			Detail: fmt.Sprintf("console session ID mismatch: sent 0x%x, received 0x%x", consoleID, r4.ConsoleID),
		}
	}
	if err = r4.ValidateAuthCode(c.args, r1, r2, r3); err != nil {
		return err
	}

	c.id = osr.ManagedID
	c.k1 = r3.K1[:]
	c.k2 = r3.K2[:]

	// Set session privilege level whenever more than USER was requested;
	// the level the handshake granted is not checked first.
	if l := c.args.PrivilegeLevel; l > PrivilegeUser {
		if err := c.send(newSetSessionPrivilegeCommand(l)); err != nil {
			return err
		}
	}

	return nil
}

func (c *ActiveClient) nextSequence() uint32 {
	if c.id > 0 {
		if c.sequence == math.MaxUint32 {
			c.sequence = 1
		} else {
			c.sequence++
		}
	}
	return c.sequence
}

// firstRqSeq is the requester sequence a freshly activated session starts
// counting from: 0x08 (Section 13.8 names this as the first value a
// console should use, reserving lower values other traffic on the bus may
// already be using).
const firstRqSeq = 2 // 2<<2 == 0x08

func (c *ActiveClient) nextRqSeq() uint8 {
	n := c.rqSeq
	c.rqSeq++
	if c.rqSeq >= 64 {
		c.rqSeq = 0
	}
	return n << 2
}

// sendPacket marshals req and applies confidentiality/integrity protection
// once a session is active, then transmits it. A retry resends these exact
// prepared bytes rather than reassembling the packet — the session sequence
// number in req.SessionHeader was fixed once, by the caller, and must not
// advance between attempts of what is logically one request (Section 13.8).
func (c *ActiveClient) sendPacket(req *ipmiPacket) (*ipmiPacket, error) {
	active := c.id > 0
	if err := c.prepareRequest(req, active); err != nil {
		return nil, err
	}

	var pkt *ipmiPacket
	err := retry(int(c.args.Retries), c.args.RetryDelay, func() (e error) {
		pkt, e = c.exchange(req, active)
		return
	})
	return pkt, err
}

// prepareRequest marshals the command payload into req.PayloadBytes and, for
// an active session, encrypts it and appends the integrity trailer. It runs
// exactly once per logical request, before any retry.
func (c *ActiveClient) prepareRequest(req *ipmiPacket, active bool) error {
	buf, err := req.Request.Marshal()
	if err != nil {
		return err
	}
	req.PayloadBytes = buf
	req.SessionHeader.SetPayloadLength(len(buf))

	if !active {
		return nil
	}

	if requiredConfidentiality(c.args.CipherSuiteID) {
		req.SessionHeader.SetEncrypted(true)
		if buf, err = encryptPayload(req.PayloadBytes, c.k2); err != nil {
			return err
		}
		req.PayloadBytes = buf
		req.SessionHeader.SetPayloadLength(len(buf))
	}
	if requiredIntegrity(c.args.CipherSuiteID) {
		req.SessionHeader.SetAuthenticated(true)
		msg, err := req.SessionHeader.Marshal()
		if err != nil {
			return err
		}
		trailer := makeTrailer(append(msg, req.PayloadBytes...), c.k1)
		req.PayloadBytes = append(req.PayloadBytes, trailer...)
	}
	return nil
}

// exchange transmits the already-prepared req and unwraps + validates the
// response. Called once per retry attempt; req itself is never mutated.
func (c *ActiveClient) exchange(req *ipmiPacket, active bool) (*ipmiPacket, error) {
	res, msg, err := sendMessage(c.conn, req, c.args.ReadTimeout)
	if err != nil {
		return nil, err
	}
	pkt, ok := res.(*ipmiPacket)
	if !ok {
		return nil, &MalformedPacketError{Where: "ipmi v2.0 packet", Detail: res.String()}
	}

	if active {
		if id := pkt.SessionHeader.ID(); consoleID != id {
			return nil, &MalformedPacketError{
				Where:  "ipmi v2.0 packet",
				Detail: fmt.Sprintf("console session ID mismatch: expected 0x%x, got 0x%x", consoleID, id),
			}
		}

		if requiredIntegrity(c.args.CipherSuiteID) {
			if !pkt.SessionHeader.PayloadType().Authenticated() {
				return nil, &MalformedPacketError{Where: "ipmi v2.0 packet", Detail: "response is not authenticated"}
			}
			if err := validateTrailer(msg[rmcpHeaderSize:], c.k1); err != nil {
				return nil, err
			}
		}

		if requiredConfidentiality(c.args.CipherSuiteID) {
			if !pkt.SessionHeader.PayloadType().Encrypted() {
				return nil, &MalformedPacketError{Where: "ipmi v2.0 packet", Detail: "response is not encrypted"}
			}
			buf, err := decryptPayload(pkt.PayloadBytes, c.k2)
			if err != nil {
				return nil, err
			}
			pkt.PayloadBytes = buf
			pkt.SessionHeader.SetPayloadLength(len(buf))
		}
	}

	if _, err := pkt.Response.Unmarshal(pkt.PayloadBytes); err != nil {
		return nil, err
	}

	return pkt, nil
}

func (c *ActiveClient) String() string {
	return fmt.Sprintf(`{"ID":%d,"Sequence":%d,"RqSeq":%d,"K1":"%s","K2":"%s"}`,
		c.id, c.sequence, c.rqSeq, hex.EncodeToString(c.k1), hex.EncodeToString(c.k2))
}
