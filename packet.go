package ipmi

import (
	"fmt"
)

// ipmiPacket is the one wire container both IPMI v1.5 and v2.0 traffic
// uses: an RMCP header, a session header (either version), and a payload
// that on the way out is a Command's marshaled request and on the way in
// is the raw bytes still waiting to be unmarshaled into Response (Section
// 13.6). Exactly one of Request/Response is set, matching which direction
// the packet travels.
type ipmiPacket struct {
	RMCPHeader    *rmcpHeader
	SessionHeader sessionHeader
	PayloadBytes  []byte
	Request       request
	Response      response
}

func (p *ipmiPacket) IsRequest() bool {
	return p.Request != nil
}

func (p *ipmiPacket) Marshal() ([]byte, error) {
	rmcp, err := p.RMCPHeader.Marshal()
	if err != nil {
		return nil, err
	}
	session, err := p.SessionHeader.Marshal()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, len(rmcp)+len(session)+len(p.PayloadBytes))
	buf = append(buf, rmcp...)
	buf = append(buf, session...)
	buf = append(buf, p.PayloadBytes...)
	return buf, nil
}

// Unmarshal stashes buf as the still-undecoded payload; the caller decodes
// it into Response once confidentiality/integrity processing (if any) has
// run, since those strip the trailer and decrypt in place first.
func (p *ipmiPacket) Unmarshal(buf []byte) ([]byte, error) {
	p.PayloadBytes = buf
	return nil, nil
}

func (p *ipmiPacket) String() string {
	if p.IsRequest() {
		return fmt.Sprintf(`{"RMCPHeader":%s,"SessionHeader":%s,"Request":%s}`,
			p.RMCPHeader, p.SessionHeader, p.Request)
	}
	return fmt.Sprintf(`{"RMCPHeader":%s,"SessionHeader":%s,"Response":%s}`,
		p.RMCPHeader, p.SessionHeader, p.Response)
}
