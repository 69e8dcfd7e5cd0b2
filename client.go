package ipmi

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Remote LAN addressing (Section 5.5). Every request/response frame on
// the wire carries these regardless of session state.
const (
	bmcSlaveAddress = 0x20 // BMC, always responder address 0x20
	remoteSWID      = 0x81 // first remote-console software ID
)

// IPMI v2.0 field-length limits (Section 13.20 / Table 22-19).
const (
	passwordMaxLengthV2_0 = 20
	userNameMaxLength     = 16
)

type Version int

const (
	V1_5 Version = iota + 1
	V2_0
)

// PrivilegeLevel is a channel privilege level (Section 6.8).
type PrivilegeLevel uint8

const (
	PrivilegeCallback PrivilegeLevel = iota + 1
	PrivilegeUser
	PrivilegeOperator
	PrivilegeAdministrator
)

func (p PrivilegeLevel) String() string {
	switch p {
	case PrivilegeCallback:
		return "CALLBACK"
	case PrivilegeUser:
		return "USER"
	case PrivilegeOperator:
		return "OPERATOR"
	case PrivilegeAdministrator:
		return "ADMINISTRATOR"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// Arguments configures how a client reaches and authenticates to a BMC.
type Arguments struct {
	Version        Version        // IPMI version to use (default V2_0)
	Network        string         // net.Dial network (default "udp")
	Address        string         // net.Dial address, host:port
	ReadTimeout    time.Duration  // per-request round-trip deadline (default 20s)
	Retries        uint           // retries on timeout, socket error or malformed response (default 0)
	RetryDelay     time.Duration  // pause between retries (default 0, i.e. immediate)
	AutoReconnect  bool           // re-dial and re-authenticate after a dropped session
	Username       string         // remote BMC username
	Password       string         // remote BMC password
	PrivilegeLevel PrivilegeLevel // requested session privilege (default Administrator)
	CipherSuiteID  uint           // Table 22-20 cipher suite (default 3)
	Logger         *logrus.Logger // structured logger; defaults to NewLogger()

	// Discretereading makes SDRFullSensor.IsAnalogReading also treat a
	// non-threshold sensor as analog when its record carries unit data.
	Discretereading bool
}

func (a *Arguments) setDefault() {
	if a.Version == 0 {
		a.Version = V2_0
	}
	if a.Network == "" {
		a.Network = "udp"
	}
	if a.ReadTimeout == 0 {
		a.ReadTimeout = 20 * time.Second
	}
	if a.PrivilegeLevel == 0 {
		a.PrivilegeLevel = PrivilegeAdministrator
	}
	if a.CipherSuiteID == 0 {
		a.CipherSuiteID = 3
	}
	if a.Logger == nil {
		a.Logger = NewLogger()
	}
}

func (a *Arguments) validate() error {
	switch a.Version {
	case V2_0:
		if len(a.Password) > passwordMaxLengthV2_0 {
			return &ArgumentError{Value: a.Password, Message: "password is too long"}
		}
		if a.CipherSuiteID > uint(len(cipherSuiteIDs)-1) {
			return &ArgumentError{Value: a.CipherSuiteID, Message: "invalid cipher suite ID"}
		}
		if a.CipherSuiteID != 3 {
			return &ArgumentError{Value: a.CipherSuiteID, Message: "only cipher suite 3 (HMAC-SHA1/HMAC-SHA1-96/AES-CBC-128) is implemented"}
		}
	case V1_5:
		return &ArgumentError{Value: a.Version, Message: "IPMI v1.5 sessions are not supported, only used for discovery"}
	default:
		return &ArgumentError{Value: a.Version, Message: "unsupported IPMI version"}
	}

	if a.PrivilegeLevel > PrivilegeAdministrator {
		return &ArgumentError{Value: a.PrivilegeLevel, Message: "invalid privilege level"}
	}
	if len(a.Username) > userNameMaxLength {
		return &ArgumentError{Value: a.Username, Message: "username is too long"}
	}
	if a.Address == "" {
		return &ArgumentError{Value: a.Address, Message: "address is required"}
	}

	return nil
}

// InactiveClient holds validated connection arguments for a BMC that has
// not yet been authenticated against. It exposes only the operations
// that are meaningful pre-session: an unauthenticated presence Ping, and
// Activate, which runs the full RMCP+ handshake and returns an
// ActiveClient. There is no way to send an IPMI command through an
// InactiveClient — that is the whole point of splitting the type.
type InactiveClient struct {
	args *Arguments
}

// NewClient validates args and returns an InactiveClient for them. It
// does not touch the network.
func NewClient(args Arguments) (*InactiveClient, error) {
	args.setDefault()
	if err := args.validate(); err != nil {
		return nil, err
	}
	return &InactiveClient{args: &args}, nil
}

// Ping sends an ASF presence ping and confirms the BMC advertises IPMI
// support, without creating a session.
func (c *InactiveClient) Ping() error {
	conn, err := net.DialTimeout(c.args.Network, c.args.Address, c.args.ReadTimeout)
	if err != nil {
		return &ConnectError{Address: c.args.Address, Cause: err}
	}
	defer conn.Close()

	return ping(conn, c.args.ReadTimeout)
}

// Activate dials the BMC, probes its authentication capabilities,
// negotiates a cipher suite, and runs the four-message RAKP handshake
// (Section 13.17-13.24). On success it returns an ActiveClient ready to
// send commands; on any failure the dialed socket, if any, is closed.
func (c *InactiveClient) Activate() (*ActiveClient, error) {
	log := c.args.Logger.WithField("address", c.args.Address)
	log.Debug("dialing BMC")

	conn, err := net.DialTimeout(c.args.Network, c.args.Address, c.args.ReadTimeout)
	if err != nil {
		return nil, &ConnectError{Address: c.args.Address, Cause: err}
	}

	ac := &ActiveClient{
		conn:            conn,
		args:            c.args,
		rqSeq:           firstRqSeq,
		sdrReadingBytes: sdrDefaultReadBytes,
		log:             log,
	}

	if err := ac.openSession(); err != nil {
		conn.Close()
		return nil, err
	}

	log.WithField("sessionID", ac.id).Info("RMCP+ session established")
	return ac, nil
}

// ActiveClient is an authenticated IPMI v2.0 session. All IPMI command
// dispatch happens through Send; there is no way to obtain one except
// via InactiveClient.Activate, so a *ActiveClient always has live
// session keys.
type ActiveClient struct {
	conn net.Conn
	args *Arguments
	log  *logrus.Entry

	id       uint32 // managed-system session ID
	sequence uint32 // session sequence number
	rqSeq    uint8  // command sequence number (top 6 bits of RqSeq byte)
	k1       []byte // integrity key
	k2       []byte // confidentiality key

	sdrReadingBytes uint8 // adaptive Get SDR chunk size, shrunk on CompletionRequestDataFieldExceedEd
}

// Send dispatches cmd over the active session, retrying a timeout, socket
// error or malformed response per Arguments.Retries/RetryDelay and transparently reconnecting once if
// Arguments.AutoReconnect is set and the failure looks like a dead session:
// a socket-level fault or the BMC answering with the wrong command code
// (cross-talk), in addition to a timeout.
func (c *ActiveClient) Send(cmd Command) error {
	err := c.send(cmd)
	if err == nil {
		return nil
	}

	if c.args.AutoReconnect && shouldReconnect(err) {
		c.log.WithError(err).Warn("session appears dead, reconnecting")
		if rerr := c.reconnect(); rerr != nil {
			return rerr
		}
		return c.send(cmd)
	}

	return err
}

// shouldReconnect reports whether err indicates the session itself is dead
// rather than a one-off command failure: a timeout, a socket-level send/
// receive fault, or command-code cross-talk (the BMC answering with a
// stale response, usually a sign the session state has diverged).
func shouldReconnect(err error) bool {
	if isTimeout(err) || isSocketFault(err) {
		return true
	}
	var xerr *CommandCodeCrossTalkError
	return errors.As(err, &xerr)
}

func (c *ActiveClient) send(cmd Command) error {
	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: c.header(payloadTypeIPMI),
		Request: &ipmiRequestMessage{
			RsAddr:  bmcSlaveAddress,
			RqAddr:  remoteSWID,
			RqSeq:   c.nextRqSeq(),
			Command: cmd,
		},
	}

	pkt, err := c.sendPacket(req)
	if err != nil {
		return err
	}

	rsm, ok := pkt.Response.(*ipmiResponseMessage)
	if !ok {
		return &MalformedPacketError{Where: "command response", Detail: pkt.String()}
	}
	if rsm.Code != cmd.Code() {
		return &CommandCodeCrossTalkError{Requested: cmd.Code(), Received: rsm.Code}
	}
	if rsm.CompletionCode != CompletionOK {
		return &CompletionCodeError{Command: cmd, Code: rsm.CompletionCode}
	}
	if _, err := cmd.Unmarshal(rsm.Data); err != nil {
		return err
	}

	return nil
}

// reconnect tears down the dead socket (if any) and re-runs the whole
// discovery + RAKP handshake, replacing the session keys and resetting
// sequence counters in place.
func (c *ActiveClient) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
	}
	c.id, c.sequence, c.rqSeq, c.k1, c.k2 = 0, 0, firstRqSeq, nil, nil

	conn, err := net.DialTimeout(c.args.Network, c.args.Address, c.args.ReadTimeout)
	if err != nil {
		return &ConnectError{Address: c.args.Address, Cause: err}
	}
	c.conn = conn

	return c.openSession()
}

// Close attempts a graceful Close Session and releases the socket. The
// socket is always closed even if the Close Session command fails.
func (c *ActiveClient) Close() error {
	var sendErr error
	if c.id != 0 {
		sendErr = c.send(newCloseSessionCommand(c.id))
		c.id, c.sequence, c.rqSeq, c.k1, c.k2 = 0, 0, 0, nil, nil
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			if sendErr == nil {
				sendErr = err
			}
		}
		c.conn = nil
	}

	return sendErr
}
