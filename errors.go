package ipmi

import (
	"fmt"
)

// An ArgumentError suggests that the arguments given to NewClient are wrong.
type ArgumentError struct {
	Value   interface{}
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s, value `%v`", e.Message, e.Value)
}

// A BindError means the client could not obtain a local UDP socket.
type BindError struct {
	Cause error
}

func (e *BindError) Error() string { return fmt.Sprintf("bind: %v", e.Cause) }
func (e *BindError) Unwrap() error { return e.Cause }

// A ConnectError means net.DialTimeout to the BMC failed.
type ConnectError struct {
	Address string
	Cause   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Cause)
}
func (e *ConnectError) Unwrap() error { return e.Cause }

// A SendError wraps a socket write failure.
type SendError struct {
	Cause error
}

func (e *SendError) Error() string { return fmt.Sprintf("send: %v", e.Cause) }
func (e *SendError) Unwrap() error { return e.Cause }

// A ReceiveError wraps a socket read failure that is not a timeout.
type ReceiveError struct {
	Cause error
}

func (e *ReceiveError) Error() string { return fmt.Sprintf("receive: %v", e.Cause) }
func (e *ReceiveError) Unwrap() error { return e.Cause }

// A TimeoutError means a request/response round trip exceeded ReadTimeout,
// after exhausting all configured retries.
type TimeoutError struct {
	Retries int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for response after %d retr(y/ies)", e.Retries)
}

// An UnsupportedVersionError means the BMC's Get Channel Authentication
// Capabilities response did not advertise RMCP+ (IPMI 2.0) support.
type UnsupportedVersionError struct {
	Detail string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("BMC does not support IPMI v2.0 / RMCP+: %s", e.Detail)
}

// An OpenSessionStatusError means the RMCP+ Open Session Response carried a
// non-zero status code.
type OpenSessionStatusError struct {
	Status rakpStatusCode
	Detail string
}

func (e *OpenSessionStatusError) Error() string {
	return fmt.Sprintf("open session request rejected: %s", e.Status)
}

// A Rakp2AuthMismatchError means the RAKP Message 2 key-exchange auth code
// did not validate against the password. This is almost always a wrong
// password, not a network fault.
type Rakp2AuthMismatchError struct {
	Detail string
}

func (e *Rakp2AuthMismatchError) Error() string {
	return "RAKP 2 authentication failed (wrong username/password?): " + e.Detail
}

// A Rakp4AuthMismatchError means the RAKP Message 4 integrity check value
// (key confirmation) did not validate against SIK.
type Rakp4AuthMismatchError struct {
	Detail string
}

func (e *Rakp4AuthMismatchError) Error() string {
	return "RAKP 4 key confirmation failed: " + e.Detail
}

// A MalformedPacketError means a received packet violated a length,
// checksum, or MAC invariant at a documented position.
type MalformedPacketError struct {
	Where  string
	Detail string
}

func (e *MalformedPacketError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("malformed packet at %s", e.Where)
	}
	return fmt.Sprintf("malformed packet at %s: %s", e.Where, e.Detail)
}

// A CompletionCodeError means the BMC returned a non-success completion
// code for a command. RqSensorDataRecordNotPresent() reports whether this
// is the well-known "no more records" terminator SDR/SEL iteration relies
// on, so callers do not need to match on CompletionCode directly.
type CompletionCodeError struct {
	Command Command
	Code    CompletionCode
}

func (e *CompletionCodeError) Error() string {
	return fmt.Sprintf("command %s(%#02x) failed: %s", e.Command.Name(), e.Command.Code(), e.Code)
}

// RqSensorDataRecordNotPresent reports whether this failure is the
// "Requested Sensor, data, or record not present" completion code
// (0xCB), which SDR/SEL repository iteration uses as its normal
// loop-termination signal rather than a fatal error.
func (e *CompletionCodeError) RqSensorDataRecordNotPresent() bool {
	return e.Code == CompletionRequestDataNotPresent
}

// A CommandCodeCrossTalkError means the response's command code did not
// match the request's — some BMCs answer one request with an earlier
// request's response under load.
type CommandCodeCrossTalkError struct {
	Requested uint8
	Received  uint8
}

func (e *CommandCodeCrossTalkError) Error() string {
	return fmt.Sprintf("response command code %#02x does not match requested command %#02x (cross-talk)",
		e.Received, e.Requested)
}

// ErrNotSupportedIPMI is returned by Ping when the presence pong indicates
// the target does not support IPMI at all.
var ErrNotSupportedIPMI error = &UnsupportedVersionError{Detail: "ASF presence pong did not set the IPMI-supported bit"}
