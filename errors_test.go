package ipmi

import "testing"

func TestCompletionCodeErrorRqSensorDataRecordNotPresent(t *testing.T) {
	cmd := newChannelAuthCapCommand(V2_0, PrivilegeAdministrator)

	notPresent := &CompletionCodeError{Command: cmd, Code: CompletionRequestDataNotPresent}
	if !notPresent.RqSensorDataRecordNotPresent() {
		t.Fatal("expected 0xCB completion code to report RqSensorDataRecordNotPresent")
	}

	other := &CompletionCodeError{Command: cmd, Code: CompletionInsufficientPrivilege}
	if other.RqSensorDataRecordNotPresent() {
		t.Fatal("non-0xCB completion code must not report RqSensorDataRecordNotPresent")
	}
}

func TestSendErrorUnwrapsToNetError(t *testing.T) {
	cause := &timeoutErr{}
	err := &SendError{Cause: cause}

	if !isTimeout(err) {
		t.Fatal("isTimeout must see through SendError.Unwrap to the underlying net.Error")
	}
}

func TestCommandCodeCrossTalkError(t *testing.T) {
	err := &CommandCodeCrossTalkError{Requested: 0x01, Received: 0x02}
	if err.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

// timeoutErr is a minimal net.Error whose Timeout() always reports true.
type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }
