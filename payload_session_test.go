package ipmi

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"testing"
)

func testRAKPExchange(password string) (*rakpMessage1, *rakpMessage2, *rakpMessage3) {
	args := &Arguments{CipherSuiteID: 3, Password: password}

	r1 := &rakpMessage1{
		ManagedID:      0x1234,
		PrivilegeLevel: PrivilegeAdministrator,
		Username:       "admin",
	}
	for i := range r1.ConsoleRand {
		r1.ConsoleRand[i] = byte(i)
	}

	r2 := &rakpMessage2{
		ConsoleID: 0xaabbccdd,
	}
	for i := range r2.ManagedRand {
		r2.ManagedRand[i] = byte(0x10 + i)
	}

	r3 := &rakpMessage3{ManagedID: r1.ManagedID}
	r3.GenerateAuthCode(args, r1, r2)
	r3.GenerateSIK(args, r1, r2)
	r3.GenerateK1(args)
	r3.GenerateK2(args)

	return r1, r2, r3
}

func TestRAKPKeyDerivationIsDeterministic(t *testing.T) {
	_, _, a := testRAKPExchange("admin")
	_, _, b := testRAKPExchange("admin")

	if a.SIK != b.SIK {
		t.Fatal("SIK differs across two runs with identical inputs")
	}
	if a.K1 != b.K1 {
		t.Fatal("K1 differs across two runs with identical inputs")
	}
	if a.K2 != b.K2 {
		t.Fatal("K2 differs across two runs with identical inputs")
	}
	if a.K1 == a.K2 {
		t.Fatal("K1 and K2 must not collide, they are derived from distinct constants")
	}
}

func TestRAKPKeyDerivationDependsOnPassword(t *testing.T) {
	_, _, a := testRAKPExchange("admin")
	_, _, b := testRAKPExchange("different-password")

	if a.SIK == b.SIK {
		t.Fatal("SIK must depend on the shared password")
	}
}

func TestRAKPMessage2ValidateAuthCode(t *testing.T) {
	args := &Arguments{CipherSuiteID: 3, Password: "admin"}
	r1 := &rakpMessage1{ManagedID: 1, PrivilegeLevel: PrivilegeAdministrator, Username: "admin"}

	r2 := &rakpMessage2{ConsoleID: 42}
	key := make([]byte, passwordMaxLengthV2_0)
	copy(key, args.Password)

	data := make([]byte, 58+len(r1.Username))
	binary.LittleEndian.PutUint32(data, r2.ConsoleID)
	binary.LittleEndian.PutUint32(data[4:], r1.ManagedID)
	copy(data[8:], r1.ConsoleRand[:])
	copy(data[24:], r2.ManagedRand[:])
	copy(data[40:], r2.ManagedGUID[:])
	data[56] = r1.RequestedRole()
	data[57] = byte(len(r1.Username))
	copy(data[58:], r1.Username)

	// A correctly computed auth code must validate.
	mac := hmac.New(sha1.New, key)
	mac.Write(data)
	copy(r2.KeyExchangeAuthCode[:], mac.Sum(nil))
	if err := r2.ValidateAuthCode(args, r1); err != nil {
		t.Fatalf("expected valid auth code to validate, got %v", err)
	}

	// Flipping a bit must be rejected with the wrong-password error type.
	r2.KeyExchangeAuthCode[0] ^= 0xff
	err := r2.ValidateAuthCode(args, r1)
	if err == nil {
		t.Fatal("expected tampered auth code to fail validation")
	}
	if _, ok := err.(*Rakp2AuthMismatchError); !ok {
		t.Fatalf("expected *Rakp2AuthMismatchError, got %T", err)
	}
}
