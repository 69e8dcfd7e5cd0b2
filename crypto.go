package ipmi

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// consoleID is this client's fixed remote-console session ID, sent in
// every Open Session Request and echoed back by the BMC in every
// subsequent packet header (Section 13.17). 'IPMI' in ASCII.
const consoleID uint32 = 0x49504d49

// encryptPayload applies the IPMI v2.0 payload confidentiality
// transform for cipher suite 3: AES-128-CBC with a random per-packet
// IV and byte-counting pad (Section 13.29).
func encryptPayload(src, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}

	srcLen := len(src)
	padLen := 0
	if mod := (srcLen + 1) % aes.BlockSize; mod != 0 {
		padLen = aes.BlockSize - mod
	}
	input := make([]byte, srcLen+padLen+1)
	copy(input, src)
	for i := 0; i < padLen; i++ {
		input[srcLen+i] = byte(i + 1)
	}
	input[srcLen+padLen] = byte(padLen)

	dst := make([]byte, aes.BlockSize+len(input))
	iv := dst[:aes.BlockSize]
	if _, err = rand.Read(iv); err != nil {
		return nil, err
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst[aes.BlockSize:], input)
	return dst, nil
}

// decryptPayload reverses encryptPayload.
func decryptPayload(src, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}

	if l := len(src); l < aes.BlockSize || l%aes.BlockSize != 0 {
		return nil, &MalformedPacketError{
			Where:  "encrypted payload",
			Detail: fmt.Sprintf("length %d is not a non-empty multiple of the AES block size", l),
		}
	}

	dst := make([]byte, len(src)-aes.BlockSize)
	iv, data := src[:aes.BlockSize], src[aes.BlockSize:]
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, data)

	padLen := int(dst[len(dst)-1])
	if padLen > len(dst)-1 {
		return nil, &MalformedPacketError{
			Where:  "encrypted payload",
			Detail: fmt.Sprintf("pad length byte %d exceeds decrypted length %d", padLen, len(dst)),
		}
	}
	return dst[:len(dst)-padLen-1], nil
}

// makeTrailer builds the IPMI session trailer — integrity pad, pad
// length, next-header, and truncated HMAC-SHA1-96 — appended after the
// session header and (possibly encrypted) payload (Table 13-8).
func makeTrailer(src, key []byte) []byte {
	srcLen := len(src)
	padLen := 0
	if mod := (srcLen + 1 + 1 + integrityCheckSize) % 4; mod != 0 {
		padLen = 4 - mod
	}

	data := make([]byte, srcLen+padLen+2+integrityCheckSize)
	copy(data, src)
	for i := 0; i < padLen; i++ {
		data[srcLen+i] = 0xff
	}
	data[srcLen+padLen] = byte(padLen)
	data[srcLen+padLen+1] = 0x07 // next header: IPMI session trailer

	mac := hmac.New(sha1.New, key)
	mac.Write(data[:srcLen+padLen+2])
	authCode := mac.Sum(nil)
	copy(data[srcLen+padLen+2:], authCode[:integrityCheckSize])

	return data[srcLen:]
}

// validateTrailer recomputes the HMAC-SHA1-96 over everything but the
// trailing auth code and compares it against what the BMC sent. This is
// the one mandatory per-packet inbound authenticity check: every
// received authenticated packet must pass it before its payload is
// trusted.
func validateTrailer(src, key []byte) error {
	if l := len(src); l < integrityCheckSize {
		return &MalformedPacketError{
			Where:  "session trailer",
			Detail: fmt.Sprintf("%d bytes is too short to contain an auth code", l),
		}
	}

	authCode := src[len(src)-integrityCheckSize:]
	mac := hmac.New(sha1.New, key)
	mac.Write(src[:len(src)-integrityCheckSize])

	if generated := mac.Sum(nil); !hmac.Equal(authCode, generated[:integrityCheckSize]) {
		return &MalformedPacketError{
			Where: "session trailer",
			Detail: fmt.Sprintf("auth code mismatch: received %s, computed %s",
				hex.EncodeToString(authCode), hex.EncodeToString(generated[:integrityCheckSize])),
		}
	}

	return nil
}
