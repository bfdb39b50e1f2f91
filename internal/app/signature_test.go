package app

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	secret := "sk_test_secret"

	if !VerifySignature(body, signBody(body, secret), secret) {
		t.Fatal("expected a correctly signed body to verify")
	}
}

func TestVerifySignatureAcceptsSurroundingWhitespace(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	secret := "sk_test_secret"

	if !VerifySignature(body, "  "+signBody(body, secret)+"\n", secret) {
		t.Fatal("expected a signature with surrounding whitespace to verify")
	}
}

func TestVerifySignatureRejections(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_1"}}`)
	secret := "sk_test_secret"
	valid := signBody(body, secret)

	// Flip one bit of the body.
	mutatedBody := append([]byte(nil), body...)
	mutatedBody[0] ^= 0x01

	// Flip one hex digit of the signature.
	mutatedSig := []byte(valid)
	if mutatedSig[0] == 'a' {
		mutatedSig[0] = 'b'
	} else {
		mutatedSig[0] = 'a'
	}

	tests := []struct {
		name   string
		body   []byte
		header string
		secret string
	}{
		{name: "absent header", body: body, header: "", secret: secret},
		{name: "whitespace-only header", body: body, header: "   ", secret: secret},
		{name: "non-hex header", body: body, header: "not-a-signature", secret: secret},
		{name: "mutated body", body: mutatedBody, header: valid, secret: secret},
		{name: "mutated signature", body: body, header: string(mutatedSig), secret: secret},
		{name: "wrong secret", body: body, header: valid, secret: "sk_live_other"},
		{name: "truncated signature", body: body, header: valid[:64], secret: secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.body, tt.header, tt.secret) {
				t.Fatal("expected verification to fail")
			}
		})
	}
}
