/**
 * @description
 * This file implements webhook signature verification for Paystack. Paystack
 * signs the exact raw request body with HMAC-SHA512 using the account's
 * secret key and sends the hex digest in the x-paystack-signature header.
 * Verification must happen before the body is interpreted as JSON, so that
 * unauthenticated bytes never reach routing or business logic.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha512, encoding/hex: Standard Go libraries.
 */

package app

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// VerifySignature reports whether signatureHeader is the hex-encoded
// HMAC-SHA512 of body under secret. A missing, empty, or malformed header is
// a mismatch, not an error. The comparison is constant-time.
func VerifySignature(body []byte, signatureHeader, secret string) bool {
	header := strings.TrimSpace(signatureHeader)
	if header == "" {
		return false
	}

	provided, err := hex.DecodeString(header)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
