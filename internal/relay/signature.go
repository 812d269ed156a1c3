package relay

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SignatureHeader carries the HS256 JWS the form platform signs each event with.
const SignatureHeader = "X-Webhook-Signature"

// ErrInvalidSignature is returned when an event is unsigned or its signature
// does not match the secret and body.
var ErrInvalidSignature = errors.New("relay: invalid webhook signature")

// webhookClaims binds the token to the event body.
type webhookClaims struct {
	SHA256 string `json:"sha256"`
	jwt.RegisteredClaims
}

// VerifySignature checks token against secret and confirms its sha256 claim
// is the hex digest of body.
func VerifySignature(secret, token string, body []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidSignature, SignatureHeader)
	}

	claims := webhookClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	sum := sha256.Sum256(body)
	want := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(claims.SHA256)), []byte(want)) != 1 {
		return fmt.Errorf("%w: body digest mismatch", ErrInvalidSignature)
	}
	return nil
}
