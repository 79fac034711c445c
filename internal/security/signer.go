package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// VerificationRoute identifica la ruta de verificacion dentro del payload firmado.
const VerificationRoute = "verification.verify"

var ErrSigningKeyTooShort = errors.New("signing key must be at least 32 bytes")

// Signer firma payloads y los compara en tiempo constante.
type Signer interface {
	Sign(payload string) string
	Equal(a, b string) bool
}

// HMACSigner firma con HMAC-SHA256 usando la clave de la aplicacion.
type HMACSigner struct {
	key []byte
}

func NewHMACSigner(key string) (*HMACSigner, error) {
	if len(key) < 32 {
		return nil, ErrSigningKeyTooShort
	}
	return &HMACSigner{key: []byte(key)}, nil
}

func (s *HMACSigner) Sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *HMACSigner) Equal(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// LinkPayload arma la representacion canonica que se firma para un link de verificacion.
// El orden de los campos es fijo para que emision y verificacion coincidan.
func LinkPayload(route string, expires int64, userID int64, emailHash string) string {
	var b strings.Builder
	b.WriteString(route)
	b.WriteString("?expires=")
	b.WriteString(strconv.FormatInt(expires, 10))
	b.WriteString("&hash=")
	b.WriteString(emailHash)
	b.WriteString("&id=")
	b.WriteString(strconv.FormatInt(userID, 10))
	return b.String()
}
