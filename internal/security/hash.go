package security

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher calcula un digest unidireccional y sin clave.
type Hasher interface {
	Digest(input string) string
}

// SHA1Hasher liga los links de verificacion al email actual del usuario.
type SHA1Hasher struct{}

func (SHA1Hasher) Digest(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// HashToken es el digest con el que se persisten los tokens de reseteo.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compara strings sin filtrar la posicion de la primera diferencia.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
