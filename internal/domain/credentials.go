package domain

import "time"

// VerificationCredentials son los parametros de un link de verificacion firmado.
type VerificationCredentials struct {
	UserID    int64
	EmailHash string
	ExpiresAt int64
	Signature string
}

// ResetCredentials son los datos de un intento de cambio de contrasena.
type ResetCredentials struct {
	Email                   string
	NewPassword             string
	NewPasswordConfirmation string
	Token                   string
}

// TokenVerdict es el veredicto del almacen de tokens de reseteo.
type TokenVerdict int

const (
	TokenInvalid TokenVerdict = iota
	TokenValid
	TokenUserNotFound
)

func (v TokenVerdict) String() string {
	switch v {
	case TokenValid:
		return "TOKEN_VALID"
	case TokenUserNotFound:
		return "USER_NOT_FOUND"
	default:
		return "INVALID_TOKEN"
	}
}

type EventType string

const (
	EventUserRegistered    EventType = "user.registered"
	EventUserVerified      EventType = "user.verified"
	EventUserPasswordReset EventType = "user.password_reset"
)

// Event es un evento informativo de dominio.
type Event struct {
	Type       EventType `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
