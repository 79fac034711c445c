// Package response adapta un domain.Outcome a los dos formatos que exponen
// las rutas: el JSON de la API y el payload de las rutas web.
package response

import (
	"net/http"

	"auth-admin/internal/domain"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIPayload es la respuesta de las rutas /api.
type APIPayload struct {
	Status    string           `json:"status"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	ErrorCode domain.ErrorCode `json:"error_code,omitempty"`
}

// WebPayload es la respuesta de las rutas web.
type WebPayload struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	User     *domain.User `json:"user,omitempty"`
	Redirect string       `json:"redirect,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// API convierte el resultado en el formato de la API.
func API(o domain.Outcome) APIPayload {
	if !o.Success {
		return APIPayload{
			Status:    StatusError,
			Message:   o.Message,
			ErrorCode: o.Code,
		}
	}
	data := map[string]any{}
	if o.User != nil {
		data["user"] = o.User
	}
	if o.Email != "" {
		data["email"] = o.Email
	}
	if len(data) == 0 {
		data = nil
	}
	return APIPayload{
		Status:  StatusSuccess,
		Message: o.Message,
		Data:    data,
	}
}

// Web convierte el resultado en el formato web. redirect solo se incluye en
// respuestas exitosas.
func Web(o domain.Outcome, redirect string) WebPayload {
	if !o.Success {
		return WebPayload{
			Success: false,
			Message: o.Message,
			Errors:  []string{o.Message},
		}
	}
	return WebPayload{
		Success:  true,
		Message:  o.Message,
		User:     o.User,
		Redirect: redirect,
	}
}

var statusByCode = map[domain.ErrorCode]int{
	domain.CodeUserNotFound:            http.StatusNotFound,
	domain.CodeInvalidVerificationLink: http.StatusBadRequest,
	domain.CodeInvalidResetToken:       http.StatusBadRequest,
	domain.CodeValidationFailed:        http.StatusUnprocessableEntity,
	domain.CodeRateLimited:             http.StatusTooManyRequests,
	domain.CodeInvalidCredentials:      http.StatusUnauthorized,
	domain.CodeUnauthenticated:         http.StatusUnauthorized,
	domain.CodeForbidden:               http.StatusForbidden,
	domain.CodeEmailTaken:              http.StatusConflict,
	domain.CodeSystemError:             http.StatusInternalServerError,
}

// HTTPStatus elige el codigo HTTP para un resultado.
func HTTPStatus(o domain.Outcome) int {
	if o.Success {
		return http.StatusOK
	}
	if status, ok := statusByCode[o.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
