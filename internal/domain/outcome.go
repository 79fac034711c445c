package domain

import "encoding/json"

// ErrorCode es el codigo estable que acompana a cada fallo.
type ErrorCode string

const (
	CodeUserNotFound            ErrorCode = "USER_NOT_FOUND"
	CodeInvalidVerificationLink ErrorCode = "INVALID_VERIFICATION_LINK"
	CodeInvalidResetToken       ErrorCode = "INVALID_RESET_TOKEN"
	CodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	CodeSystemError             ErrorCode = "SYSTEM_ERROR"
	CodeRateLimited             ErrorCode = "RATE_LIMITED"
	CodeInvalidCredentials      ErrorCode = "INVALID_CREDENTIALS"
	CodeEmailTaken              ErrorCode = "EMAIL_TAKEN"
	CodeForbidden               ErrorCode = "FORBIDDEN"
	CodeUnauthenticated         ErrorCode = "UNAUTHENTICATED"
)

// Mensajes visibles para el usuario.
const (
	MsgEmailVerified        = "電子郵件驗證成功"
	MsgEmailAlreadyVerified = "電子郵件已經驗證過了"
	MsgUserNotFound         = "找不到使用者"
	MsgInvalidVerification  = "驗證連結無效或已過期"
	MsgPasswordReset        = "密碼重設成功"
	MsgResetUserNotFound    = "找不到此電子郵件對應的使用者"
	MsgInvalidResetToken    = "密碼重設連結無效或已過期"
	MsgValidationFailed     = "輸入資料驗證失敗"
	MsgSystemError          = "系統發生錯誤，請稍後再試"
	MsgRateLimited          = "請求過於頻繁，請稍後再試"
	MsgInvalidCredentials   = "帳號或密碼錯誤"
	MsgEmailTaken           = "此電子郵件已被註冊"
	MsgForbidden            = "權限不足"
	MsgUnauthenticated      = "請先登入"
	MsgOK                   = "操作成功"
	MsgRegistered           = "註冊成功，請至信箱完成驗證"
	MsgLoggedIn             = "登入成功"
	MsgVerificationLinkSent = "驗證信已寄出"
	MsgResetLinkSent        = "密碼重設信已寄出"
	MsgCannotDeleteSelf     = "無法刪除自己的帳號"
	MsgUserDeleted          = "使用者已刪除"
	MsgUserUpdated          = "使用者已更新"
	MsgLoggedOut            = "已登出"
	MsgTokenRefreshed       = "權杖已更新"
)

var defaultMessages = map[ErrorCode]string{
	CodeUserNotFound:            MsgUserNotFound,
	CodeInvalidVerificationLink: MsgInvalidVerification,
	CodeInvalidResetToken:       MsgInvalidResetToken,
	CodeValidationFailed:        MsgValidationFailed,
	CodeSystemError:             MsgSystemError,
	CodeRateLimited:             MsgRateLimited,
	CodeInvalidCredentials:      MsgInvalidCredentials,
	CodeEmailTaken:              MsgEmailTaken,
	CodeForbidden:               MsgForbidden,
	CodeUnauthenticated:         MsgUnauthenticated,
}

// DefaultMessage devuelve el mensaje de catalogo para un codigo.
func DefaultMessage(code ErrorCode) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return MsgSystemError
}

// Outcome es el resultado canonico de un protocolo, independiente del transporte.
// Exactamente uno de los dos payloads esta poblado: User/Email en exito, Code en fallo.
type Outcome struct {
	Success bool
	Message string
	Code    ErrorCode
	User    *User
	Email   string
}

// Succeeded construye un resultado exitoso.
func Succeeded(message string, user *User, email string) Outcome {
	if message == "" {
		message = MsgOK
	}
	if email == "" && user != nil {
		email = user.Email
	}
	return Outcome{
		Success: true,
		Message: message,
		User:    user,
		Email:   email,
	}
}

// Failed construye un fallo tipado. Sin mensaje se usa el del catalogo.
func Failed(code ErrorCode, message string) Outcome {
	if code == "" {
		code = CodeSystemError
	}
	if message == "" {
		message = DefaultMessage(code)
	}
	return Outcome{
		Success: false,
		Message: message,
		Code:    code,
	}
}

type outcomeJSON struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ErrorCode *ErrorCode `json:"error_code"`
	User      *User      `json:"user,omitempty"`
	Email     string     `json:"email,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{
		Success: o.Success,
		Message: o.Message,
	}
	if o.Success {
		out.User = o.User
		out.Email = o.Email
	} else {
		code := o.Code
		out.ErrorCode = &code
	}
	return json.Marshal(out)
}
