package http

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"auth-admin/internal/security"
)

var registerOnce sync.Once

// RegisterValidators registra las reglas propias en el validador de gin.
// Es seguro llamarla mas de una vez. Corre al armar el router, asi que un
// fallo aca es un error de arranque y entra en panic.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected binding validator engine %T", binding.Validator.Engine()))
		}
		if err := registerRules(v); err != nil {
			panic(err)
		}
	})
}

func registerRules(v *validator.Validate) error {
	err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return security.IsStrongPassword(fl.Field().String())
	})
	if err != nil {
		return fmt.Errorf("register strongpassword: %w", err)
	}
	return nil
}

// validationFields devuelve los campos que fallaron, para logging.
func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}
	return fields
}
