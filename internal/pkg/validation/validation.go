package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperror "mouralws/internal/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Usa o nome JSON do campo nas mensagens de erro.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct valida a struct pelas tags `validate` e devolve um ValidationError com a
// primeira regra violada, ou nil.
func Struct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperror.NewValidationError(message(fieldErrs[0]))
	}
	return apperror.NewValidationError(err.Error())
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("O campo '%s' é obrigatório.", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("O campo '%s' deve ser um UUID válido.", field)
	case "email":
		return fmt.Sprintf("O campo '%s' deve ser um e-mail válido.", field)
	case "min":
		return fmt.Sprintf("O campo '%s' deve ter no mínimo %s.", field, fe.Param())
	case "max":
		return fmt.Sprintf("O campo '%s' deve ter no máximo %s.", field, fe.Param())
	case "gte":
		return fmt.Sprintf("O campo '%s' deve ser maior ou igual a %s.", field, fe.Param())
	case "lte":
		return fmt.Sprintf("O campo '%s' deve ser menor ou igual a %s.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("O campo '%s' deve ser um de: %s.", field, fe.Param())
	case "len":
		return fmt.Sprintf("O campo '%s' deve ter exatamente %s caracteres.", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("O campo '%s' deve conter apenas dígitos.", field)
	default:
		return fmt.Sprintf("O campo '%s' é inválido (%s).", field, fe.Tag())
	}
}
