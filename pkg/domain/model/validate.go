package model

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/types"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("response_status", func(fl validator.FieldLevel) bool {
			s := types.ResponseStatus(fl.Field().String())
			return s == "" || s.IsValid()
		})
	})
	return validate
}

// validateStruct runs tag based validation and converts the first failure
// into ErrValidation carrying the offending field name.
func validateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return goerr.Wrap(ErrValidation, "invalid "+fe.Field(),
			goerr.V(FieldKey, fe.Field()),
			goerr.V("rule", fe.Tag()),
		)
	}
	return goerr.Wrap(ErrValidation, err.Error())
}
