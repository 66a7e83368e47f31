package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/stockops/backend/internal/domain/picking"
)

// RegisterValidators installs custom request validators on gin's binding engine
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	return v.RegisterValidation("picking_strategy", func(fl validator.FieldLevel) bool {
		return picking.StrategyType(fl.Field().String()).IsValid()
	})
}
