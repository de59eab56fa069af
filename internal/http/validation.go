package http

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hunter-web/internal/service"
)

var registerValidators sync.Once

// setupValidators adds the "username" tag to gin's validator engine.
func setupValidators() {
	registerValidators.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return service.ValidUsername(fl.Field().String())
		})
	})
}

// bindingMessage returns the client message for a failed JSON bind. Missing
// fields and malformed bodies share one message; rule violations are
// reported per field.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				continue
			case "username":
				return "username must be 3-32 letters, digits, '_' or '-'"
			default:
				return fe.Field() + " is invalid"
			}
		}
	}
	return invalidJSONBody
}

const invalidJSONBody = "Invalid JSON body"
