package api

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rentshare-backend-go/internal/models"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("itemcondition", validateItemCondition); err != nil {
		return err
	}
	return v.RegisterValidation("phone", validatePhone)
}

func validateItemCondition(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, c := range models.ItemConditions {
		if c == value {
			return true
		}
	}
	return false
}

// validatePhone accepts digits with an optional leading +, ignoring spaces and dashes.
func validatePhone(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	cleaned := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r == ' ' || r == '-' {
			continue
		}
		cleaned = append(cleaned, r)
	}
	return phonePattern.MatchString(string(cleaned))
}
