package web

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// usernameRE matches the names allowed as profile branch prefixes:
// letters, digits, hyphens and underscores, starting with a letter or
// digit.
var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

var registerValidations sync.Once

// registerBindingRules installs the custom binding rules on gin's
// validator engine. Safe to call more than once.
func registerBindingRules() {
	registerValidations.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRE.MatchString(fl.Field().String())
		})
	})
}
