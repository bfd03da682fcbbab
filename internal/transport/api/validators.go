package api

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var registerOnce sync.Once

// validateMaxBytes в отличии от тэга max который проверяет длину рун, - проверят длину байт в поле.
func validateMaxBytes(fl validator.FieldLevel) bool {
	param := fl.Param() // получаем значение из тега
	maxBytes, err := strconv.Atoi(param)
	if err != nil {
		return false
	}

	// нужно убедится что значение поля - строка.
	str, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return len([]byte(str)) <= maxBytes
}

// registerValidators регистрирует кастомные теги в валидаторе gin. Валидатор глобальный, поэтому
// регистрация выполняется один раз на процесс.
func registerValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("validator registration: unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if regErr := v.RegisterValidation("max_bytes", validateMaxBytes); regErr != nil {
			err = fmt.Errorf("validator registration: %s", regErr.Error())
			return
		}
		// notblank отсекает строки из одних пробелов, которые пропускает required.
		if regErr := v.RegisterValidation("notblank", validators.NotBlank); regErr != nil {
			err = fmt.Errorf("validator registration: %s", regErr.Error())
		}
	})
	return err
}
