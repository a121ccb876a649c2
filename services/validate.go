package services

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

// NewValidator 字段名使用 json tag，额外注册 phone 规则
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

var validate = NewValidator()

func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return fromValidator(err)
	}
	return nil
}

// Validate 供 HTTP 层校验请求结构，错误为 *ValidationError
func Validate(s interface{}) error {
	return validateStruct(s)
}
