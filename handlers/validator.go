package handlers

import "github.com/EzzalddeenAli/recticket/services"

// CustomValidator 注册为 echo.Validator，c.Validate 返回 *services.ValidationError
type CustomValidator struct{}

func (cv *CustomValidator) Validate(i interface{}) error {
	return services.Validate(i)
}
