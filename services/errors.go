package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound 所有 ErrXxxNotFound 都满足 errors.Is(err, ErrNotFound)
var ErrNotFound = errors.New("not found")

type notFound string

func (e notFound) Error() string { return string(e) }

func (e notFound) Is(target error) bool { return target == ErrNotFound }

var (
	ErrContactNotFound  error = notFound("no contact found with this id")
	ErrTicketNotFound   error = notFound("no ticket found with this id")
	ErrUserNotFound     error = notFound("no user found with this id")
	ErrSettingNotFound  error = notFound("no setting found with this key")
	ErrOrderNotFound    error = notFound("no order found with this id")
	ErrLocationNotFound error = notFound("no location found with this id")
)

var (
	ErrNoDefaultConnector   = errors.New("no default whatsapp found, check connection page")
	ErrInvalidContactNumber = errors.New("the supplied number is not a valid whatsapp number")
	ErrConnectorUnavailable = errors.New("could not check whatsapp contact, check connection page")
	ErrContactNumberTaken   = errors.New("a contact with this number already exists")

	ErrForbidden          = errors.New("only administrators can perform this action")
	ErrSignupDisabled     = errors.New("user creation is disabled by administrator")
	ErrLastAdminProtected = errors.New("there must be at least one admin user")
	ErrEmailTaken         = errors.New("an user with this email already exists")

	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	ErrNoLinkedAccount     = errors.New("no agent account uses this email")
)

// ValidationError 请求参数或请求体不合法
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// fromValidator 取第一个字段错误，转换为 ValidationError
func fromValidator(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := errs[0]
	field := jsonFieldName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "min":
		return invalid(field, "must be at least %s characters", fe.Param())
	case "max":
		return invalid(field, "must be at most %s characters", fe.Param())
	case "email":
		return invalid(field, "must be a valid email")
	case "oneof":
		return invalid(field, "must be one of [%s]", fe.Param())
	case "phone":
		return invalid(field, "must contain 8 to 15 digits")
	}
	return invalid(field, "failed on %s", fe.Tag())
}

// jsonFieldName CreateContactInput.extraInfo[0].key -> extraInfo[0].key
func jsonFieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
