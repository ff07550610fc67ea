package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/user-service/pkg/util"
)

const (
	bodyKey   = "validated_body"
	paramsKey = "validated_params"

	// InvalidBodyMessage is returned when the request body cannot be decoded.
	InvalidBodyMessage = "Invalid request body"
)

// messages maps "<field>.<rule>" to the text returned to the client.
var messages = map[string]string{
	"fullName.required": "Full name is required",
	"fullName.notblank": "Full name is required",
	"email.required":    "Email is not valid",
	"email.email":       "Email is not valid",
	"password.required": "Password should be at least 6 characters long",
	"password.min":      "Password should be at least 6 characters long",
	"id.required":       "User ID is required",
	"id.uuid_rfc4122":   "User ID must be a valid UUID",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(fieldName)
	return v
}

// fieldName reports a field under its wire name so messages can be keyed by it.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "params", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// Struct validates v and returns the first failing rule as a validation error.
// Fields are checked in declaration order and rules left to right.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewInternalError(err)
	}
	return apperrors.NewValidationError(Message(verrs[0]), nil)
}

// Message returns the client-facing text for a failed rule.
func Message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}

// Body decodes the JSON body into T, validates it and stores it for the handler.
// An empty body decodes to the zero value so that partial updates may send nothing.
func Body[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil {
				return apperrors.NewValidationError(InvalidBodyMessage, nil)
			}
		}
		if err := Struct(req); err != nil {
			return err
		}
		c.Locals(bodyKey, req)
		return c.Next()
	}
}

// Params binds the route parameters into T, validates them and stores them for the handler.
func Params[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := new(T)
		if err := c.ParamsParser(req); err != nil {
			return apperrors.NewValidationError(InvalidBodyMessage, nil)
		}
		if err := Struct(req); err != nil {
			return err
		}
		c.Locals(paramsKey, req)
		return c.Next()
	}
}

// BodyFromContext returns the body stored by Body[T].
func BodyFromContext[T any](c *fiber.Ctx) (*T, bool) {
	req, ok := c.Locals(bodyKey).(*T)
	return req, ok
}

// ParamsFromContext returns the parameters stored by Params[T].
func ParamsFromContext[T any](c *fiber.Ctx) (*T, bool) {
	req, ok := c.Locals(paramsKey).(*T)
	return req, ok
}
