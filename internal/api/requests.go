package api

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vytor/cftracker/internal/errors"
	"github.com/vytor/cftracker/internal/services"
)

// Codeforces handles are 3 to 24 latin letters, digits, underscores, dots or dashes.
var handleRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,24}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cfhandle", func(fl validator.FieldLevel) bool {
		return handleRe.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	return v
}

type studentRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Handle      string `json:"handle" validate:"required,cfhandle"`
	SyncEnabled *bool  `json:"sync_enabled"`
}

func (req studentRequest) input() services.StudentInput {
	return services.StudentInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Handle:      req.Handle,
		SyncEnabled: req.SyncEnabled,
	}
}

// validateRequest reports the first failing field as a validation error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValidationError(fe.Field(), describe(fe))
	}
	return errors.NewBadRequestError(err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "cfhandle":
		return "must be a valid Codeforces handle"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
