package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type validatorImpl struct {
	v *validator.Validate
}

var (
	defaultOnce sync.Once
	defaultV    *validatorImpl
)

// New returns a validator with the clinic specific tags registered.
func New() Validator {
	defaultOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		register(v)
		defaultV = &validatorImpl{v: v}
	})
	return defaultV
}

func (v *validatorImpl) Validate(obj interface{}) error {
	if err := v.v.Struct(obj); err != nil {
		return errors.New(FormatError(err))
	}
	return nil
}

// RegisterGinValidations installs the custom tags on gin's binding engine so
// `binding:"timeofday"` works in request structs.
func RegisterGinValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("timeofday", validateTimeOfDay)
	_ = v.RegisterValidation("civildate", validateCivilDate)
	_ = v.RegisterValidation("apptstatus", validateAppointmentStatus)
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if _, err := time.Parse("15:04", s); err == nil {
		return true
	}
	_, err := time.Parse("15:04:05", s)
	return err == nil
}

func validateCivilDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

var appointmentStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"completed": true,
	"cancelled": true,
	"no_show":   true,
}

func validateAppointmentStatus(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || appointmentStatuses[s]
}

// FormatError turns validator errors into a single readable message.
func FormatError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "timeofday":
			msgs = append(msgs, fmt.Sprintf("%s must be a time in HH:MM format", fe.Field()))
		case "civildate":
			msgs = append(msgs, fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field()))
		case "apptstatus":
			msgs = append(msgs, fmt.Sprintf("%s must be one of pending, confirmed, completed, cancelled, no_show", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
