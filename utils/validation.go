package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	msisdnRegex = regexp.MustCompile(`^254\d{9}$`)
	validate    = validator.New()
)

func init() {
	validate.RegisterValidation("ke_msisdn", validateKenyanMSISDN)
}

func validateKenyanMSISDN(fl validator.FieldLevel) bool {
	return msisdnRegex.MatchString(fl.Field().String())
}

// NormalizePhone rewrites local Kenyan formats (07XXXXXXXX, +2547XXXXXXXX)
// into the 2547XXXXXXXX form the gateway expects. Other input is returned trimmed.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	switch {
	case strings.HasPrefix(phone, "+"):
		return phone[1:]
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		return KenyaDialCode + phone[1:]
	}
	return phone
}

// ValidateStruct runs the `validate` tags on payload and returns one error
// listing every failing field.
func ValidateStruct(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "ke_msisdn":
		return field + " must be a Kenyan number in the form 2547XXXXXXXX"
	case "email":
		return field + " must be a valid email address"
	case "gte":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " failed " + fe.Tag() + " validation"
	}
}
