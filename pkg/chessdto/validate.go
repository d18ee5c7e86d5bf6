package chessdto

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Decode unmarshals the envelope payload into dst (a pointer to one of the
// inbound payload structs) and validates its tags. A missing payload
// decodes as JSON null.
func Decode(env Envelope, dst any) error {
	raw := env.Data
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", env.Event, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validate %s: %w", env.Event, describe(err))
	}
	return nil
}

// ValidateEnvelope checks the envelope itself.
func ValidateEnvelope(env Envelope) error {
	if err := validate.Struct(env); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var details strings.Builder
	for _, fe := range verrs {
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		switch fe.Tag() {
		case "required":
			details.WriteString(fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			if fe.Type().Kind() == reflect.String {
				details.WriteString(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
			} else {
				details.WriteString(fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
			}
		case "printascii":
			details.WriteString(fmt.Sprintf("%s must be printable ASCII", fe.Field()))
		default:
			details.WriteString(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(details.String())
}
