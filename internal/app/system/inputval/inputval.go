// internal/app/system/inputval/inputval.go
package inputval

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule, with a message fit for an API client.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Result collects the field errors from Validate.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return r != nil && len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if !r.HasErrors() {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, fe := range r.Errors {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil when valid, otherwise an error wrapping apperr.ErrValidation.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", apperr.ErrValidation, r.All())
}

var (
	v     *validator.Validate
	vOnce sync.Once
)

func get() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Field names in messages come from the label tag, then json.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("recommendstatus", func(fl validator.FieldLevel) bool {
			return models.IsRecommendStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("reviewstatus", func(fl validator.FieldLevel) bool {
			return models.IsReviewStatus(fl.Field().String())
		})
	})
	return v
}

// Validate checks s against its validate tags.
func Validate(s any) *Result {
	res := &Result{}
	err := get().Struct(s)
	if err == nil {
		return res
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return res
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", name, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater.", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return name + " must be a valid id."
	case "recommendstatus":
		return name + " must be one of ADOPT, TRIAL, ASSESS, HOLD."
	case "reviewstatus":
		return name + " must be one of PENDING, APPROVED, REJECTED."
	default:
		return name + " is invalid."
	}
}

// IsValidObjectID reports whether s (trimmed) is a 24-hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s and trims it. Entities are decoded so
// "R&D" is stored as typed.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
