package health

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/theirongolddev/cashpulse/internal/model"
)

var validate = NewValidator()

// NewValidator returns a validator with the "finite" tag registered and
// JSON field names in error namespaces.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every record in s and returns the first problem found as
// a *ValidationError, accounts first, then transactions, then debts.
func Validate(s model.Snapshot) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Kind: "snapshot", Index: -1, Reason: err.Error()}
	}
	return FromFieldError(verrs[0])
}

// FromFieldError converts a validator field error into a *ValidationError,
// reading the list kind and index from the error's namespace.
func FromFieldError(fe validator.FieldError) *ValidationError {
	ve := &ValidationError{Kind: "snapshot", Index: -1, Field: fe.Field(), Reason: reason(fe)}

	// Namespace looks like "Snapshot.transactions[3].amount".
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) >= 3 {
		seg := parts[len(parts)-2]
		if open := strings.IndexByte(seg, '['); open > 0 && strings.HasSuffix(seg, "]") {
			if idx, err := strconv.Atoi(seg[open+1 : len(seg)-1]); err == nil {
				ve.Index = idx
			}
			seg = seg[:open]
		}
		ve.Kind = strings.TrimSuffix(seg, "s")
	} else if len(parts) == 2 {
		ve.Kind = strings.ToLower(parts[0])
	}
	return ve
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "finite":
		return "must be a finite number"
	case "gte":
		return "must be >= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
