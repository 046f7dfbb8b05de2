package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
)

// MaxJSONBody is the default cap applied to decoded request bodies.
const MaxJSONBody int64 = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

type decodeOptions struct {
	limit         int64
	allowUnknown  bool
	skipValidator bool
}

// Option tweaks a single DecodeJSONBody call.
type Option func(*decodeOptions)

// WithLimit overrides MaxJSONBody.
func WithLimit(n int64) Option {
	return func(o *decodeOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// AllowUnknownFields lets clients send keys the destination does not declare.
func AllowUnknownFields() Option {
	return func(o *decodeOptions) { o.allowUnknown = true }
}

// SkipValidation decodes without running struct tag rules.
func SkipValidation() Option {
	return func(o *decodeOptions) { o.skipValidator = true }
}

// DecodeJSONBody reads exactly one JSON object from the request into dest and
// runs its `validate` tags. Every failure is a typed validation error whose
// details are keyed by the JSON field name.
func DecodeJSONBody(r *http.Request, dest any, opts ...Option) error {
	o := decodeOptions{limit: MaxJSONBody}
	for _, opt := range opts {
		opt(&o)
	}

	body := http.MaxBytesReader(nil, r.Body, o.limit)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	decoder := json.NewDecoder(body)
	if !o.allowUnknown {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(dest); err != nil {
		return decodeError(err, o.limit)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return decodeError(err, o.limit)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single JSON object")
	}

	if o.skipValidator {
		return nil
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func decodeError(err error, limit int64) error {
	var (
		tooLarge  *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return pkgerrors.Newf(pkgerrors.CodePayloadTooLarge, "request body exceeds %d bytes", limit).
			WithDetails(map[string]any{"maxBytes": limit})
	case errors.Is(err, io.EOF):
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body is truncated")
	case errors.As(err, &syntaxErr):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{typeErr.Field: "must be a " + typeErr.Type.Kind().String()})
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{strings.Trim(field, `"`): "is not allowed"})
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
}

func formatValidationErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		if _, seen := details[fieldErr.Field()]; seen {
			continue
		}
		details[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "uuid", "uuid4":
		return "must be a valid uuid"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "dive":
		return "contains an invalid entry"
	}
	return "is invalid"
}
