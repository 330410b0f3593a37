package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire name rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// maxbytes bounds the encoded length of a string. bcrypt rejects
	// passwords longer than 72 bytes, whatever their character count.
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Details []ErrorDetail
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, strings.Join(d.Loc, ".")+": "+d.Msg)
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPayload
}

// Validate checks payload against its `validate` struct tags.
func Validate(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	details := make([]ErrorDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fieldDetail(fe))
	}
	return &ValidationError{Details: details}
}

func fieldDetail(fe validator.FieldError) ErrorDetail {
	loc := []string{"body", fe.Field()}
	switch fe.Tag() {
	case "required":
		return ErrorDetail{Type: "missing", Msg: "Field required", Loc: loc}
	case "min":
		return ErrorDetail{Type: "string_too_short", Msg: fmt.Sprintf("String should have at least %s characters", fe.Param()), Loc: loc}
	case "max":
		return ErrorDetail{Type: "string_too_long", Msg: fmt.Sprintf("String should have at most %s characters", fe.Param()), Loc: loc}
	case "maxbytes":
		return ErrorDetail{Type: "string_too_long", Msg: fmt.Sprintf("String should have at most %s bytes", fe.Param()), Loc: loc}
	case "email":
		return ErrorDetail{Type: "value_error", Msg: "value is not a valid email address", Loc: loc}
	default:
		return ErrorDetail{Type: "value_error", Msg: fmt.Sprintf("failed on the '%s' rule", fe.Tag()), Loc: loc}
	}
}

// Decode reads a JSON body, or a urlencoded/multipart form body when the
// request says so, into payload. Validation is left to the caller.
func Decode(r *http.Request, payload interface{}) *AppError {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return badBody()
		}
		decodeForm(r, payload)
		return nil
	default:
		if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
			return badBody()
		}
		return nil
	}
}

func badBody() *AppError {
	return NewAppError(http.StatusUnprocessableEntity, "Invalid request body", nil,
		ErrorDetail{Type: "json_invalid", Msg: "Invalid request body", Loc: []string{"body"}})
}

// decodeForm copies form values into the string fields of the struct
// pointed to by payload, matching on the `form` tag.
func decodeForm(r *http.Request, payload interface{}) {
	v := reflect.ValueOf(payload)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("form")
		if name == "" || v.Field(i).Kind() != reflect.String {
			continue
		}
		v.Field(i).SetString(r.PostForm.Get(name))
	}
}
