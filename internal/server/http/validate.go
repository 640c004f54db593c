package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// Rules shared by request structs and partial updates. Struct tags repeat
// them because tags cannot reference constants.
const (
	nameRules     = "required,max=50"
	emailRules    = "required,email,max=100"
	phoneRules    = "required,max=20"
	infoRules     = "max=255"
	birthdayRules = "datetime=" + dateLayout
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt ignores bytes past 72, so passwords are limited in bytes, not runes.
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// violations collects field errors in the order they were found.
type violations []fieldError

func (v *violations) add(field, msg string) {
	*v = append(*v, fieldError{Field: field, Message: msg})
}

func (v violations) empty() bool { return len(v) == 0 }

// addValidation appends the failures held in err. Anything other than
// validator.ValidationErrors is reported against fallback.
func (v *violations) addValidation(fallback string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.add(fallback, err.Error())
		return
	}
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = fallback
		}
		v.add(field, describe(fe))
	}
}

// checkStruct validates s by its tags; failures come back in field order.
func checkStruct(s any) violations {
	var v violations
	if err := validate.Struct(s); err != nil {
		v.addValidation("body", err)
	}
	return v
}

// check validates a single value against rules and reports under field.
func (v *violations) check(field string, value any, rules string) bool {
	if err := validate.Var(value, rules); err != nil {
		v.addValidation(field, err)
		return false
	}
	return true
}

func describe(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

// intQuery reads an integer query parameter, falling back to def when the
// parameter is absent. hi <= 0 means unbounded.
func (v *violations) intQuery(r *http.Request, name string, def, lo, hi int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.add(name, "must be an integer")
		return def
	}
	rules := fmt.Sprintf("gte=%d", lo)
	if hi > 0 {
		rules += fmt.Sprintf(",lte=%d", hi)
	}
	v.check(name, n, rules)
	return n
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func writeBadBody(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, []fieldError{{Field: "body", Message: err.Error()}})
}

func writeViolations(w http.ResponseWriter, v violations) {
	writeError(w, http.StatusBadRequest, v)
}
