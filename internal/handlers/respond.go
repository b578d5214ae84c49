package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maynagashev/calculations/internal/calculator"
	"github.com/maynagashev/calculations/internal/models"
)

const maxBodyBytes = 1 << 20

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError описывает ошибку конкретного поля запроса.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования ответа: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON читает JSON-тело запроса. Неизвестные поля игнорируются.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("пустое тело запроса")
		}
		return err
	}
	return nil
}

// requestValidator проверяет тела запросов по тегам `validate`.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateCalculationCreate, models.CalculationCreateRequest{})
	return &requestValidator{v: v}
}

// validateCalculationCreate проверяет тип вычисления и число аргументов для него
// до того, как запрос попадет в вычислитель.
func validateCalculationCreate(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(models.CalculationCreateRequest)
	if !ok || req.Type == "" || req.Inputs == nil {
		return
	}
	if !req.Type.IsValid() {
		sl.ReportError(req.Type, "type", "Type", "calctype", "")
		return
	}
	if err := calculator.CheckArity(req.Type, len(req.Inputs)); err != nil {
		sl.ReportError(req.Inputs, "inputs", "Inputs", "arity", string(req.Type))
	}
}

// Validate возвращает список ошибок полей или nil, если запрос корректен.
func (rv *requestValidator) Validate(req any) []FieldError {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field required"
	case "email":
		return "Value is not a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("At least %s items required", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "calctype":
		return fmt.Sprintf("Unknown calculation type; expected one of %s", typeList())
	case "arity":
		t := calculator.Type(fe.Param())
		minArgs, maxArgs, _ := calculator.Arity(t)
		if minArgs == maxArgs {
			return fmt.Sprintf("%s requires exactly %d inputs", t, minArgs)
		}
		return fmt.Sprintf("%s requires at least %d inputs", t, minArgs)
	}
	return fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
}

func typeList() string {
	types := calculator.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// writeValidationErrors отвечает 422 со списком ошибок полей.
func writeValidationErrors(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Detail: "Validation error",
		Errors: errs,
	})
}
