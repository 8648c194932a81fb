package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	MessageSuccess    = "Success"
	MessageBadRequest = "BAD_REQUEST"
)

var validate = newValidator()

type Struct any

// Envelope wraps every response body
type Envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// Errors without details carry empty list as data
var emptyData = []any{}

func JSON(w http.ResponseWriter, data any) {
	jsonWithStatus(w, Envelope{Status: http.StatusOK, Data: data, Message: MessageSuccess}, http.StatusOK)
}

// Render ServiceError
func ServiceError(w http.ResponseWriter, message string, code int) {
	ServiceErrorWithData(w, message, code, emptyData)
}

func ServiceErrorWithData(w http.ResponseWriter, message string, code int, data any) {
	jsonWithStatus(w, Envelope{Status: code, Data: data, Message: message}, code)
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, err error) {
	var detail string

	// Try to provide more specific error message based on error type
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		detail = fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		detail = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	ServiceErrorWithData(w, MessageBadRequest, http.StatusBadRequest, map[string]string{"body": detail})
}

// Render ValidationErrors, data maps field names to messages
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	fields := make(map[string]string, len(errs))

	// Create user-friendly error messages based on validation tag
	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required", "notblank":
			message = "This field is required"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "max":
			message = fmt.Sprintf("Value is too long (maximum %s)", fieldError.Param())
		default:
			message = "Invalid value"
		}

		fields[fieldError.Field()] = message
	}

	ServiceErrorWithData(w, MessageBadRequest, http.StatusBadRequest, fields)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		// pretty sure cast will be ok cause expecting T is valid struct
		errs := err.(validator.ValidationErrors)
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// jsonWithStatus sends data as json and enforces status code
func jsonWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
