package errcodes

import (
	"fmt"
	"net/http"
)

// Error is an API error. Handler renders it as
// {"error": {"code", "message", "status_code"}}.
type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func newError(status int, code, msg string) *Error {
	return &Error{HTTPCode: status, Message: msg, Code: code}
}

func (err *Error) Error() string {
	return err.Message
}

// As copies err into a *Error target.
func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	*te = *err
	return true
}

// Is reports whether target carries the same status, code and message.
func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && *te == *err
}

// Forbidden names the action the caller may not perform, e.g.
// Forbidden("Registration").
func Forbidden(action string) error {
	return newError(http.StatusForbidden, "forbidden", action+" is disabled on this server.")
}

// NotFound names the missing resource, e.g. NotFound("Book").
func NotFound(resource string) error {
	return newError(http.StatusNotFound, "not_found", resource+" not found.")
}

// UnsupportedMediaType is returned for request bodies that are not JSON or a
// form.
func UnsupportedMediaType() error {
	return newError(http.StatusUnsupportedMediaType, "unsupported_media_type", "Send JSON or form data.")
}

func UnknownParameter(param string) error {
	return newError(http.StatusUnprocessableEntity, "unknown_parameter", fmt.Sprintf("%q is not a known field.", param))
}

// ValidationTypeError is returned when a field holds the wrong JSON or query
// type.
func ValidationTypeError(msg string) error {
	return newError(http.StatusUnprocessableEntity, "validation_type_error", msg)
}

func ValidationError(msg string) error {
	return newError(http.StatusUnprocessableEntity, "validation_error", msg)
}

func MalformedPayload() error {
	return newError(http.StatusBadRequest, "malformed_payload", "Request body could not be parsed.")
}

func EmptyRequestBody() error {
	return newError(http.StatusBadRequest, "empty_request_body", "Request body is required.")
}

// Unauthorized returns a 401 error. The message is shown to the client as-is.
func Unauthorized(msg string) error {
	return newError(http.StatusUnauthorized, "unauthorized", msg)
}

func BadRequest(msg string) error {
	return newError(http.StatusBadRequest, "bad_request", msg)
}

func Conflict(msg string) error {
	return newError(http.StatusConflict, "conflict", msg)
}

// UnsupportedFileType is returned for uploads whose extension or content is
// not a known book container.
func UnsupportedFileType(name string) error {
	return newError(http.StatusUnsupportedMediaType, "unsupported_file_type", fmt.Sprintf("%q is not a supported book file.", name))
}

func PayloadTooLarge(limit int64) error {
	return newError(http.StatusRequestEntityTooLarge, "payload_too_large", fmt.Sprintf("File exceeds the %d byte upload limit.", limit))
}
