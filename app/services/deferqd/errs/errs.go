// Package errs carries the trusted error type handlers return and the
// request validation support built on top of it.
package errs

import (
	"fmt"
	"net/http"
	"runtime"
)

// AppError represents a trusted error inside the system. Code and Message go
// to the client, the caller location only to the logs.
type AppError struct {
	Code     int               `json:"code"`
	Message  string            `json:"message"`
	FuncName string            `json:"-"`
	FileName string            `json:"-"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func (err *AppError) Error() string {
	return err.Message
}

// NewAppError creates an *AppError with the given status code and message.
func NewAppError(code int, message string) error {
	funcName, fileName := caller()
	return &AppError{
		Code:     code,
		Message:  message,
		FuncName: funcName,
		FileName: fileName,
	}
}

// NewAppErrorf creates an *AppError with a formatted message.
func NewAppErrorf(code int, format string, v ...any) error {
	funcName, fileName := caller()
	return &AppError{
		Code:     code,
		Message:  fmt.Sprintf(format, v...),
		FuncName: funcName,
		FileName: fileName,
	}
}

// NewAppValidationError creates an *AppError carrying the failed fields.
func NewAppValidationError(code int, message string, fields map[string]string) error {
	funcName, fileName := caller()
	return &AppError{
		Code:     code,
		Message:  message,
		FuncName: funcName,
		FileName: fileName,
		Fields:   fields,
	}
}

// NewAppInternalErr wraps any error into an internal server *AppError.
func NewAppInternalErr(err error) error {
	funcName, fileName := caller()
	return &AppError{
		Code:     http.StatusInternalServerError,
		Message:  err.Error(),
		FuncName: funcName,
		FileName: fileName,
	}
}

// caller resolves the constructor's caller, two frames up.
func caller() (funcName string, fileName string) {
	pc, filename, line, _ := runtime.Caller(2)
	return runtime.FuncForPC(pc).Name(), fmt.Sprintf("%s:%d", filename, line)
}
