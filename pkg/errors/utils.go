package errors

import (
	"fmt"
	"strings"
)

// Common error constructors for quick use, all without an underlying cause.
func Internal(message string) *Error {
	return New(CommonInternal, message, nil)
}

func NotFound(message string) *Error {
	return New(CommonNotFound, message, nil)
}

func Validation(message string) *Error {
	return New(CommonValidation, message, nil)
}

func Timeout(message string) *Error {
	return New(CommonTimeout, message, nil)
}

func Unauthorized(message string) *Error {
	return New(CommonUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(CommonForbidden, message, nil)
}

func Conflict(message string) *Error {
	return New(CommonConflict, message, nil)
}

func Unsupported(message string) *Error {
	return New(CommonUnsupported, message, nil)
}

func InvalidInput(message string) *Error {
	return New(CommonInvalidInput, message, nil)
}

func AlreadyExists(message string) *Error {
	return New(CommonAlreadyExists, message, nil)
}

// Is reports whether err is one of our typed errors.
func Is(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// GetCode extracts the Code string from err, or "" if err isn't ours.
func GetCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code.String()
	}
	return ""
}

// FormatForLog renders err (code, message, context, cause) as a single log line.
func FormatForLog(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	parts := []string{
		fmt.Sprintf("code=%s", e.Code),
		fmt.Sprintf("message=%s", e.Message),
	}

	if keys := e.GetContextKeys(); len(keys) > 0 {
		var contextParts []string
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.GetContext(k)))
		}
		parts = append(parts, fmt.Sprintf("context=[%s]", strings.Join(contextParts, " ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	return strings.Join(parts, " ")
}
