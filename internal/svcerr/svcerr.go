// Package svcerr provides the coded error type shared by the domain services.
package svcerr

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Error pairs a stable "<operation>.<reason>" code with the underlying cause.
type Error struct {
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Code() string {
	return e.code
}

// New builds a coded error for the operation and reason.
func New(operation, reason string, cause error) error {
	return &Error{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Code extracts the code from err, or returns an empty string when err is not coded.
func Code(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.code
	}
	return ""
}

// Reporter logs unexpected service failures with consistent fields.
type Reporter struct {
	service string
	logger  *zap.Logger
}

// NewReporter returns a Reporter for the named service. A nil logger disables output.
func NewReporter(service string, logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Reporter{service: service, logger: logger}
}

// Fail logs the failure at error level and returns it as a coded error.
func (r Reporter) Fail(operation, reason string, err error, fields ...zap.Field) error {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	r.logger.Error(r.service+" service error", attrs...)
	return New(operation, reason, err)
}
