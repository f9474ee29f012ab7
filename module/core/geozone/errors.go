package geozone

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeRadiusOutOfRange  ErrorCode = "RadiusOutOfRange"
	CodeTooFewVertices    ErrorCode = "TooFewVertices"
	CodeTooManyVertices   ErrorCode = "TooManyVertices"
	CodeInvalidCoordinate ErrorCode = "InvalidCoordinate"
	CodeInvalidAttribute  ErrorCode = "InvalidAttribute"
)

var (
	ErrRadiusOutOfRange  = errors.New("radius out of range")
	ErrTooFewVertices    = errors.New("too few vertices")
	ErrTooManyVertices   = errors.New("too many vertices")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidAttribute  = errors.New("invalid attribute")
	ErrDuplicateZoneID   = errors.New("duplicate zone id")
)

var sentinels = map[ErrorCode]error{
	CodeRadiusOutOfRange:  ErrRadiusOutOfRange,
	CodeTooFewVertices:    ErrTooFewVertices,
	CodeTooManyVertices:   ErrTooManyVertices,
	CodeInvalidCoordinate: ErrInvalidCoordinate,
	CodeInvalidAttribute:  ErrInvalidAttribute,
}

// ValidationError describes why a zone was rejected. It matches the
// corresponding Err* sentinel under errors.Is.
type ValidationError struct {
	Code   ErrorCode
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return sentinels[e.Code] == target
}

func invalid(code ErrorCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Reason: fmt.Sprintf(format, args...)}
}
