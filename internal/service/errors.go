package service

import "errors"

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")
	// ErrEmptyReportNumber is returned by lookups with a blank report number.
	ErrEmptyReportNumber = errors.New("report number must not be empty")
	// ErrInvalidID is returned for a non-positive report id.
	ErrInvalidID = errors.New("invalid report id")
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateReportNumber is returned when a report number is already taken.
	ErrDuplicateReportNumber = errors.New("report number already exists")
	// ErrInvalidCredentials is returned for an unknown username or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
