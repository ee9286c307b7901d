package core

import (
	"errors"
	"fmt"
)

// Failure taxonomy of the reporting pipeline. Callers match with errors.Is.
var (
	ErrFetch        = errors.New("dataset fetch failed")
	ErrSchema       = errors.New("unexpected dataset schema")
	ErrEmptyResult  = errors.New("no records for municipality")
	ErrNoMode       = errors.New("column mode is undefined")
	ErrDateParse    = errors.New("unparseable date")
	ErrInvalidRange = errors.New("invalid date range")
)

// IsLoadError reports whether err came from loading the base table.
// Such errors leave the dashboard without data and must be shown to the user.
func IsLoadError(err error) bool {
	return errors.Is(err, ErrFetch) ||
		errors.Is(err, ErrSchema) ||
		errors.Is(err, ErrEmptyResult) ||
		errors.Is(err, ErrNoMode) ||
		errors.Is(err, ErrDateParse)
}

// IsUserError reports whether err was caused by user input.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidRange)
}

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
