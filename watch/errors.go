package watch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTrack reports an unknown, duplicate or missing track label.
	ErrInvalidTrack = errors.New("invalid track mode")
	// ErrTrackType reports a track value that is neither a string nor a
	// list of strings.
	ErrTrackType = errors.New("track must be a string or a list of strings")
	// ErrNotReference reports a watch argument that is not a name,
	// attribute or subscript expression.
	ErrNotReference = errors.New("argument is not a variable, attribute or subscript")
	ErrNotCallable  = errors.New("callback is not callable")
	ErrBadAlias     = errors.New("alias must be an identifier")
	ErrUnknownAlias = errors.New("alias is not installed")
	ErrBadOption    = errors.New("unknown option")
)

// ConfigError is returned synchronously by registration and configuration
// calls. No registry state has changed when it is returned.
type ConfigError struct {
	Field  string
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("watch: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("watch: %s: %v: %s", e.Field, e.Err, e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(field string, err error, format string, args ...any) error {
	return &ConfigError{Field: field, Detail: fmt.Sprintf(format, args...), Err: err}
}
