// Package apps holds what the binaries under apps/ share.
package apps

import "fmt"

// ArgumentError reports a missing or malformed command line argument.
type ArgumentError struct {
	msg string
}

func NewArgumentError(msg string) *ArgumentError {
	return &ArgumentError{msg}
}

// MissingFlagError is returned when a required flag was not set.
func MissingFlagError(name string) *ArgumentError {
	return NewArgumentError(fmt.Sprintf("--%s is required", name))
}

func (err *ArgumentError) Error() string {
	return err.msg
}
