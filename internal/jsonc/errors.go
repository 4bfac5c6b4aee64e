// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package jsonc

import (
	"errors"
	"fmt"
)

var ErrInvalidArgument = errors.New("invalid argument")

type ArgumentError struct {
	Field string
	Err   error
}

func (r *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %v", r.Field, r.Err)
}

func (r *ArgumentError) Unwrap() error {
	return r.Err
}

// Is lets errors.Is match any ArgumentError against ErrInvalidArgument, even
// when the wrapped error does not carry the sentinel.
func (r *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func NewArgumentError(field string, err error) *ArgumentError {
	return &ArgumentError{
		Field: field,
		Err:   err,
	}
}
