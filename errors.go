// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"
)

var (
	// client errors
	errInvalidInput  = errors.New("invalid input")
	errWeakPassword  = errors.New("weak password")
	errUsernameTaken = errors.New("username taken")

	// errInternal hides store and driver failures from callers.
	// The underlying error is logged where it happens.
	errInternal = errors.New("internal error")
)

const (
	categoryInvalidInput  = "invalid_input"
	categoryWeakPassword  = "weak_password"
	categoryUsernameTaken = "username_taken"
	categoryInternal      = "internal_error"
)

// classify maps a service error onto an HTTP status and category.
// Anything unrecognised is an internal error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidInput):
		return http.StatusBadRequest, categoryInvalidInput
	case errors.Is(err, errWeakPassword):
		return http.StatusBadRequest, categoryWeakPassword
	case errors.Is(err, errUsernameTaken):
		return http.StatusConflict, categoryUsernameTaken
	}
	return http.StatusInternalServerError, categoryInternal
}
