// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rcode implements the closed return-code taxonomy shared by every
// core operation (object tree, parser, TCP server, HTTP server). There is
// no out-of-band error channel: every call that can fail returns a Code.
package rcode

import "net/http"

// Code is a member of the closed outcome set every core operation returns.
type Code int

const (
	EOK Code = iota
	NullArgument
	BadCommand
	NoResource
	ExistingResource
	BadValue
	NoConnection
	NoUpdate
	Timeout
)

type descriptor struct {
	text   string
	status int
}

var table = map[Code]descriptor{
	EOK:              {"OK", http.StatusOK},
	NullArgument:     {"null argument", http.StatusBadRequest},
	BadCommand:       {"bad command", http.StatusNotFound},
	NoResource:       {"no such resource", http.StatusNotFound},
	ExistingResource: {"resource already exists", http.StatusConflict},
	BadValue:         {"bad value", http.StatusNoContent},
	NoConnection:     {"connection failed", http.StatusBadRequest},
	NoUpdate:         {"no update performed", http.StatusBadRequest},
	Timeout:          {"operation timed out", http.StatusBadRequest},
}

// String returns the fixed human-readable description for the code.
func (c Code) String() string {
	if d, ok := table[c]; ok {
		return d.text
	}
	return "unknown error"
}

// HTTPStatus returns the code's fixed HTTP status mapping.
func (c Code) HTTPStatus() int {
	if d, ok := table[c]; ok {
		return d.status
	}
	return http.StatusBadRequest
}

// Int returns the wire-level integer code carried in the JSON envelope.
func (c Code) Int() int {
	return int(c)
}

// Error adapts a Code to the error interface so it can be returned/wrapped
// alongside conventional Go errors at package boundaries (e.g. the Engine
// adapter translating a backend failure into the taxonomy).
type Error struct {
	Code Code
	// Cause, if set, is the underlying error that produced this Code.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return c(e.Code) + ": " + e.Cause.Error()
	}
	return c(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

func c(code Code) string { return code.String() }

// New builds an *Error for the given code, optionally wrapping cause.
func New(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}
