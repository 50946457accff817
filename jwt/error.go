// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidKeySet    = errors.New("invalid key set document")

	// format errors, every one of them is reported wrapped in a *FormatError

	ErrInvalidFormat    = errors.New("invalid jwt format")
	ErrInvalidEncoding  = errors.New("invalid base64url encoding")
	ErrInvalidJSON      = errors.New("invalid json")
	ErrMissingKeyId     = errors.New("header missing key identifier")
	ErrKeyNotFound      = errors.New("key not found for kid")
	ErrInvalidSignature = errors.New("invalid signature")
)

// FormatError is returned for any structural problem with a compact token:
// its segments, their encoding, the decoded JSON, the key identifier or the
// signature. Use errors.Is with one of the format sentinels to tell them
// apart, or errors.As to detect the category as a whole.
type FormatError struct {
	// Op is the operation that failed (ex: "jwt.Split")
	Op string

	// Err is the format sentinel (ex: ErrKeyNotFound)
	Err error

	// Msg is optional detail about the failure
	Msg string

	// Wrapped is an optional underlying error (ex: a base64 decoding error)
	Wrapped error
}

func newFormatError(op string, sentinel error, msg string, wrapped error) *FormatError {
	return &FormatError{
		Op:      op,
		Err:     sentinel,
		Msg:     msg,
		Wrapped: wrapped,
	}
}

// Error satisfies the error interface.
func (e *FormatError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Op, e.Err)
	if e.Msg != "" {
		s = fmt.Sprintf("%s: %s", s, e.Msg)
	}
	if e.Wrapped != nil {
		s = fmt.Sprintf("%s: %s", s, e.Wrapped)
	}
	return s
}

// Unwrap returns both the format sentinel and the underlying error, so
// errors.Is works for either.
func (e *FormatError) Unwrap() []error {
	if e.Wrapped == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Wrapped}
}
