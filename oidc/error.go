// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrIdGeneratorFailed         = errors.New("id generation failed")
	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrMissingAccessToken        = errors.New("access_token is missing")
	ErrInvalidIdTokenFormat      = errors.New("not a valid id_token format")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrKeySetUnavailable         = errors.New("public keys unavailable")
	ErrUserInfoFailed            = errors.New("user info failed")

	// claims validation failures, each one is reported as a *ClaimsError

	ErrInvalidIssuer      = errors.New("invalid issuer")
	ErrInvalidNonce       = errors.New("invalid nonce")
	ErrInvalidAudience    = errors.New("invalid audience")
	ErrInvalidAtHash      = errors.New("invalid at_hash")
	ErrExpiredIdToken     = errors.New("expired id_token")
	ErrIssuedAtOutOfRange = errors.New("id_token issued outside the acceptable range")
)

// ClaimsErrorCode is the short, stable description of a failed claims check.
type ClaimsErrorCode string

const (
	ClaimsInvalidIssuer       ClaimsErrorCode = "Invalid issuer."
	ClaimsNonceMismatch       ClaimsErrorCode = "Not match nonce."
	ClaimsInvalidAudience     ClaimsErrorCode = "Invalid audience."
	ClaimsInvalidAtHash       ClaimsErrorCode = "Invalid at_hash."
	ClaimsExpired             ClaimsErrorCode = "Expired ID Token."
	ClaimsOverAcceptableRange ClaimsErrorCode = "Over acceptable range."
)

var claimsSentinels = map[ClaimsErrorCode]error{
	ClaimsInvalidIssuer:       ErrInvalidIssuer,
	ClaimsNonceMismatch:       ErrInvalidNonce,
	ClaimsInvalidAudience:     ErrInvalidAudience,
	ClaimsInvalidAtHash:       ErrInvalidAtHash,
	ClaimsExpired:             ErrExpiredIdToken,
	ClaimsOverAcceptableRange: ErrIssuedAtOutOfRange,
}

// ClaimsError is returned when an id_token's claims fail validation. Code
// identifies the check which failed and Detail holds the offending values for
// diagnostics.
type ClaimsError struct {
	Code   ClaimsErrorCode
	Detail string
}

// Error satisfies the error interface.
func (e *ClaimsError) Error() string {
	return fmt.Sprintf("%s %s", e.Code, e.Detail)
}

// Unwrap allows errors.Is to match both ErrIdTokenVerificationFailed and the
// sentinel for the failed check (ex: ErrInvalidAudience).
func (e *ClaimsError) Unwrap() []error {
	errs := []error{ErrIdTokenVerificationFailed}
	if s, ok := claimsSentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	return errs
}

// ErrorCode is an OAuth 2.0 / OIDC error code returned by the provider.
type ErrorCode string

const (
	ErrorInvalidRequest          ErrorCode = "invalid_request"
	ErrorInvalidClient           ErrorCode = "invalid_client"
	ErrorInvalidGrant            ErrorCode = "invalid_grant"
	ErrorInvalidScope            ErrorCode = "invalid_scope"
	ErrorInvalidToken            ErrorCode = "invalid_token"
	ErrorInvalidRedirectUri      ErrorCode = "invalid_redirect_uri"
	ErrorUnauthorizedClient      ErrorCode = "unauthorized_client"
	ErrorUnsupportedGrantType    ErrorCode = "unsupported_grant_type"
	ErrorUnsupportedResponseType ErrorCode = "unsupported_response_type"
	ErrorAccessDenied            ErrorCode = "access_denied"
	ErrorServerError             ErrorCode = "server_error"
	ErrorLoginRequired           ErrorCode = "login_required"
	ErrorConsentRequired         ErrorCode = "consent_required"
	ErrorUnknown                 ErrorCode = "unknown"
)

var knownErrorCodes = map[ErrorCode]struct{}{
	ErrorInvalidRequest:          {},
	ErrorInvalidClient:           {},
	ErrorInvalidGrant:            {},
	ErrorInvalidScope:            {},
	ErrorInvalidToken:            {},
	ErrorInvalidRedirectUri:      {},
	ErrorUnauthorizedClient:      {},
	ErrorUnsupportedGrantType:    {},
	ErrorUnsupportedResponseType: {},
	ErrorAccessDenied:            {},
	ErrorServerError:             {},
	ErrorLoginRequired:           {},
	ErrorConsentRequired:         {},
}

// ParseErrorCode returns the ErrorCode for the raw "error" value, or
// ErrorUnknown.
func ParseErrorCode(raw string) ErrorCode {
	c := ErrorCode(strings.TrimSpace(raw))
	if _, ok := knownErrorCodes[c]; ok {
		return c
	}
	return ErrorUnknown
}

// Endpoint identifies which provider endpoint returned an error.
type Endpoint int

const (
	UnknownEndpoint Endpoint = iota
	AuthorizationEndpoint
	TokenEndpoint
	ApiEndpoint
	PublicKeysEndpoint
)

// String returns the endpoint's name.
func (e Endpoint) String() string {
	switch e {
	case AuthorizationEndpoint:
		return "authorization"
	case TokenEndpoint:
		return "token"
	case ApiEndpoint:
		return "api"
	case PublicKeysEndpoint:
		return "public-keys"
	default:
		return "unknown"
	}
}

// ProviderError is an error response from the provider. Its Code is decided
// once, when the error is created, so callers can switch on it rather than
// matching error strings.
type ProviderError struct {
	Endpoint    Endpoint
	Code        ErrorCode
	RawCode     string
	Description string
	StatusCode  int
}

// NewProviderError creates a ProviderError for the raw "error" and
// "error_description" values received from the endpoint.
func NewProviderError(endpoint Endpoint, rawCode, description string, statusCode int) *ProviderError {
	return &ProviderError{
		Endpoint:    endpoint,
		Code:        ParseErrorCode(rawCode),
		RawCode:     rawCode,
		Description: description,
		StatusCode:  statusCode,
	}
}

// Error satisfies the error interface.
func (e *ProviderError) Error() string {
	code := e.RawCode
	if code == "" {
		code = string(e.Code)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s endpoint error: %s", e.Endpoint, code)
	if e.Description != "" {
		fmt.Fprintf(&b, " (%s)", e.Description)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http status %d", e.StatusCode)
	}
	return b.String()
}

// Is reports whether target is a *ProviderError with the same Code. A target
// with an empty Code matches any ProviderError.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// ProviderErrorFrom returns the provider error carried by err: either a
// *ProviderError or the *oauth2.RetrieveError the golang.org/x/oauth2 package
// returns for token endpoint errors.
func ProviderErrorFrom(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		var status int
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		code, desc := re.ErrorCode, re.ErrorDescription
		if code == "" {
			code, desc = parseErrorBody(re.Body)
		}
		return NewProviderError(TokenEndpoint, code, desc, status), true
	}
	return nil, false
}

// providerErrorFromResponse builds a ProviderError from a failed api
// response. The code is taken from a JSON error body or from the bearer
// WWW-Authenticate challenge.
func providerErrorFromResponse(endpoint Endpoint, statusCode int, header http.Header, body []byte) *ProviderError {
	code, desc := parseErrorBody(body)
	if code == "" && header != nil {
		code, desc = parseBearerChallenge(header.Get("WWW-Authenticate"))
	}
	if code == "" {
		desc = http.StatusText(statusCode)
	}
	return NewProviderError(endpoint, code, desc, statusCode)
}

func parseErrorBody(body []byte) (code, description string) {
	var e struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return "", ""
	}
	return e.Error, e.ErrorDescription
}

// parseBearerChallenge extracts the error and error_description parameters of
// a "Bearer" WWW-Authenticate challenge (RFC 6750 section 3).
func parseBearerChallenge(challenge string) (code, description string) {
	scheme, params, found := strings.Cut(strings.TrimSpace(challenge), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", ""
	}
	for _, p := range strings.Split(params, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"`)
		switch strings.ToLower(k) {
		case "error":
			code = v
		case "error_description":
			description = v
		}
	}
	return code, description
}
