// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// Redacted values are returned by String and MarshalJSON for the token types
// below, so tokens don't leak into logs.
const (
	RedactedIdToken      = "[REDACTED: id_token]"
	RedactedAccessToken  = "[REDACTED: access_token]"
	RedactedRefreshToken = "[REDACTED: refresh_token]"
)

// IdToken is an oidc id_token in its compact serialization
type IdToken string

// String will redact the token
func (t IdToken) String() string { return RedactedIdToken }

// MarshalJSON will redact the token
func (t IdToken) MarshalJSON() ([]byte, error) { return json.Marshal(RedactedIdToken) }

// AccessToken is an oauth access_token
type AccessToken string

// String will redact the token
func (t AccessToken) String() string { return RedactedAccessToken }

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) { return json.Marshal(RedactedAccessToken) }

// RefreshToken is an oauth refresh_token
type RefreshToken string

// String will redact the token
func (t RefreshToken) String() string { return RedactedRefreshToken }

// MarshalJSON will redact the token
func (t RefreshToken) MarshalJSON() ([]byte, error) { return json.Marshal(RedactedRefreshToken) }

// expirySkew is subtracted from an access_token's lifetime when deciding if
// it's expired.
const expirySkew = 10 * time.Second

// Token is a token endpoint response whose id_token has been verified.
type Token struct {
	underlying *oauth2.Token
	identity   *Identity
	now        func() time.Time
}

// NewToken creates a Token from the token endpoint response and its verified
// id_token Identity. The identity must belong to the response's id_token.
func NewToken(t *oauth2.Token, id *Identity, opt ...Option) (*Token, error) {
	const op = "oidc.NewToken"
	if t == nil {
		return nil, fmt.Errorf("%s: oauth2 token is nil: %w", op, ErrNilParameter)
	}
	if id == nil {
		return nil, fmt.Errorf("%s: identity is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}
	if raw, ok := t.Extra("id_token").(string); ok && raw != string(id.IdToken()) {
		return nil, fmt.Errorf("%s: identity is not for the token's id_token: %w", op, ErrInvalidParameter)
	}
	opts := getVerifyOpts(opt...)
	return &Token{
		underlying: t,
		identity:   id,
		now:        opts.withNow,
	}, nil
}

// AccessToken returns the access_token
func (t *Token) AccessToken() AccessToken { return AccessToken(t.underlying.AccessToken) }

// RefreshToken returns the refresh_token, which may be empty
func (t *Token) RefreshToken() RefreshToken { return RefreshToken(t.underlying.RefreshToken) }

// IdToken returns the verified id_token
func (t *Token) IdToken() IdToken { return t.identity.IdToken() }

// Identity returns a copy of the verified id_token's identity
func (t *Token) Identity() *Identity { return t.identity.Clone() }

// Expiry returns the access_token's expiration, which is zero when the
// provider didn't send "expires_in".
func (t *Token) Expiry() time.Time { return t.underlying.Expiry }

// IsExpired reports whether the access_token has expired. A token without an
// expiry never expires.
func (t *Token) IsExpired() bool {
	if t.underlying.Expiry.IsZero() {
		return false
	}
	return t.underlying.Expiry.Round(0).Before(t.now().Add(expirySkew))
}

// Valid reports whether the Token has an access_token which hasn't expired.
func (t *Token) Valid() bool {
	if t == nil || t.underlying == nil {
		return false
	}
	if t.underlying.AccessToken == "" {
		return false
	}
	return !t.IsExpired()
}

// StaticTokenSource returns a TokenSource that always returns the Token's
// access_token. It's useful for Provider.UserInfo.
func (t *Token) StaticTokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  t.underlying.AccessToken,
		TokenType:    t.underlying.TokenType,
		RefreshToken: t.underlying.RefreshToken,
		Expiry:       t.underlying.Expiry,
	})
}
