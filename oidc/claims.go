// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/yconnect/jwt"
	"github.com/hashicorp/yconnect/oidc/internal/strutils"
)

const (
	// DefaultIssuer is the issuer of every YConnect v2 id_token.
	DefaultIssuer = "https://auth.login.yahoo.co.jp/yconnect/v2"

	// DefaultAcceptableIssuanceAge bounds how long after its "iat" an
	// id_token may still be accepted.
	DefaultAcceptableIssuanceAge = 600 * time.Second
)

// maxNumericDate is the last second of year 9999, the latest "exp" or "iat"
// accepted.
const maxNumericDate = 253402300799

// requiredClaims must be present (and not null) in every id_token.
var requiredClaims = []string{"iss", "sub", "aud", "exp", "iat", "nonce"}

// Claims are the id_token claims that are verified.
type Claims struct {
	Issuer   string               `json:"iss"`
	Subject  string               `json:"sub"`
	Audience []string             `json:"aud"`
	Expiry   *josejwt.NumericDate `json:"exp"`
	IssuedAt *josejwt.NumericDate `json:"iat"`
	Nonce    string               `json:"nonce"`
	AtHash   string               `json:"at_hash,omitempty"`
}

// newClaims checks that every required claim is present in the decoded
// payload and unmarshals it. The "aud" claim must be an array.
func newClaims(claims map[string]interface{}, payload []byte) (*Claims, error) {
	const op = "oidc.newClaims"
	var missing []string
	for _, k := range requiredClaims {
		if v, ok := claims[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing claims %s: %w", op, strings.Join(missing, ", "), ErrInvalidIdTokenFormat)
	}
	for _, k := range []string{"exp", "iat"} {
		v, ok := claims[k].(float64)
		if !ok || math.IsNaN(v) || v < 0 || v > maxNumericDate {
			return nil, fmt.Errorf("%s: %s claim %v is not a valid time: %w", op, k, claims[k], ErrInvalidIdTokenFormat)
		}
	}
	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidIdTokenFormat, err)
	}
	return &c, nil
}

// verifyOptions is the set of available options for claims validation.
type verifyOptions struct {
	withIssuer                string
	withAcceptableIssuanceAge time.Duration
	withNow                   func() time.Time
	withLogger                hclog.Logger
}

// verifyDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func verifyDefaults() verifyOptions {
	return verifyOptions{
		withIssuer:                DefaultIssuer,
		withAcceptableIssuanceAge: DefaultAcceptableIssuanceAge,
		withNow:                   time.Now,
		withLogger:                hclog.NewNullLogger(),
	}
}

// getVerifyOpts gets the defaults and applies the opt overrides passed in.
func getVerifyOpts(opt ...Option) verifyOptions {
	opts := verifyDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withNow == nil {
		opts.withNow = time.Now
	}
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}

// VerifyClaims validates the id_token claims for the authentication request
// which used nonce, made by the client identified by clientId. accessToken is
// the access_token issued with the id_token and is only used when the claims
// contain an "at_hash".
//
// The checks run in order and the first one to fail is returned as a
// *ClaimsError:
//
//  1. "iss" equals the issuer
//  2. "nonce" equals nonce
//  3. "aud" contains clientId
//  4. "at_hash", when present, is the hash of accessToken
//  5. the current time is not after "exp"
//  6. no more than the acceptable issuance age has passed since "iat"
//
// Supported options: WithIssuer, WithAcceptableIssuanceAge, WithNow, WithLogger
func VerifyClaims(c *Claims, nonce, clientId, accessToken string, opt ...Option) error {
	const op = "oidc.VerifyClaims"
	if c == nil {
		return fmt.Errorf("%s: claims are nil: %w", op, ErrNilParameter)
	}
	if c.Expiry == nil || c.IssuedAt == nil {
		return fmt.Errorf("%s: missing exp or iat: %w", op, ErrInvalidIdTokenFormat)
	}
	opts := getVerifyOpts(opt...)
	now := opts.withNow().Unix()

	if c.Issuer != opts.withIssuer {
		return &ClaimsError{Code: ClaimsInvalidIssuer, Detail: fmt.Sprintf("The issuer did not match.(%s)", c.Issuer)}
	}
	if c.Nonce != nonce {
		return &ClaimsError{Code: ClaimsNonceMismatch, Detail: fmt.Sprintf("The nonce did not match.(%s, %s)", nonce, c.Nonce)}
	}
	if !strutils.StrListContains(c.Audience, clientId) {
		return &ClaimsError{Code: ClaimsInvalidAudience, Detail: fmt.Sprintf("The client id did not match.(%s)", strings.Join(c.Audience, ", "))}
	}
	if c.AtHash != "" {
		if AccessTokenHash(accessToken) != c.AtHash {
			return &ClaimsError{Code: ClaimsInvalidAtHash, Detail: fmt.Sprintf("The at_hash did not match.(%s)", c.AtHash)}
		}
	}

	exp := int64(*c.Expiry)
	opts.withLogger.Debug("checking id_token expiry", "op", op, "now", now, "exp", exp)
	if now > exp {
		return &ClaimsError{Code: ClaimsExpired, Detail: fmt.Sprintf("Re-issue Id Token.(%d)", exp)}
	}

	iat := int64(*c.IssuedAt)
	diff := now - iat
	opts.withLogger.Debug("checking id_token issuance age", "op", op, "now", now, "iat", iat, "diff", diff)
	if iat < now-int64(opts.withAcceptableIssuanceAge/time.Second) {
		return &ClaimsError{Code: ClaimsOverAcceptableRange, Detail: fmt.Sprintf("This access has expired possible.(%d sec)", diff)}
	}
	return nil
}

// AccessTokenHash returns the "at_hash" of an RS256 signed id_token for
// accessToken: the base64url encoded left half of its SHA-256 digest.
func AccessTokenHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return jwt.URLEncode(sum[:len(sum)/2])
}
