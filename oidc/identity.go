// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/yconnect/jwt"
)

// Identity is a decoded id_token whose signature has been verified. It's
// immutable: accessors return copies of the claims.
type Identity struct {
	raw     IdToken
	claims  *Claims
	all     map[string]interface{}
	payload []byte
	now     func() time.Time
}

// NewIdentity decodes the id_token and verifies its signature with the key
// its header's kid resolves to in keys. The id_token must contain the
// required claims: iss, sub, aud, exp, iat and nonce.
//
// NewIdentity doesn't validate the claims, see VerifyIdentity.
//
// Supported options: WithNow
func NewIdentity(t IdToken, keys *jwt.KeySet, opt ...Option) (*Identity, error) {
	const op = "oidc.NewIdentity"
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if keys == nil {
		return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrNilParameter)
	}
	tk, err := jwt.Decode(string(t), keys)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := newClaims(tk.Claims, tk.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts := getVerifyOpts(opt...)
	return &Identity{
		raw:     t,
		claims:  c,
		all:     tk.Claims,
		payload: tk.Payload,
		now:     opts.withNow,
	}, nil
}

// VerifyIdentity decodes the id_token, verifies its signature and then
// validates its claims (see VerifyClaims) for the authentication request
// which used nonce, made by the client identified by clientId. accessToken is
// the access_token issued alongside the id_token; it's only checked when the
// id_token has an "at_hash" claim.
//
// Errors from decoding or the signature are *jwt.FormatError and errors from
// the claims validation are *ClaimsError.
//
// Supported options: WithIssuer, WithAcceptableIssuanceAge, WithNow, WithLogger
func VerifyIdentity(t IdToken, keys *jwt.KeySet, nonce, clientId, accessToken string, opt ...Option) (*Identity, error) {
	const op = "oidc.VerifyIdentity"
	opts := getVerifyOpts(opt...)
	id, err := NewIdentity(t, keys, opt...)
	if err != nil {
		var fe *jwt.FormatError
		if errors.As(err, &fe) {
			opts.withLogger.Error("id_token is malformed or its signature is invalid", "op", op, "error", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := VerifyClaims(id.claims, nonce, clientId, accessToken, opt...); err != nil {
		opts.withLogger.Error("id_token claims are invalid", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts.withLogger.Debug("verified id_token", "op", op, "sub", id.claims.Subject)
	return id, nil
}

// IdToken returns the id_token's compact serialization
func (i *Identity) IdToken() IdToken { return i.raw }

// Subject returns the "sub" claim, the user identifier
func (i *Identity) Subject() string { return i.claims.Subject }

// Expiration returns the "exp" claim
func (i *Identity) Expiration() time.Time { return i.claims.Expiry.Time() }

// IsExpired reports whether the "exp" claim is in the past.
func (i *Identity) IsExpired() bool {
	return int64(*i.claims.Expiry) < i.now().Unix()
}

// StandardClaims returns a copy of the verified claims.
func (i *Identity) StandardClaims() Claims {
	c := *i.claims
	c.Audience = append([]string(nil), i.claims.Audience...)
	exp, iat := *i.claims.Expiry, *i.claims.IssuedAt
	c.Expiry, c.IssuedAt = &exp, &iat
	return c
}

// Claims unmarshals the id_token's payload into claims (a pointer to a struct
// or a map).
func (i *Identity) Claims(claims interface{}) error {
	const op = "Identity.Claims"
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if err := json.Unmarshal(i.payload, claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal claims: %w", op, err)
	}
	return nil
}

// AllClaims returns a deep copy of every claim in the id_token.
func (i *Identity) AllClaims() map[string]interface{} {
	return deepCopyMap(i.all)
}

// Clone returns a deep copy of the Identity, which shares nothing with the
// original.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := i.StandardClaims()
	return &Identity{
		raw:     i.raw,
		claims:  &c,
		all:     deepCopyMap(i.all),
		payload: append([]byte(nil), i.payload...),
		now:     i.now,
	}
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	cp := make(map[string]interface{}, len(m))
	for k, v := range m {
		cp[k] = deepCopyValue(v)
	}
	return cp
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		cp := make([]interface{}, len(t))
		for i, e := range t {
			cp[i] = deepCopyValue(e)
		}
		return cp
	default:
		return t
	}
}
