// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"math"
	"testing"
	"time"

	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientId    = "client1"
	testNonce       = "n1"
	testAccessToken = "jHkWEdUXMU1BwAsC4vtUsZwnNvTIxEl0z9K3vx5KF0Y"
	testAtHash      = "77QmUPtjPfzWtF2AnpK9RQ"
)

func testClaims(now time.Time) *Claims {
	exp, iat := josejwt.NumericDate(now.Add(time.Hour).Unix()), josejwt.NumericDate(now.Unix())
	return &Claims{
		Issuer:   DefaultIssuer,
		Subject:  "ZYXWVUTSRQPONMLKJIHGFEDCBA",
		Audience: []string{testClientId},
		Expiry:   &exp,
		IssuedAt: &iat,
		Nonce:    testNonce,
		AtHash:   testAtHash,
	}
}

func TestAccessTokenHash(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal(testAtHash, AccessTokenHash(testAccessToken))
	assert.NotEqual(testAtHash, AccessTokenHash(testAccessToken+"x"))
	assert.Len(AccessTokenHash(""), 22)
}

func TestVerifyClaims(t *testing.T) {
	t.Parallel()
	now := time.Unix(1700000000, 0)
	testNow := func() time.Time { return now }
	numericDate := func(tm time.Time) *josejwt.NumericDate {
		d := josejwt.NumericDate(tm.Unix())
		return &d
	}

	tests := []struct {
		name        string
		claims      func() *Claims
		nonce       string
		clientId    string
		accessToken string
		opts        []Option
		wantCode    ClaimsErrorCode
		wantIs      error
		wantErr     error
	}{
		{
			name:   "valid",
			claims: func() *Claims { return testClaims(now) },
		},
		{
			name: "valid-without-at-hash",
			claims: func() *Claims {
				c := testClaims(now)
				c.AtHash = ""
				return c
			},
			accessToken: "anything",
		},
		{
			name: "valid-second-audience",
			claims: func() *Claims {
				c := testClaims(now)
				c.Audience = []string{"client0", testClientId}
				return c
			},
		},
		{
			name: "invalid-issuer",
			claims: func() *Claims {
				c := testClaims(now)
				c.Issuer = "https://auth.login.yahoo.co.jp/yconnect/v1"
				return c
			},
			wantCode: ClaimsInvalidIssuer,
			wantIs:   ErrInvalidIssuer,
		},
		{
			name: "issuer-override",
			claims: func() *Claims {
				c := testClaims(now)
				c.Issuer = "https://127.0.0.1/yconnect/v2"
				return c
			},
			opts: []Option{WithIssuer("https://127.0.0.1/yconnect/v2")},
		},
		{
			name:     "nonce-mismatch",
			claims:   func() *Claims { return testClaims(now) },
			nonce:    "n2",
			wantCode: ClaimsNonceMismatch,
			wantIs:   ErrInvalidNonce,
		},
		{
			name:     "other-audience",
			claims:   func() *Claims { return testClaims(now) },
			clientId: "other",
			wantCode: ClaimsInvalidAudience,
			wantIs:   ErrInvalidAudience,
		},
		{
			name: "empty-audience",
			claims: func() *Claims {
				c := testClaims(now)
				c.Audience = []string{}
				return c
			},
			wantCode: ClaimsInvalidAudience,
			wantIs:   ErrInvalidAudience,
		},
		{
			name:        "at-hash-mismatch",
			claims:      func() *Claims { return testClaims(now) },
			accessToken: "not-the-access-token",
			wantCode:    ClaimsInvalidAtHash,
			wantIs:      ErrInvalidAtHash,
		},
		{
			name: "exp-equals-now",
			claims: func() *Claims {
				c := testClaims(now)
				c.Expiry = numericDate(now)
				return c
			},
		},
		{
			name: "expired",
			claims: func() *Claims {
				c := testClaims(now)
				c.Expiry = numericDate(now.Add(-1 * time.Second))
				return c
			},
			wantCode: ClaimsExpired,
			wantIs:   ErrExpiredIdToken,
		},
		{
			name: "issued-600s-ago",
			claims: func() *Claims {
				c := testClaims(now)
				c.IssuedAt = numericDate(now.Add(-600 * time.Second))
				return c
			},
		},
		{
			name: "issued-601s-ago",
			claims: func() *Claims {
				c := testClaims(now)
				c.IssuedAt = numericDate(now.Add(-601 * time.Second))
				return c
			},
			wantCode: ClaimsOverAcceptableRange,
			wantIs:   ErrIssuedAtOutOfRange,
		},
		{
			name: "issued-601s-ago-wider-range",
			claims: func() *Claims {
				c := testClaims(now)
				c.IssuedAt = numericDate(now.Add(-601 * time.Second))
				return c
			},
			opts: []Option{WithAcceptableIssuanceAge(time.Hour)},
		},
		{
			name: "issued-in-the-future",
			claims: func() *Claims {
				c := testClaims(now)
				c.IssuedAt = numericDate(now.Add(time.Minute))
				return c
			},
		},
		{
			name: "issuer-checked-first",
			claims: func() *Claims {
				c := testClaims(now)
				c.Issuer = "https://example.com"
				c.Audience = []string{"someone-else"}
				c.Expiry = numericDate(now.Add(-time.Hour))
				return c
			},
			nonce:    "n2",
			wantCode: ClaimsInvalidIssuer,
			wantIs:   ErrInvalidIssuer,
		},
		{
			name: "nonce-before-audience",
			claims: func() *Claims {
				c := testClaims(now)
				c.Audience = []string{"someone-else"}
				return c
			},
			nonce:    "n2",
			wantCode: ClaimsNonceMismatch,
			wantIs:   ErrInvalidNonce,
		},
		{
			name: "at-hash-before-expiry",
			claims: func() *Claims {
				c := testClaims(now)
				c.Expiry = numericDate(now.Add(-time.Hour))
				return c
			},
			accessToken: "not-the-access-token",
			wantCode:    ClaimsInvalidAtHash,
			wantIs:      ErrInvalidAtHash,
		},
		{
			name: "expiry-before-issuance-age",
			claims: func() *Claims {
				c := testClaims(now)
				c.Expiry = numericDate(now.Add(-time.Hour))
				c.IssuedAt = numericDate(now.Add(-2 * time.Hour))
				return c
			},
			wantCode: ClaimsExpired,
			wantIs:   ErrExpiredIdToken,
		},
		{
			name: "iat-at-min-int64",
			claims: func() *Claims {
				c := testClaims(now)
				d := josejwt.NumericDate(math.MinInt64)
				c.IssuedAt = &d
				return c
			},
			wantCode: ClaimsOverAcceptableRange,
			wantIs:   ErrIssuedAtOutOfRange,
		},
		{
			name:    "nil-claims",
			claims:  func() *Claims { return nil },
			wantErr: ErrNilParameter,
		},
		{
			name: "missing-exp",
			claims: func() *Claims {
				c := testClaims(now)
				c.Expiry = nil
				return c
			},
			wantErr: ErrInvalidIdTokenFormat,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			nonce, clientId, accessToken := testNonce, testClientId, testAccessToken
			if tt.nonce != "" {
				nonce = tt.nonce
			}
			if tt.clientId != "" {
				clientId = tt.clientId
			}
			if tt.accessToken != "" {
				accessToken = tt.accessToken
			}
			opts := append([]Option{WithNow(testNow), WithLogger(hclog.NewNullLogger())}, tt.opts...)

			err := VerifyClaims(tt.claims(), nonce, clientId, accessToken, opts...)
			switch {
			case tt.wantErr != nil:
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantErr), "wanted \"%s\" but got \"%s\"", tt.wantErr, err)
			case tt.wantCode != "":
				require.Error(err)
				var ce *ClaimsError
				require.ErrorAs(err, &ce)
				assert.Equal(tt.wantCode, ce.Code)
				assert.NotEmpty(ce.Detail)
				assert.ErrorIs(err, tt.wantIs)
				assert.ErrorIs(err, ErrIdTokenVerificationFailed)
			default:
				assert.NoError(err)
			}
		})
	}
}

func TestVerifyClaims_readsClockOnce(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	now := time.Unix(1700000000, 0)
	calls := 0
	testNow := func() time.Time {
		calls++
		// every later read is past exp
		return now.Add(time.Duration(calls-1) * 2 * time.Hour)
	}
	err := VerifyClaims(testClaims(now), testNonce, testClientId, testAccessToken, WithNow(testNow))
	assert.NoError(err)
	assert.Equal(1, calls)
}

func Test_newClaims(t *testing.T) {
	t.Parallel()
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"iss":   DefaultIssuer,
			"sub":   "sub",
			"aud":   []interface{}{testClientId},
			"exp":   float64(1700003600),
			"iat":   float64(1700000000),
			"nonce": testNonce,
		}
	}
	tests := []struct {
		name    string
		modify  func(map[string]interface{})
		payload string
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"iss":"` + DefaultIssuer + `","sub":"sub","aud":["client1"],"exp":1700003600,"iat":1700000000,"nonce":"n1"}`,
		},
		{
			name:    "missing-nonce",
			modify:  func(m map[string]interface{}) { delete(m, "nonce") },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "null-sub",
			modify:  func(m map[string]interface{}) { m["sub"] = nil },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "iat-below-int64",
			modify:  func(m map[string]interface{}) { m["iat"] = -1e300 },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "iat-above-int64",
			modify:  func(m map[string]interface{}) { m["iat"] = 1e300 },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "negative-iat",
			modify:  func(m map[string]interface{}) { m["iat"] = -9.3e18 },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "exp-after-year-9999",
			modify:  func(m map[string]interface{}) { m["exp"] = float64(maxNumericDate + 1) },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "string-iat",
			modify:  func(m map[string]interface{}) { m["iat"] = "1700000000" },
			payload: `{}`,
			wantErr: true,
		},
		{
			name:    "string-aud",
			payload: `{"iss":"` + DefaultIssuer + `","sub":"sub","aud":"client1","exp":1700003600,"iat":1700000000,"nonce":"n1"}`,
			wantErr: true,
		},
		{
			name:    "string-exp",
			payload: `{"iss":"` + DefaultIssuer + `","sub":"sub","aud":["client1"],"exp":"tomorrow","iat":1700000000,"nonce":"n1"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			m := base()
			if tt.modify != nil {
				tt.modify(m)
			}
			c, err := newClaims(m, []byte(tt.payload))
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIs(err, ErrInvalidIdTokenFormat)
				return
			}
			require.NoError(err)
			assert.Equal(DefaultIssuer, c.Issuer)
			assert.Equal([]string{testClientId}, c.Audience)
			assert.Equal(int64(1700003600), int64(*c.Expiry))
			assert.Equal(testNonce, c.Nonce)
			assert.Empty(c.AtHash)
		})
	}
}
