// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithIssuer provides an optional issuer for: Config, VerifyClaims,
// VerifyIdentity. It replaces DefaultIssuer, which is only useful when
// testing against a stand in provider.
func WithIssuer(iss string) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withIssuer = iss
		case *verifyOptions:
			v.withIssuer = iss
		}
	}
}

// WithAcceptableIssuanceAge provides an optional maximum age of an id_token's
// "iat" claim for: Config, VerifyClaims, VerifyIdentity. The default is
// DefaultAcceptableIssuanceAge.
func WithAcceptableIssuanceAge(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withAcceptableIssuanceAge = d
		case *verifyOptions:
			v.withAcceptableIssuanceAge = d
		}
	}
}

// WithNow provides an optional func for the current time for: Config,
// VerifyClaims, VerifyIdentity, Identity.IsExpired
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withNow = now
		case *verifyOptions:
			v.withNow = now
		}
	}
}

// WithLogger provides an optional logger for: Config, VerifyClaims,
// VerifyIdentity
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *configOptions:
			v.withLogger = l
		case *verifyOptions:
			v.withLogger = l
		}
	}
}

// WithProviderCA provides an optional CA cert for the Config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithPublicKeysURL provides an optional public keys endpoint for the Config
func WithPublicKeysURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPublicKeysURL = u
		}
	}
}

// WithUserInfoURL provides an optional userinfo (attribute) endpoint for the
// Config
func WithUserInfoURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUserInfoURL = u
		}
	}
}
