// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/yconnect/oidc/internal/strutils"
	sdkhttp "github.com/hashicorp/yconnect/sdk/http"
)

const (
	// DefaultPublicKeysURL is the YConnect v2 public keys endpoint.
	DefaultPublicKeysURL = "https://auth.login.yahoo.co.jp/yconnect/v2/public-keys"

	// DefaultUserInfoURL is the YConnect v2 attribute (userinfo) endpoint.
	DefaultUserInfoURL = "https://userinfo.yahooapis.jp/yconnect/v2/attribute"
)

// Config represents the configuration of a YConnect relying party which
// verifies id_tokens.
type Config struct {
	// ClientId is the relying party id, it must be in an id_token's "aud"
	// claim.
	ClientId string

	// Issuer is the expected "iss" claim of id_tokens.
	Issuer string

	// PublicKeysURL is the endpoint which publishes the provider's
	// verification keys as {"kid": "PEM", ...}.
	PublicKeysURL string

	// UserInfoURL is the attribute endpoint used by Provider.UserInfo.
	UserInfoURL string

	// ProviderCA is an optional CA cert to use when sending requests to the
	// provider.
	ProviderCA string

	// AcceptableIssuanceAge bounds the time between an id_token's "iat" and
	// its verification.
	AcceptableIssuanceAge time.Duration

	// Logger is used for diagnostics, it's never nil after NewConfig.
	Logger hclog.Logger

	// NowFunc is an optional function that returns the current time
	NowFunc func() time.Time
}

// NewConfig composes a new config for the client identified by clientId.
//
// Supported options: WithIssuer, WithPublicKeysURL, WithUserInfoURL,
// WithProviderCA, WithAcceptableIssuanceAge, WithNow, WithLogger
func NewConfig(clientId string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientId:              clientId,
		Issuer:                opts.withIssuer,
		PublicKeysURL:         opts.withPublicKeysURL,
		UserInfoURL:           opts.withUserInfoURL,
		ProviderCA:            opts.withProviderCA,
		AcceptableIssuanceAge: opts.withAcceptableIssuanceAge,
		Logger:                opts.withLogger,
		NowFunc:               opts.withNow,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the provider configuration. Every problem found is returned, as a
// *multierror.Error. It doesn't verify the endpoints are reachable.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientId == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter))
	}
	if err := validateURL(c.PublicKeysURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: public keys URL %w", op, err))
	}
	if err := validateURL(c.UserInfoURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: userinfo URL %w", op, err))
	}
	if c.AcceptableIssuanceAge < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: acceptable issuance age %s is negative: %w", op, c.AcceptableIssuanceAge, ErrInvalidParameter))
	}
	if c.ProviderCA != "" {
		if _, err := c.HttpClient(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
		}
	}
	return result.ErrorOrNil()
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is empty: %w", ErrInvalidParameter)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%q is invalid: %w: %w", raw, ErrInvalidParameter, err)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) || u.Host == "" {
		return fmt.Errorf("%q is not an http or https URL: %w", raw, ErrInvalidParameter)
	}
	return nil
}

// Now returns the current time using the optional NowFunc.
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now()
}

// verifyOpts are the options the Config imposes on id_token verification.
func (c *Config) verifyOpts() []Option {
	return []Option{
		WithIssuer(c.Issuer),
		WithAcceptableIssuanceAge(c.AcceptableIssuanceAge),
		WithNow(c.Now),
		WithLogger(c.Logger),
	}
}

// HttpClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	client, err := sdkhttp.NewClient(c.ProviderCA)
	if err != nil {
		if errors.Is(err, sdkhttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HttpClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HttpClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withIssuer                string
	withPublicKeysURL         string
	withUserInfoURL           string
	withProviderCA            string
	withAcceptableIssuanceAge time.Duration
	withNow                   func() time.Time
	withLogger                hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withIssuer:                DefaultIssuer,
		withPublicKeysURL:         DefaultPublicKeysURL,
		withUserInfoURL:           DefaultUserInfoURL,
		withAcceptableIssuanceAge: DefaultAcceptableIssuanceAge,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	if opts.withLogger == nil {
		opts.withLogger = hclog.NewNullLogger()
	}
	return opts
}
