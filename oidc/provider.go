// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/yconnect/jwt"
	sdkhttp "github.com/hashicorp/yconnect/sdk/http"
	"golang.org/x/oauth2"
)

// noResponseCode is the raw error code of an attribute response without any
// attributes.
const noResponseCode = "no_response"

// Provider verifies id_tokens issued by YConnect and calls its endpoints. It
// holds only its Config and an http client, so it's safe for concurrent use.
type Provider struct {
	config *Config
	client *http.Client
	logger hclog.Logger
}

// NewProvider creates a Provider for the config. It doesn't make any http
// requests.
func NewProvider(c *Config) (*Provider, error) {
	const op = "NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	client, err := c.HttpClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Provider{
		config: c,
		client: client,
		logger: logger,
	}, nil
}

// Config returns a copy of the provider's config.
func (p *Provider) Config() Config {
	return *p.config
}

// FetchKeySet requests the provider's public keys. Any failure (transport,
// non-200 response, empty or invalid key document) wraps ErrKeySetUnavailable;
// an error response is also returned as a *ProviderError.
//
// The http client used can be overridden with HttpClientContext.
func (p *Provider) FetchKeySet(ctx context.Context) (*jwt.KeySet, error) {
	const op = "Provider.FetchKeySet"
	log := p.logger
	log.Info("fetching public keys", "op", op, "url", p.config.PublicKeysURL)

	resp, err := sdkhttp.Fetch(ctx, p.client, &sdkhttp.Request{
		URL:     p.config.PublicKeysURL,
		Headers: http.Header{"Accept": []string{"application/json"}},
	})
	if err != nil {
		log.Error("unable to fetch public keys", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrKeySetUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		pe := providerErrorFromResponse(PublicKeysEndpoint, resp.StatusCode, resp.Headers, resp.Body)
		log.Error("public keys endpoint returned an error", "op", op, "status", resp.StatusCode, "error", pe)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrKeySetUnavailable, pe)
	}
	body := strings.TrimSpace(string(resp.Body))
	if body == "" {
		log.Error("public keys endpoint returned an empty document", "op", op)
		return nil, fmt.Errorf("%s: empty key document: %w", op, ErrKeySetUnavailable)
	}
	keys, err := jwt.NewKeySet(body)
	if err != nil {
		log.Error("public keys endpoint returned an invalid document", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrKeySetUnavailable, err)
	}
	log.Info("fetched public keys", "op", op, "kids", keys.KeyIds())
	return keys, nil
}

// VerifyIdToken verifies the id_token with keys and validates its claims for
// the provider's client id. See VerifyIdentity.
func (p *Provider) VerifyIdToken(ctx context.Context, keys *jwt.KeySet, t IdToken, nonce string, accessToken AccessToken) (*Identity, error) {
	const op = "Provider.VerifyIdToken"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if keys == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrKeySetUnavailable)
	}
	id, err := VerifyIdentity(t, keys, nonce, p.config.ClientId, string(accessToken), p.config.verifyOpts()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// VerifyToken verifies the id_token of a token endpoint response the caller
// received (ex: from oauth2.Config.Exchange). The provider's public keys are
// fetched and the id_token's "at_hash", when present, is checked against the
// response's access_token.
func (p *Provider) VerifyToken(ctx context.Context, t *oauth2.Token, nonce string) (*Token, error) {
	const op = "Provider.VerifyToken"
	if t == nil {
		return nil, fmt.Errorf("%s: oauth2 token is nil: %w", op, ErrNilParameter)
	}
	raw, ok := t.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}
	keys, err := p.FetchKeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id, err := p.VerifyIdToken(ctx, keys, IdToken(raw), nonce, AccessToken(t.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	tk, err := NewToken(t, id, WithNow(p.config.Now))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tk, nil
}

// UserInfo gets the user's attributes from the provider's attribute endpoint
// and unmarshals them into claims (a pointer to a struct or a map). The
// access_token is taken from the TokenSource, see Token.StaticTokenSource.
//
// Error responses wrap ErrUserInfoFailed and a *ProviderError for the api
// endpoint, whose code comes from the response's JSON body or its
// WWW-Authenticate header. A 200 response with an "error" member, or with an
// empty or null body, is an error response too.
func (p *Provider) UserInfo(ctx context.Context, ts oauth2.TokenSource, claims interface{}) error {
	const op = "Provider.UserInfo"
	if ts == nil {
		return fmt.Errorf("%s: token source is nil: %w", op, ErrNilParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	t, err := ts.Token()
	if err != nil {
		return fmt.Errorf("%s: unable to get token: %w: %w", op, ErrUserInfoFailed, err)
	}
	if t.AccessToken == "" {
		return fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, ErrMissingAccessToken)
	}
	log := p.logger

	resp, err := sdkhttp.Fetch(ctx, p.client, &sdkhttp.Request{
		URL: p.config.UserInfoURL,
		Headers: http.Header{
			"Authorization": []string{"Bearer " + t.AccessToken},
			"Accept":        []string{"application/json"},
		},
	})
	if err != nil {
		log.Error("unable to request user info", "op", op, "error", err)
		return fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		pe := providerErrorFromResponse(ApiEndpoint, resp.StatusCode, resp.Headers, resp.Body)
		log.Error("attribute endpoint returned an error", "op", op, "status", resp.StatusCode, "error", pe)
		return fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, pe)
	}
	body := strings.TrimSpace(string(resp.Body))
	if body == "" || body == "null" {
		pe := NewProviderError(ApiEndpoint, noResponseCode, "empty attribute response", resp.StatusCode)
		log.Error("attribute endpoint returned no attributes", "op", op, "error", pe)
		return fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, pe)
	}
	if code, desc := parseErrorBody(resp.Body); code != "" {
		pe := NewProviderError(ApiEndpoint, code, desc, resp.StatusCode)
		log.Error("attribute endpoint returned an error", "op", op, "status", resp.StatusCode, "error", pe)
		return fmt.Errorf("%s: %w: %w", op, ErrUserInfoFailed, pe)
	}
	if err := json.Unmarshal(resp.Body, claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal user info: %w: %w", op, ErrUserInfoFailed, err)
	}
	return nil
}
