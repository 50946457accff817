// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/yconnect/jwt"
	"github.com/hashicorp/yconnect/oidc"
	"golang.org/x/oauth2"
)

func Example() {
	ctx := context.Background()

	// Create a new Config for your client id
	pc, err := oidc.NewConfig("your_client_id")
	if err != nil {
		// handle error
	}

	// Create a provider
	p, err := oidc.NewProvider(pc)
	if err != nil {
		// handle error
	}

	// Generate a nonce for the authentication request and keep it in the
	// user's session.
	nonce, err := oidc.NewNonce()
	if err != nil {
		// handle error
	}
	fmt.Println("send the nonce with the authentication request: ", nonce)

	// Exchange the authorization code with golang.org/x/oauth2 and verify
	// the id_token in the response.
	var resp *oauth2.Token
	t, err := p.VerifyToken(ctx, resp, nonce)
	if err != nil {
		var ce *oidc.ClaimsError
		if errors.As(err, &ce) {
			fmt.Println("id_token rejected: ", ce.Code)
		}
		// handle error
	}

	// Get the user's attributes
	var info map[string]interface{}
	if err := p.UserInfo(ctx, t.StaticTokenSource(), &info); err != nil {
		if pe, ok := oidc.ProviderErrorFrom(err); ok && pe.Code == oidc.ErrorInvalidToken {
			// refresh or re-authenticate
		}
		// handle error
	}
}

func ExampleVerifyIdentity() {
	// The public keys document, {"kid": "PEM", ...}
	keys, err := jwt.NewKeySet(`{"0cc175b9c0f1b6a831c399e269772661": "-----BEGIN PUBLIC KEY-----..."}`)
	if err != nil {
		// handle error
	}

	idToken := oidc.IdToken("eyJ0eXAiOiJKV1QiLCJhbGciOiJSUzI1NiIsImtpZCI6IjBjYzE3NWI5YzBmMWI2YTgzMWMzOTllMjY5NzcyNjYxIn0...")
	id, err := oidc.VerifyIdentity(idToken, keys, "the_nonce", "your_client_id", "the_access_token")
	if err != nil {
		// handle error
	}
	fmt.Println("authenticated: ", id.Subject())
}
