// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package yconnect_test

import (
	"context"
	"fmt"

	"github.com/hashicorp/yconnect/oidc"
	"golang.org/x/oauth2"
)

func Example_oidc() {
	ctx := context.Background()

	// Create a new Config
	pc, err := oidc.NewConfig("your_client_id")
	if err != nil {
		// handle error
	}

	// Create a provider
	p, err := oidc.NewProvider(pc)
	if err != nil {
		// handle error
	}

	// Fetch the provider's public keys, a KeySet can be shared by every
	// verification.
	keys, err := p.FetchKeySet(ctx)
	if err != nil {
		// handle error
	}

	// The token endpoint response the caller received for the authorization
	// code, with golang.org/x/oauth2
	var resp *oauth2.Token
	idToken, _ := resp.Extra("id_token").(string)

	id, err := p.VerifyIdToken(ctx, keys, oidc.IdToken(idToken), "the_nonce", oidc.AccessToken(resp.AccessToken))
	if err != nil {
		// handle error
	}
	fmt.Println("authenticated: ", id.Subject())
}
