// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc verifies the id_tokens YConnect issues to a relying party and
provides the few provider calls needed around that verification.

An id_token is accepted only when its RS256 signature verifies with the
public key its header's kid names, and its claims pass these checks, in order:
issuer, nonce, audience, at_hash (when present), expiry and issuance age.
A failed claims check is a *ClaimsError whose Code says which one failed.

VerifyIdentity is the entry point when the caller already holds the public
keys (see jwt.NewKeySet). Provider adds fetching the public keys
(Provider.FetchKeySet), verifying a token endpoint response the caller
received (Provider.VerifyToken) and calling the attribute endpoint
(Provider.UserInfo).

Building authorization URLs and exchanging authorization codes are left to
the caller, for example with golang.org/x/oauth2.

StartTestProvider starts a local stand in for YConnect which is handy in
tests.
*/
package oidc
