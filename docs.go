// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// yconnect provides the packages a YConnect (Yahoo! JAPAN ID) relying party
// needs to verify the id_tokens it receives: jwt decodes compact JWTs and
// verifies their RS256 signatures, and oidc validates id_token claims and
// calls the provider's public keys and attribute endpoints.
package yconnect
