// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt decodes compact serialized JWTs and verifies their RS256
signatures with keys looked up by the kid in the JWT's header.

Keys come from a KeySet, built from a key document which maps each kid to a
PEM encoded RSA public key (or certificate):

	{"0cc175b9c0f1b6a831c399e269772661": "-----BEGIN PUBLIC KEY-----\n..."}

Decode returns a *FormatError for every failure. Use errors.Is with the
package's sentinels (ex: ErrKeyNotFound, ErrInvalidSignature) to tell them
apart. The claims of a decoded Token aren't validated here.
*/
package jwt
