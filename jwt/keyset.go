// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
)

// KeySet is an immutable set of verification keys indexed by key identifier
// (kid). Key material is kept as published (PEM encoded public keys) and is
// only parsed when a signature is verified.
//
// A KeySet is read-only after NewKeySet returns, so it's safe to share between
// goroutines.
type KeySet struct {
	keys map[string]string
}

// NewKeySet parses a key document of the form {"kid": "PEM", ...}. The JSON
// null document yields an empty KeySet. Lookups for an unknown kid are never
// an error here; see KeySet.Key.
func NewKeySet(document string) (*KeySet, error) {
	const op = "jwt.NewKeySet"
	var keys map[string]string
	if err := json.Unmarshal([]byte(document), &keys); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidKeySet, err)
	}
	ks := &KeySet{
		keys: make(map[string]string, len(keys)),
	}
	for kid, k := range keys {
		ks.keys[kid] = k
	}
	return ks, nil
}

// Key returns the key material for kid and whether it was found.
func (ks *KeySet) Key(kid string) (string, bool) {
	if ks == nil {
		return "", false
	}
	k, ok := ks.keys[kid]
	return k, ok
}

// KeyIds returns the sorted key identifiers in the set.
func (ks *KeySet) KeyIds() []string {
	if ks == nil {
		return nil
	}
	ids := make([]string, 0, len(ks.keys))
	for kid := range ks.keys {
		ids = append(ids, kid)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of keys in the set.
func (ks *KeySet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keys)
}

// parsePublicKeyPEM is used to parse RSA public keys from PEMs. The PEM may
// hold a PKIX public key, a PKCS #1 public key or an x509 certificate.
func parsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("data does not contain a PEM block")
	}

	var rawKey interface{}
	var err error
	if rawKey, err = x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		if rsaKey, pkcs1Err := x509.ParsePKCS1PublicKey(block.Bytes); pkcs1Err == nil {
			rawKey = rsaKey
		} else if cert, certErr := x509.ParseCertificate(block.Bytes); certErr == nil {
			rawKey = cert.PublicKey
		} else {
			return nil, err
		}
	}

	if rsaPublicKey, ok := rawKey.(*rsa.PublicKey); ok {
		return rsaPublicKey, nil
	}
	return nil, fmt.Errorf("unsupported public key type %T", rawKey)
}
