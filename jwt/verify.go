// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// RS256 is the only signing algorithm accepted. There is no algorithm
// negotiation: a token declaring anything else fails signature verification.
const RS256 = jose.RS256

// Token is a compact token whose signature has been verified.
type Token struct {
	// Raw is the compact serialization that was decoded.
	Raw string

	// Header is the decoded JOSE header.
	Header map[string]interface{}

	// Claims is the decoded payload.
	Claims map[string]interface{}

	// Payload is the decoded payload JSON.
	Payload []byte
}

// KeyId returns the header's key identifier.
func (t *Token) KeyId() string {
	kid, _ := t.Header["kid"].(string)
	return kid
}

// Decode splits and decodes the raw compact token, then verifies its RS256
// signature with the key the header's kid resolves to in keys. Every failure
// is a *FormatError.
func Decode(raw string, keys *KeySet) (*Token, error) {
	const op = "jwt.Decode"
	if keys == nil {
		return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrNilParameter)
	}
	ct, err := Split(raw)
	if err != nil {
		return nil, err
	}

	headerJSON, err := URLDecode(ct.HeaderSegment)
	if err != nil {
		return nil, err
	}
	header, err := JSONDecode(headerJSON)
	if err != nil {
		return nil, err
	}
	payload, err := URLDecode(ct.PayloadSegment)
	if err != nil {
		return nil, err
	}
	claims, err := JSONDecode(payload)
	if err != nil {
		return nil, err
	}
	if _, err := URLDecode(ct.SignatureSegment); err != nil {
		return nil, err
	}

	if err := VerifySignature(ct, header, keys); err != nil {
		return nil, err
	}

	return &Token{
		Raw:     raw,
		Header:  header,
		Claims:  claims,
		Payload: payload,
	}, nil
}

// VerifySignature resolves the key named by the header's kid and verifies the
// RS256 signature over the token's signing input. It has no side effects.
func VerifySignature(ct *CompactToken, header map[string]interface{}, keys *KeySet) error {
	const op = "jwt.VerifySignature"
	if ct == nil {
		return fmt.Errorf("%s: compact token is nil: %w", op, ErrNilParameter)
	}
	kid, ok := header["kid"].(string)
	if !ok {
		return newFormatError(op, ErrMissingKeyId, "", nil)
	}
	material, ok := keys.Key(kid)
	if !ok {
		return newFormatError(op, ErrKeyNotFound, fmt.Sprintf("kid %q", kid), nil)
	}
	pub, err := parsePublicKeyPEM([]byte(material))
	if err != nil {
		return newFormatError(op, ErrInvalidSignature, fmt.Sprintf("unusable key material for kid %q", kid), err)
	}

	jws, err := jose.ParseSigned(ct.String(), []jose.SignatureAlgorithm{RS256})
	if err != nil {
		return newFormatError(op, ErrInvalidSignature, "", err)
	}
	if _, err := jws.Verify(pub); err != nil {
		return newFormatError(op, ErrInvalidSignature, "", err)
	}
	return nil
}
