// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// CompactToken is the three segments of a JWS compact serialization. The
// segments are still base64url encoded.
type CompactToken struct {
	HeaderSegment    string
	PayloadSegment   string
	SignatureSegment string
}

// SigningInput returns the ASCII "header.payload" the signature was computed
// over.
func (c *CompactToken) SigningInput() string {
	return c.HeaderSegment + "." + c.PayloadSegment
}

// String returns the compact serialization.
func (c *CompactToken) String() string {
	return c.SigningInput() + "." + c.SignatureSegment
}

// Split the raw token into its header, payload and signature segments. The
// raw token must contain exactly three non-empty segments.
func Split(raw string) (*CompactToken, error) {
	const op = "jwt.Split"
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, newFormatError(op, ErrInvalidFormat, fmt.Sprintf("expected 3 segments and got %d", len(parts)), nil)
	}
	for i, p := range parts {
		if p == "" {
			return nil, newFormatError(op, ErrInvalidFormat, fmt.Sprintf("segment %d is empty", i), nil)
		}
	}
	return &CompactToken{
		HeaderSegment:    parts[0],
		PayloadSegment:   parts[1],
		SignatureSegment: parts[2],
	}, nil
}

var urlAlphabet = strings.NewReplacer("-", "+", "_", "/")

// URLDecode decodes a base64url segment. The stripped "=" padding is restored
// before decoding with the standard alphabet.
func URLDecode(segment string) ([]byte, error) {
	const op = "jwt.URLDecode"
	if len(segment)%4 == 1 {
		return nil, newFormatError(op, ErrInvalidEncoding, fmt.Sprintf("impossible segment length %d", len(segment)), nil)
	}
	s := urlAlphabet.Replace(segment)
	s += strings.Repeat("=", (4-len(s)%4)%4)
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, newFormatError(op, ErrInvalidEncoding, "", err)
	}
	return b, nil
}

// URLEncode encodes b as base64url without padding.
func URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// JSONDecode decodes a header or payload into a JSON object. The bare null
// literal is rejected along with anything that is not an object.
func JSONDecode(data []byte) (map[string]interface{}, error) {
	const op = "jwt.JSONDecode"
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, newFormatError(op, ErrInvalidJSON, "decoded value is null", nil)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, newFormatError(op, ErrInvalidJSON, "", err)
	}
	if obj == nil {
		return nil, newFormatError(op, ErrInvalidJSON, "decoded value is null", nil)
	}
	return obj, nil
}
