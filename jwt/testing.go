// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// TestGenerateKeys will generate a test RSA 2048 key pair. The public key is
// returned PEM encoded (PKIX) the way the provider publishes it.
func TestGenerateKeys(t *testing.T) (pub string, priv *rsa.PrivateKey) {
	t.Helper()
	require := require.New(t)
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)

	derBytes, err := x509.MarshalPKIXPublicKey(priv.Public())
	require.NoError(err)
	pub = string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}))
	return pub, priv
}

// TestSignJWT will bundle the provided claims into a test RS256 signed JWT.
// When kid is empty the header has no "kid".
func TestSignJWT(t *testing.T, key *rsa.PrivateKey, kid string, claims interface{}) string {
	t.Helper()
	require := require.New(t)

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		testSignerOptions(kid),
	)
	require.NoError(err)

	raw, err := josejwt.Signed(sig).Claims(claims).Serialize()
	require.NoError(err)
	return raw
}

// TestSignPayload will sign an arbitrary payload (which doesn't have to be a
// claims object) with RS256 and return its compact serialization.
func TestSignPayload(t *testing.T, key *rsa.PrivateKey, kid string, payload []byte) string {
	t.Helper()
	require := require.New(t)

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		testSignerOptions(kid),
	)
	require.NoError(err)

	jws, err := sig.Sign(payload)
	require.NoError(err)
	raw, err := jws.CompactSerialize()
	require.NoError(err)
	return raw
}

func testSignerOptions(kid string) *jose.SignerOptions {
	opts := (&jose.SignerOptions{}).WithType("JWT")
	if kid != "" {
		opts = opts.WithHeader("kid", kid)
	}
	return opts
}
