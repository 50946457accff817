// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

// TestIdTokenClaims returns the claims of an id_token for clientId and nonce,
// issued by iss now and expiring in an hour. at_hash is only set when
// accessToken isn't empty.
func TestIdTokenClaims(t *testing.T, iss, clientId, nonce, accessToken string, now time.Time) map[string]interface{} {
	t.Helper()
	claims := map[string]interface{}{
		"iss":       iss,
		"sub":       "ZYXWVUTSRQPONMLKJIHGFEDCBA",
		"aud":       []string{clientId},
		"exp":       now.Add(time.Hour).Unix(),
		"iat":       now.Unix(),
		"auth_time": now.Unix(),
		"nonce":     nonce,
		"amr":       []string{"pwd"},
	}
	if accessToken != "" {
		claims["at_hash"] = AccessTokenHash(accessToken)
	}
	return claims
}

// TestConfig returns a Config for clientId which uses the TestProvider's
// issuer, endpoints and CA. Additional options override those.
func TestConfig(t *testing.T, p *TestProvider, clientId string, opt ...Option) *Config {
	t.Helper()
	require := require.New(t)
	opts := append([]Option{
		WithIssuer(p.Issuer()),
		WithPublicKeysURL(p.PublicKeysURL()),
		WithUserInfoURL(p.UserInfoURL()),
		WithProviderCA(p.CACert()),
		WithLogger(hclog.New(&hclog.LoggerOptions{
			Name:   "test-provider",
			Level:  hclog.Debug,
			Output: hclog.DefaultOutput,
		})),
	}, opt...)
	c, err := NewConfig(clientId, opts...)
	require.NoError(err)
	return c
}

// TestGenerateCA will generate a test x509 CA cert encoded in a PEM format.
func TestGenerateCA(t *testing.T, hosts []string) string {
	t.Helper()
	require := require.New(t)

	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(err)

	notBefore := time.Now()
	notAfter := notBefore.Add(2 * time.Minute)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	require.NoError(err)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Acme Co"},
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes}))
}
