// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/hashicorp/yconnect/jwt"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testPublicKeysPath = "/yconnect/v2/public-keys"
	testUserInfoPath   = "/yconnect/v2/attribute"
	testIssuerPath     = "/yconnect/v2"
)

// TestProvider is a local TLS server that stands in for YConnect. It serves
// a public keys endpoint and an attribute (userinfo) endpoint, and it issues
// id_tokens signed with its own RS256 key.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	keyId      string
	publicKey  string
	privateKey *rsa.PrivateKey

	mu                  sync.Mutex
	expectedAccessToken string
	replyUserInfo       map[string]interface{}
	rawUserInfo         *string
	disablePublicKeys   bool

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider which is stopped when
// the test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		keyId: "test-kid",
		replyUserInfo: map[string]interface{}{
			"sub":            "ZYXWVUTSRQPONMLKJIHGFEDCBA",
			"name":           "Taro Yahoo",
			"email":          "yconnect@example.com",
			"email_verified": true,
		},
		t: t,
	}
	p.publicKey, p.privateKey = jwt.TestGenerateKeys(t)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// Issuer returns the "iss" of the id_tokens the test provider issues.
func (p *TestProvider) Issuer() string { return p.Addr() + testIssuerPath }

// PublicKeysURL returns the URL of the test provider's public keys endpoint.
func (p *TestProvider) PublicKeysURL() string { return p.Addr() + testPublicKeysPath }

// UserInfoURL returns the URL of the test provider's attribute endpoint.
func (p *TestProvider) UserInfoURL() string { return p.Addr() + testUserInfoPath }

// KeyId returns the kid of the test provider's signing key.
func (p *TestProvider) KeyId() string { return p.keyId }

// SigningKeys returns the test provider's pem-encoded public key and its
// private key used to sign id_tokens.
func (p *TestProvider) SigningKeys() (pub string, priv *rsa.PrivateKey) {
	return p.publicKey, p.privateKey
}

// KeySet returns the key set the public keys endpoint publishes.
func (p *TestProvider) KeySet() *jwt.KeySet {
	p.t.Helper()
	ks, err := jwt.NewKeySet(p.keyDocument())
	require.NoError(p.t, err)
	return ks
}

// SetExpectedAccessToken configures the only access_token the attribute
// endpoint accepts.
func (p *TestProvider) SetExpectedAccessToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAccessToken = token
}

// SetUserInfo configures the attributes returned by the attribute endpoint.
func (p *TestProvider) SetUserInfo(info map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserInfo = info
}

// SetRawUserInfo configures the attribute endpoint to reply with body, as is,
// and a 200 status.
func (p *TestProvider) SetRawUserInfo(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rawUserInfo = &body
}

// DisablePublicKeys makes the public keys endpoint return a 500 error.
func (p *TestProvider) DisablePublicKeys() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disablePublicKeys = true
}

// IssueIdToken signs the claims as an RS256 id_token with the test
// provider's key.
func (p *TestProvider) IssueIdToken(claims map[string]interface{}) IdToken {
	p.t.Helper()
	return IdToken(jwt.TestSignJWT(p.t, p.privateKey, p.keyId, claims))
}

// IssueToken returns a token endpoint response for clientId and nonce: a
// random access_token which the attribute endpoint accepts and an id_token
// bound to it through "at_hash".
func (p *TestProvider) IssueToken(clientId, nonce string) *oauth2.Token {
	p.t.Helper()
	at, err := uuid.GenerateUUID()
	require.NoError(p.t, err)
	p.SetExpectedAccessToken(at)

	idt := p.IssueIdToken(TestIdTokenClaims(p.t, p.Issuer(), clientId, nonce, at, time.Now()))
	tk := &oauth2.Token{
		AccessToken:  at,
		TokenType:    "Bearer",
		RefreshToken: "refresh-" + at,
		Expiry:       time.Now().Add(time.Hour),
	}
	return tk.WithExtra(map[string]interface{}{
		"id_token": string(idt),
	})
}

func (p *TestProvider) keyDocument() string {
	b, err := json.Marshal(map[string]string{p.keyId: p.publicKey})
	require.NoError(p.t, err)
	return string(b)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case testPublicKeysPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.disablePublicKeys {
			_ = p.writeErrorResponse(w, http.StatusInternalServerError, "server_error", "public keys are unavailable")
			return
		}
		_, _ = io.WriteString(w, p.keyDocument())

	case testUserInfoPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch req.Header.Get("Authorization") {
		case "":
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_request", error_description="missing access token"`)
			w.WriteHeader(http.StatusBadRequest)
			return
		case fmt.Sprintf("Bearer %s", p.expectedAccessToken):
		default:
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="the access token is invalid"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.rawUserInfo != nil {
			_, _ = io.WriteString(w, *p.rawUserInfo)
			return
		}
		if p.replyUserInfo == nil {
			_ = p.writeErrorResponse(w, http.StatusForbidden, "insufficient_scope", "no attributes")
			return
		}
		_ = p.writeJSON(w, p.replyUserInfo)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
