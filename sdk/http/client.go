// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

var (
	ErrInvalidCertificatePem = errors.New("invalid certificate PEM")
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrTransport             = errors.New("http transport error")
	ErrResponseTooLarge      = errors.New("http response body too large")
)

// MaxResponseBytes bounds how much of a response body Fetch will read.
const MaxResponseBytes = 1 << 20

// NewClient creates a new http client which will use the optional CA certificate PEM
// if provided, otherwise it will use the installed system CA chain.
func NewClient(caPEM string) (*http.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, ErrInvalidCertificatePem
		}

		tr.TLSClientConfig = &tls.Config{
			RootCAs:    certPool,
			MinVersion: tls.VersionTLS12,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

// ContextClient returns the *http.Client carried by ctx under the
// golang.org/x/oauth2 HTTPClient key (which is also the key
// github.com/coreos/go-oidc uses) or the fallback when there isn't one.
func ContextClient(ctx context.Context, fallback *http.Client) *http.Client {
	if ctx != nil {
		if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
			return c
		}
	}
	if fallback != nil {
		return fallback
	}
	return cleanhttp.DefaultPooledClient()
}

// Request is an outbound http request.
type Request struct {
	// Method defaults to GET
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the status, headers and body of a completed request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Fetch sends the request and reads the whole response body. Any failure to
// send the request or read its response wraps ErrTransport and a body over
// MaxResponseBytes is ErrResponseTooLarge; a non-2xx status is not an error
// and is left for the caller to interpret.
func Fetch(ctx context.Context, client *http.Client, r *Request) (*Response, error) {
	const op = "http.Fetch"
	if r == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrInvalidParameter)
	}
	if r.URL == "" {
		return nil, fmt.Errorf("%s: url is empty: %w", op, ErrInvalidParameter)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := ContextClient(ctx, client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response body: %w: %w", op, ErrTransport, err)
	}
	if len(b) > MaxResponseBytes {
		return nil, fmt.Errorf("%s: body exceeds %d bytes: %w", op, MaxResponseBytes, ErrResponseTooLarge)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       b,
	}, nil
}
