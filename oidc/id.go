// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/hashicorp/yconnect/sdk/id"
)

// NewNonce generates a random nonce for an authentication request. The same
// nonce must be passed when the resulting id_token is verified.
func NewNonce() (string, error) {
	const op = "oidc.NewNonce"
	n, err := id.New("")
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate nonce: %w: %w", op, ErrIdGeneratorFailed, err)
	}
	return n, nil
}
