// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"

	"github.com/hashicorp/yconnect/sdk/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNonce(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		n, err := NewNonce()
		require.NoError(err)
		assert.Len(n, id.Len)
		assert.NotContains(n, "_")
		_, dup := seen[n]
		require.Falsef(dup, "duplicate nonce %s", n)
		seen[n] = struct{}{}
	}
}
