// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	type args struct {
		prefix string
	}
	tests := []struct {
		name    string
		args    args
		wantLen int
	}{
		{
			name: "valid",
			args: args{
				prefix: "n",
			},
			wantLen: Len + len("n_"),
		},
		{
			name: "no-prefix",
			args: args{
				prefix: "",
			},
			wantLen: Len,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := New(tt.args.prefix)
			require.NoError(err)
			if tt.args.prefix != "" {
				assert.Truef(strings.HasPrefix(got, tt.args.prefix+"_"), "New() = %v, wanted it to start with %v", got, tt.args.prefix)
			}
			assert.Lenf(got, tt.wantLen, "New() = %v, with len of %d and wanted len of %v", got, len(got), tt.wantLen)
			assert.Equal(got, url.QueryEscape(got), "id must be url safe")
			id := strings.TrimPrefix(got, tt.args.prefix+"_")
			for _, c := range id {
				assert.Truef(strings.ContainsRune(charset, c), "New() = %v, %q isn't base62", got, c)
			}
		})
	}
	t.Run("separator-only-after-prefix", func(t *testing.T) {
		for i := 0; i < 1000; i++ {
			got, err := New("")
			require.NoError(t, err)
			require.NotContainsf(t, got, "_", "New() = %v", got)
		}
	})
	t.Run("unique", func(t *testing.T) {
		seen := map[string]struct{}{}
		for i := 0; i < 100; i++ {
			got, err := New("")
			require.NoError(t, err)
			_, dup := seen[got]
			require.False(t, dup)
			seen[got] = struct{}{}
		}
	})
}
