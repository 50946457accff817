// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Len is the length of an id without its prefix: 22 base62 characters carry
// more than 128 bits of entropy.
const Len = 22

// maxByte is the largest multiple of len(charset) a byte can hold. Random
// bytes at or above it are discarded so every character is equally likely.
const maxByte = 256 - (256 % len(charset))

// New generates a base62 random ID with an optional prefix, separated by "_".
func New(optionalPrefix string) (string, error) {
	id, err := random(Len)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

func random(length int) (string, error) {
	out := make([]byte, 0, length)
	for len(out) < length {
		// request a bit more than needed, some bytes get discarded
		b, err := uuid.GenerateRandomBytes(length + length/4)
		if err != nil {
			return "", err
		}
		for _, c := range b {
			if int(c) >= maxByte {
				continue
			}
			out = append(out, charset[int(c)%len(charset)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
