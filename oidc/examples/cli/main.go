// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Command cli verifies a YConnect id_token: it fetches the provider's public
// keys, verifies the id_token and prints its claims. With -userinfo it also
// prints the user's attributes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/yconnect/oidc"
	"golang.org/x/oauth2"
)

// List of configuration environment variables
const (
	clientID    = "YCONNECT_CLIENT_ID"
	issuer      = "YCONNECT_ISSUER"
	publicKeys  = "YCONNECT_PUBLIC_KEYS_URL"
	userInfo    = "YCONNECT_USERINFO_URL"
	providerCA  = "YCONNECT_PROVIDER_CA"
	logLevelEnv = "YCONNECT_LOG_LEVEL"
)

func envConfig() (map[string]string, error) {
	const op = "envConfig"
	env := map[string]string{
		clientID:   os.Getenv(clientID),
		issuer:     os.Getenv(issuer),
		publicKeys: os.Getenv(publicKeys),
		userInfo:   os.Getenv(userInfo),
		providerCA: os.Getenv(providerCA),
	}
	if env[clientID] == "" {
		return nil, fmt.Errorf("%s: %s is empty", op, clientID)
	}
	return env, nil
}

func main() {
	idToken := flag.String("id-token", "", "the id_token to verify, read from stdin when empty")
	accessToken := flag.String("access-token", "", "the access_token issued with the id_token, checked against at_hash")
	nonce := flag.String("nonce", "", "the nonce sent with the authentication request")
	withUserInfo := flag.Bool("userinfo", false, "print the user's attributes, requires -access-token")
	timeout := flag.Duration("timeout", 30*time.Second, "timeout for requests to the provider")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "yconnect-cli",
		Level: hclog.LevelFromString(os.Getenv(logLevelEnv)),
	})

	if err := run(logger, *idToken, *accessToken, *nonce, *withUserInfo, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger, idToken, accessToken, nonce string, withUserInfo bool, timeout time.Duration) error {
	env, err := envConfig()
	if err != nil {
		return err
	}
	if nonce == "" {
		return errors.New("-nonce is required")
	}
	if withUserInfo && accessToken == "" {
		return errors.New("-userinfo requires -access-token")
	}
	if idToken == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("unable to read id_token from stdin: %w", err)
		}
		idToken = strings.TrimSpace(string(b))
	}

	opts := []oidc.Option{oidc.WithLogger(logger)}
	if env[issuer] != "" {
		opts = append(opts, oidc.WithIssuer(env[issuer]))
	}
	if env[publicKeys] != "" {
		opts = append(opts, oidc.WithPublicKeysURL(env[publicKeys]))
	}
	if env[userInfo] != "" {
		opts = append(opts, oidc.WithUserInfoURL(env[userInfo]))
	}
	if env[providerCA] != "" {
		opts = append(opts, oidc.WithProviderCA(env[providerCA]))
	}
	pc, err := oidc.NewConfig(env[clientID], opts...)
	if err != nil {
		return err
	}
	p, err := oidc.NewProvider(pc)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	keys, err := p.FetchKeySet(ctx)
	if err != nil {
		return err
	}
	id, err := p.VerifyIdToken(ctx, keys, oidc.IdToken(idToken), nonce, oidc.AccessToken(accessToken))
	if err != nil {
		var ce *oidc.ClaimsError
		if errors.As(err, &ce) {
			return fmt.Errorf("id_token rejected: %s", ce.Code)
		}
		return err
	}
	if err := printJSON("id_token claims", id.AllClaims()); err != nil {
		return err
	}

	if withUserInfo {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		var info map[string]interface{}
		if err := p.UserInfo(ctx, ts, &info); err != nil {
			if pe, ok := oidc.ProviderErrorFrom(err); ok {
				return fmt.Errorf("attribute endpoint error %s: %s", pe.Code, pe.Description)
			}
			return err
		}
		if err := printJSON("user info", info); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(title string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("unable to marshal %s: %w", title, err)
	}
	fmt.Printf("%s:\n%s\n", title, b)
	return nil
}
