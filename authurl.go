package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/viewhubs/internal/config"
	"github.com/tonimelisma/viewhubs/internal/forgeauth"
)

func newAuthURLCmd() *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "authurl",
		Short: "Print the authorization URL for the configured application",
		Long: `Print the URL a browser must visit to grant this application access.
The internal scope set is requested unless --public is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scopes := forgeauth.InternalScopes
			if public {
				scopes = forgeauth.PublicScopes
			}

			return runAuthURL(cmd.OutOrStdout(), resolvedCfg, scopes)
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "request only the public (viewer) scopes")

	return cmd
}

type authURLOutput struct {
	URL    string `json:"url"`
	Scopes string `json:"scopes"`
}

func runAuthURL(w io.Writer, cfg *config.Config, scopes []string) error {
	if cfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if err := config.RequireCredentials(&cfg.Forge, false); err != nil {
		return err
	}

	broker := forgeauth.NewBroker(forgeauth.Config{
		ClientID:    cfg.Forge.ClientID,
		CallbackURL: cfg.Forge.CallbackURL,
		AuthURL:     cfg.Forge.AuthURL,
		TokenURL:    cfg.Forge.TokenURL,
	}, nil, nil, nil)

	url := broker.AuthorizationURL(scopes)

	if flagJSON {
		return json.NewEncoder(w).Encode(authURLOutput{URL: url, Scopes: strings.Join(scopes, " ")})
	}

	_, err := fmt.Fprintln(w, url)

	return err
}
