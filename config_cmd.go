package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/viewhubs/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigShow(w io.Writer) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(redactedConfig(resolvedCfg))
	}

	return config.RenderEffective(resolvedCfg, resolvedPath, w)
}

// redactedConfig returns a copy of cfg with secrets masked for display.
func redactedConfig(cfg *config.Config) *config.Config {
	c := *cfg

	if c.Forge.ClientSecret != "" {
		c.Forge.ClientSecret = "********"
	}

	if c.Session.Secret != "" {
		c.Session.Secret = "********"
	}

	return &c
}
