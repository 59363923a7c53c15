package main

import (
	"fmt"
	"net"

	"github.com/classof2022/reunion-registration/config"
	"github.com/spf13/cobra"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate settings and print what serve would wire up",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		for _, line := range describeSettings(settings) {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		if settings.CatalogFile != "" {
			if _, err := config.LoadCatalog(settings.CatalogFile); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "settings OK")
		return nil
	},
}

func describeSettings(settings config.Settings) []string {
	lines := []string{
		fmt.Sprintf("environment: %s", settings.Environment()),
		fmt.Sprintf("listen: %s", net.JoinHostPort(settings.Host, settings.Port)),
		fmt.Sprintf("store: %s", settings.Store.Kind),
		fmt.Sprintf("blob: %s", settings.Blob.Kind),
		fmt.Sprintf("tracing: %t (%s)", settings.Tracing.Enabled, settings.Tracing.Exporter),
	}
	if settings.CatalogFile != "" {
		lines = append(lines, fmt.Sprintf("catalog: %s (watched)", settings.CatalogFile))
	} else {
		lines = append(lines, "catalog: built-in")
	}
	if settings.NeedsSecrets() {
		lines = append(lines, "secrets: resolved from ssm at startup")
	}
	return lines
}
