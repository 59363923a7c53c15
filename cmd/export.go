package main

import (
	"fmt"
	"io"
	"os"

	"github.com/classof2022/reunion-registration/registration"
	"github.com/spf13/cobra"
)

var (
	exportStatus string
	exportSearch string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write registrations as CSV",
	Long: `Write every registration in the configured store as CSV, newest first.

Examples:
  reunion export > registrations.csv
  reunion export --status completed --output paid.csv
  reunion export --search asha`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "only include registrations with this payment status (pending, completed, failed)")
	exportCmd.Flags().StringVar(&exportSearch, "search", "", "only include registrations whose name, email or phone matches")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write to (default: stdout)")
}

func exportFilter() (registration.Filter, error) {
	filter := registration.Filter{Search: exportSearch}
	if exportStatus != "" {
		status, err := registration.ParsePaymentStatus(exportStatus)
		if err != nil {
			return registration.Filter{}, fmt.Errorf("invalid --status: %w", err)
		}
		filter.Status = &status
	}
	return filter, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	filter, err := exportFilter()
	if err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, closeDB, err := openStore(ctx, settings.Store, &awsConfigLoader{})
	if err != nil {
		return err
	}
	defer closeDB()

	all, err := registration.ListAll(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to list registrations: %w", err)
	}
	regs := registration.FilterRegistrations(all, filter)

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	if err := registration.WriteCSV(out, regs); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d of %d registrations\n", len(regs), len(all))
	return nil
}
