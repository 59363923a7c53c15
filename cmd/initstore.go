package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/classof2022/reunion-registration/dynamo"
	"github.com/classof2022/reunion-registration/sqlite"
	"github.com/spf13/cobra"
)

var initStoreCmd = &cobra.Command{
	Use:   "init-store",
	Short: "Create the registration table or database file",
	Long: `Create the DynamoDB table (with its listing index) or the SQLite
database for the configured store. Running it against an existing store
changes nothing.`,
	RunE: runInitStore,
}

func runInitStore(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	switch settings.Store.Kind {
	case "dynamo":
		cfg, err := (&awsConfigLoader{}).get(ctx)
		if err != nil {
			return err
		}
		if err := dynamo.NewDB(dynamodb.NewFromConfig(cfg), settings.Store.DynamoTable).CreateTable(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dynamo table %q ready\n", settings.Store.DynamoTable)
	case "sqlite":
		db, err := sqlite.Open(ctx, settings.Store.SQLitePath)
		if err != nil {
			return err
		}
		if err := db.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sqlite database %q ready\n", settings.Store.SQLitePath)
	default:
		return fmt.Errorf("unknown store kind %q", settings.Store.Kind)
	}
	return nil
}
