package main

import (
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/trezcool/kelasi/storage/database"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run goose migration commands (up, down, status, version, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			dir, err := database.SetupMigrations(cli.db.DriverName())
			if err != nil {
				return err
			}
			return gooseRunFunc(cmd.Context(), args[0], cli.db.DB, dir, args[1:]...)
		},
	}
}
