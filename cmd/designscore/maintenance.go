package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/designscore/dbopen"
	"github.com/hazyhaar/designscore/shield"
	"github.com/hazyhaar/designscore/store"
)

func newMaintenanceCmd(gf *globalFlags) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:       "maintenance on|off",
		Short:     "Toggle maintenance mode of running API servers",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(gf, os.Stderr)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath, dbopen.WithSchema(shield.Schema))
			if err != nil {
				return err
			}
			defer st.Close()

			on := args[0] == "on"
			if err := shield.SetMaintenance(cmd.Context(), st.DB, on, message); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "maintenance %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message shown to clients")
	return cmd
}
