package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"school_inventory_tool/app"
	"school_inventory_tool/db"
	"school_inventory_tool/models"
)

var (
	inviteRole       string
	inviteDepartment string
	inviteCourse     string
	inviteDays       int
)

var inviteCmd = &cobra.Command{
	Use:   "invite <email>",
	Short: "Create a registration invite and print its link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		gdb, err := db.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		if err := db.Migrate(gdb); err != nil {
			return err
		}

		token := app.NewToken()
		inv, err := db.NewRepo(gdb).CreateInvite(cmd.Context(), db.CreateInviteInput{
			Email:      args[0],
			Token:      token,
			Role:       inviteRole,
			Department: inviteDepartment,
			Course:     inviteCourse,
			ExpiresAt:  time.Now().AddDate(0, 0, inviteDays),
			CreatedBy:  "cli",
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "invite for %s (%s): %s\n", inv.Email, inv.Role, app.InviteLink(cfg.HTTP.WebOrigin, token))
		return nil
	},
}

func init() {
	inviteCmd.Flags().StringVarP(&inviteRole, "role", "r", models.RoleStudent, "role granted on registration")
	inviteCmd.Flags().StringVar(&inviteDepartment, "department", "", "department")
	inviteCmd.Flags().StringVar(&inviteCourse, "course", "", "course")
	inviteCmd.Flags().IntVar(&inviteDays, "days", 1, "days until the invite expires")
	rootCmd.AddCommand(inviteCmd)
}
