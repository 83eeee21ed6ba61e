package cmd

import (
	"github.com/spf13/cobra"
)

var profileCMD = &cobra.Command{
	Use:   "profile",
	Short: "show or update your account profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		p := app.User.Profile()
		cmd.Printf("address:  %s\n", p.Address)
		cmd.Printf("nickname: %s\n", p.Nickname)
		if p.ReferCode != "" {
			cmd.Printf("referrer: %s (%s)\n", p.ReferUser, p.ReferCode)
		}
		return nil
	},
}

var profileNicknameCMD = &cobra.Command{
	Use:   "nickname <name>",
	Short: "change your display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.User.UpdateNickname(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("nickname updated to %s\n", args[0])
		return nil
	},
}

func init() {
	profileCMD.AddCommand(profileNicknameCMD)
	rootCmd.AddCommand(profileCMD)
}
