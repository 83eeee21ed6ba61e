package cmd

import (
	"github.com/spf13/cobra"
)

var referralCMD = &cobra.Command{
	Use:   "referral",
	Short: "invite codes and referral binding",
}

var referralCodeCMD = &cobra.Command{
	Use:   "code",
	Short: "show your invite code",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		code, err := app.Referral.InviteCode()
		if err != nil {
			return err
		}
		cmd.Println(code)
		return nil
	},
}

var referralVerifyCMD = &cobra.Command{
	Use:   "verify <code>",
	Short: "check whether an invite code is usable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		ok, err := app.Referral.VerifyCode(ctx, args[0])
		if err != nil {
			return err
		}
		if ok {
			cmd.Println("code is valid")
		} else {
			cmd.Println("code is not usable")
		}
		return nil
	},
}

var referralBindCMD = &cobra.Command{
	Use:   "bind <code>",
	Short: "bind an inviter's code to your account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Referral.BindCode(ctx, args[0]); err != nil {
			return err
		}
		cmd.Println("referral bound")
		return nil
	},
}

var referralInviteesCMD = &cobra.Command{
	Use:   "invitees",
	Short: "list users who joined with your code",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		invitees, err := app.Referral.Invitees(ctx)
		if err != nil {
			return err
		}
		if len(invitees) == 0 {
			cmd.Println("No invitees yet.")
			return nil
		}
		for _, inv := range invitees {
			cmd.Printf("%-20s pending=%.4f claimed=%.4f\n", inv.Nickname, inv.Pending, inv.Claimed)
		}
		return nil
	},
}

func init() {
	referralCMD.AddCommand(referralCodeCMD, referralVerifyCMD, referralBindCMD, referralInviteesCMD)
	rootCmd.AddCommand(referralCMD)
}
