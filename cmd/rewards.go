package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feelmint/feelmint-go/feelmint/api"
)

var rewardsCMD = &cobra.Command{
	Use:   "rewards",
	Short: "inspect balances and claim rewards on-chain",
}

var rewardsShowCMD = &cobra.Command{
	Use:   "show",
	Short: "show claimable balances and recent records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, category := range []api.RewardCategory{api.RewardDaily, api.RewardInvite, api.RewardPro} {
			cmd.Printf("%-8s claimable=%.4f\n", category, app.Ledger.Claimable(category))
			for _, r := range app.Ledger.Records(category) {
				cmd.Printf("  nonce=%d amount=%.4f status=%s tx=%s\n", r.Nonce, r.TotalAmount, r.Status, r.TxHash)
			}
		}
		return nil
	},
}

var rewardsClaimCMD = &cobra.Command{
	Use:   "claim <category>",
	Short: "mint the claimable balance of a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if app.Chain == nil {
			return fmt.Errorf("no chain backend configured, set chain.rpc_url and chain.private_key")
		}

		category := api.RewardCategory(args[0])
		flow := app.Ledger.NewClaimFlow(app.Chain, category)
		if flow.Amount() <= 0 {
			return fmt.Errorf("nothing to claim for category %s", category)
		}

		cmd.Printf("claiming %.4f (%s)...\n", flow.Amount(), category)
		txHash, err := flow.Confirm(ctx, nil)
		if err != nil {
			return err
		}
		cmd.Printf("claimed, tx %s\n", txHash)
		return nil
	},
}

func init() {
	rewardsCMD.AddCommand(rewardsShowCMD, rewardsClaimCMD)
	rootCmd.AddCommand(rewardsCMD)
}
