package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/feelmint/feelmint-go/feelmint/pro"
)

var proCMD = &cobra.Command{
	Use:   "pro",
	Short: "subscription tiers and upgrades",
}

var proTiersCMD = &cobra.Command{
	Use:   "tiers",
	Short: "list the available subscription tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, t := range pro.Tiers {
			cmd.Printf("%d %-6s daily=%d multiplier=%.1fx price=%.2f/%dd\n",
				t.Index, t.Name, t.DailyFreeTasks, t.RewardMultiplier, t.Price, t.DurationDays)
		}
		return nil
	},
}

var proStatusCMD = &cobra.Command{
	Use:   "status",
	Short: "show the active subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := bootstrappedApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		sub := app.Pro.Active()
		if sub == nil {
			cmd.Printf("free plan: %d daily tasks, 1.0x rewards\n", app.Pro.DailyFreeTasks())
			return nil
		}
		tier, _ := pro.TierByIndex(sub.Tier)
		cmd.Printf("%s until %s: %d daily tasks, %.1fx rewards\n",
			tier.Name, sub.ExpiresAt.Format("2006-01-02"), app.Pro.DailyFreeTasks(), app.Pro.Multiplier())
		return nil
	},
}

var proUpgradeCMD = &cobra.Command{
	Use:   "upgrade <tier>",
	Short: "purchase a subscription tier with the stablecoin",
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

		index, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("invalid tier %q: %w", args[0], err)
		}

		params, err := app.ChainParams(ctx)
		if err != nil {
			return err
		}

		sub, err := app.Pro.Upgrade(ctx, uint8(index), params.SubscriptionContract, params.StablecoinDecimals)
		if err != nil {
			return err
		}
		tier, _ := pro.TierByIndex(sub.Tier)
		cmd.Printf("upgraded to %s until %s\n", tier.Name, sub.ExpiresAt.Format("2006-01-02"))
		return nil
	},
}

func init() {
	proCMD.AddCommand(proTiersCMD, proStatusCMD, proUpgradeCMD)
	rootCmd.AddCommand(proCMD)
}
