package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/feelmint/feelmint-go/feelmint/devserver"
)

var (
	devAddr    string
	devSignKey string
)

var devCMD = &cobra.Command{
	Use:   "dev",
	Short: "run the local development API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := fmt.Sprintf("http://%s", devAddr)
		srv, err := devserver.New(baseURL, devSignKey)
		if err != nil {
			return err
		}

		go func() {
			<-cmd.Context().Done()
			slog.Info("Shutting down dev server...")
			if err := srv.Shutdown(); err != nil {
				slog.Error("Dev server shutdown failed", slog.Any("error", err))
			}
		}()

		slog.Info("Dev server listening", slog.String("addr", devAddr))
		return srv.Listen(devAddr)
	},
}

func init() {
	devCMD.Flags().StringVar(&devAddr, "addr", "127.0.0.1:8787", "listen address")
	devCMD.Flags().StringVar(&devSignKey, "sign-key", devserver.DevSignKey, "voucher signing key (hex)")

	rootCmd.AddCommand(devCMD)
}
