package main

import (
	"log/slog"

	"github.com/feelmint/feelmint-go/cmd"
	"github.com/feelmint/feelmint-go/feelmint/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler("feelmint")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting FeelMint agent",
		slog.String("version", version),
		slog.String("commit", commit))

	cmd.Execute(version, commit)
}
