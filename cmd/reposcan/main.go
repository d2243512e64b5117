package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "reposcan:", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "reposcan",
	Short:        "Clone GitHub repositories and analyze them with SonarQube",
	SilenceUsage: true,
}
