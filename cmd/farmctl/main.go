// Package main implements farmctl, the operator CLI of the farm back office.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "farmctl",
	Short:         "Operate the farm back office",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env (%s): %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Optional dotenv file loaded before configuration")
	rootCmd.AddCommand(migrateCmd, reconcileCmd, leasesCmd, adminCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
