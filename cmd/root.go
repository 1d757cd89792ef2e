package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtest-engine",
	Short: "Strategy backtesting and risk-sizing service",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
