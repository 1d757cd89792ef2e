package cmd

import (
	"backtest-engine/internal/dto"
	"backtest-engine/internal/repository"
	"backtest-engine/internal/risk"

	"github.com/spf13/cobra"
)

var evaluateFlags struct {
	req         dto.EvaluateSignalRequest
	dailyPnLPct float64
	failedToday int
	avgWin      float64
	avgLoss     float64
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Filter and size a candidate trade offline with the configured thresholds",
	RunE:  runEvaluateCmd,
}

func init() {
	f := evaluateCmd.Flags()
	r := &evaluateFlags.req
	f.StringVar(&r.Source, "source", "cli", "candidate source")
	f.StringVar(&r.Symbol, "symbol", "", "asset symbol")
	f.StringVar(&r.Action, "action", "BUY", "BUY or SELL")
	f.Float64Var(&r.AmountUSD, "amount", 0, "observed trade size in USD")
	f.IntVar(&r.TotalTrades, "trades", 0, "trailing trade count")
	f.Float64Var(&r.WinRate, "win-rate", 0, "trailing win rate (0..1)")
	f.Float64Var(&r.ROI30d, "roi-30d", 0, "trailing 30 day ROI (0.15 is 15%)")
	f.Float64Var(&r.PortfolioValue, "portfolio", 0, "portfolio value, defaults to config")
	f.Float64Var(&evaluateFlags.avgWin, "avg-win", 0, "average winning return, defaults to config")
	f.Float64Var(&evaluateFlags.avgLoss, "avg-loss", 0, "average losing return, defaults to config")
	f.Float64Var(&evaluateFlags.dailyPnLPct, "daily-pnl", 0, "today's PnL as a fraction")
	f.IntVar(&evaluateFlags.failedToday, "failed-today", 0, "failed executions today")
	_ = evaluateCmd.MarkFlagRequired("symbol")
}

func runEvaluateCmd(cmd *cobra.Command, _ []string) error {
	cfg := configOrDefault()
	req := evaluateFlags.req
	if cmd.Flags().Changed("avg-win") {
		req.AvgWin = &evaluateFlags.avgWin
	}
	if cmd.Flags().Changed("avg-loss") {
		req.AvgLoss = &evaluateFlags.avgLoss
	}
	portfolio := req.PortfolioValue
	if portfolio <= 0 {
		portfolio = cfg.Risk.PortfolioValue
	}

	th := repository.ThresholdsFromConfig(cfg.Risk)
	decision := risk.Evaluate(req.ToCandidate(), risk.DailyState{
		PnLPct:           evaluateFlags.dailyPnLPct,
		FailedExecutions: evaluateFlags.failedToday,
	}, th, portfolio)

	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
		"status":   decision.Status(),
		"decision": decision,
	})
}
