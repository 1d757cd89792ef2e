package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"backtest-engine/config"
	"backtest-engine/internal/engine"
	"backtest-engine/internal/service"

	"github.com/spf13/cobra"
)

var backtestFlags struct {
	file     string
	kind     string
	start    string
	end      string
	capital  float64
	seed     int64
	prices   string
	detailed bool
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a strategy file offline and print the result as JSON",
	RunE:  runBacktestCmd,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVarP(&backtestFlags.file, "file", "f", "", "strategy source file")
	f.StringVar(&backtestFlags.kind, "kind", string(engine.StrategyKindPineScript), "strategy kind")
	f.StringVar(&backtestFlags.start, "start", "", "range start (YYYY-MM-DD), defaults to 90 days ago")
	f.StringVar(&backtestFlags.end, "end", "", "range end (YYYY-MM-DD), defaults to today")
	f.Float64Var(&backtestFlags.capital, "capital", 0, "initial capital, defaults to config")
	f.Int64Var(&backtestFlags.seed, "seed", 0, "synthetic price seed, defaults to config")
	f.StringVar(&backtestFlags.prices, "prices", "", "JSON price file {start, period, prices} used instead of the synthetic walk")
	f.BoolVar(&backtestFlags.detailed, "detailed", false, "include trades and equity curve")
	_ = backtestCmd.MarkFlagRequired("file")
}

type priceFile struct {
	Start  time.Time `json:"start"`
	Period string    `json:"period"`
	Prices []float64 `json:"prices"`
}

func loadPriceFile(path string) (engine.PriceSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf priceFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse price file: %w", err)
	}
	period, err := time.ParseDuration(pf.Period)
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: %w", pf.Period, err)
	}
	return &engine.StaticSource{Series: engine.PriceSeries{Start: pf.Start, Period: period, Prices: pf.Prices}}, nil
}

func parseRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	to := now.Truncate(24 * time.Hour)
	if end != "" {
		t, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
		to = t
	}
	from := to.AddDate(0, 0, -90)
	if start != "" {
		t, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
		from = t
	}
	return from, to, nil
}

func runBacktestCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	code, err := os.ReadFile(backtestFlags.file)
	if err != nil {
		return err
	}
	from, to, err := parseRange(backtestFlags.start, backtestFlags.end, time.Now().UTC())
	if err != nil {
		return err
	}

	var source engine.PriceSource
	if backtestFlags.prices != "" {
		if source, err = loadPriceFile(backtestFlags.prices); err != nil {
			return err
		}
	} else {
		sc := service.SyntheticConfig(cfg.Backtest)
		if cmd.Flags().Changed("seed") {
			sc.Seed = backtestFlags.seed
		}
		source = engine.NewSyntheticSource(sc)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backtest.Timeout)
	defer cancel()
	series, err := source.Prices(ctx, from, to)
	if err != nil {
		return err
	}

	ec := service.EngineConfig(cfg.Backtest)
	if backtestFlags.capital > 0 {
		ec.InitialCapital = backtestFlags.capital
	}
	result, params, issues, err := engine.New(ec).Run(engine.StrategyDefinition{
		Kind: engine.StrategyKind(backtestFlags.kind),
		Code: string(code),
	}, series)
	if err != nil {
		return err
	}
	if !backtestFlags.detailed {
		result.Trades = nil
		result.EquityCurve = nil
	}

	return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
		"parameters": params,
		"issues":     issues,
		"result":     result,
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// configOrDefault keeps offline commands usable when no config is present.
func configOrDefault() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.Default()
	}
	return cfg
}
