package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Cache     Cache          `mapstructure:"cache"`
	Backtest  Backtest       `mapstructure:"backtest"`
	Risk      Risk           `mapstructure:"risk"`
	Oracle    Oracle         `mapstructure:"oracle"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Scheduler struct {
	LeaderboardCron string `mapstructure:"leaderboard_cron"`
	CleanupCron     string `mapstructure:"cleanup_cron"`
}

type API struct {
	Port             int `mapstructure:"port"`
	MaxRequestPerSec int `mapstructure:"max_request_per_sec"`
	MaxRequestBurst  int `mapstructure:"max_request_burst"`
}

type Cache struct {
	DefaultExpiration      time.Duration `mapstructure:"default_expiration"`
	CleanupInterval        time.Duration `mapstructure:"cleanup_interval"`
	SysParamExpDuration    time.Duration `mapstructure:"sys_param_exp_duration"`
	LeaderboardExpDuration time.Duration `mapstructure:"leaderboard_exp_duration"`
}

// Backtest configures the engine cost model, the synthetic price walk and
// the async worker pool.
type Backtest struct {
	InitialCapital      float64       `mapstructure:"initial_capital"`
	Slippage            float64       `mapstructure:"slippage"`
	Commission          float64       `mapstructure:"commission"`
	EquityStride        int           `mapstructure:"equity_stride"`
	Annualization       float64       `mapstructure:"annualization"`
	SyntheticStartPrice float64       `mapstructure:"synthetic_start_price"`
	SyntheticFloor      float64       `mapstructure:"synthetic_floor"`
	SyntheticDrift      float64       `mapstructure:"synthetic_drift"`
	SyntheticVolatility float64       `mapstructure:"synthetic_volatility"`
	SyntheticSeed       int64         `mapstructure:"synthetic_seed"`
	PeriodsPerDay       int           `mapstructure:"periods_per_day"`
	MaxConcurrency      int           `mapstructure:"max_concurrency"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RetentionDays       int           `mapstructure:"retention_days"`
}

type Risk struct {
	MinTradeSizeUSD     float64 `mapstructure:"min_trade_size_usd"`
	MinTrades           int     `mapstructure:"min_trades"`
	MinWinRate          float64 `mapstructure:"min_win_rate"`
	MinROI30d           float64 `mapstructure:"min_roi_30d"`
	MinConfidence       float64 `mapstructure:"min_confidence"`
	MaxPositionPct      float64 `mapstructure:"max_position_pct"`
	MinPositionUSD      float64 `mapstructure:"min_position_usd"`
	MaxDailyDrawdownPct float64 `mapstructure:"max_daily_drawdown_pct"`
	MaxDailyFailures    int     `mapstructure:"max_daily_failures"`
	KellyMultiplier     float64 `mapstructure:"kelly_multiplier"`
	DefaultAvgWin       float64 `mapstructure:"default_avg_win"`
	DefaultAvgLoss      float64 `mapstructure:"default_avg_loss"`
	PortfolioValue      float64 `mapstructure:"portfolio_value"`
}

// Oracle configures the advisory Kelly cross-check. Provider is "gemini" or
// "http".
type Oracle struct {
	Enabled             bool          `mapstructure:"enabled"`
	Provider            string        `mapstructure:"provider"`
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
	Tolerance           float64       `mapstructure:"tolerance"`
}

type TelegramConfig struct {
	Enabled                   bool          `mapstructure:"enabled"`
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
}

// Default returns a configuration usable without any file or environment.
func Default() *Config {
	return &Config{
		Log: Logger{Level: "info", Encoding: "json"},
		DB: Database{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "backtest",
			SSLMode:         "disable",
			TimeZone:        "UTC",
			MaxIdleConns:    5,
			MaxOpenConns:    20,
			ConnMaxLifetime: "1h",
			LogLevel:        "warn",
		},
		API: API{Port: 8080, MaxRequestPerSec: 20, MaxRequestBurst: 40},
		Scheduler: Scheduler{
			LeaderboardCron: "*/15 * * * *",
			CleanupCron:     "0 3 * * *",
		},
		Cache: Cache{
			DefaultExpiration:      10 * time.Minute,
			CleanupInterval:        15 * time.Minute,
			SysParamExpDuration:    5 * time.Minute,
			LeaderboardExpDuration: 15 * time.Minute,
		},
		Backtest: Backtest{
			InitialCapital:      10000,
			Slippage:            0.001,
			Commission:          0.0006,
			EquityStride:        10,
			Annualization:       252,
			SyntheticStartPrice: 45000,
			SyntheticFloor:      100,
			SyntheticDrift:      0.0001,
			SyntheticVolatility: 0.02,
			SyntheticSeed:       1,
			PeriodsPerDay:       6,
			MaxConcurrency:      4,
			Timeout:             5 * time.Minute,
			RetentionDays:       90,
		},
		Risk: Risk{
			MinTradeSizeUSD:     10000,
			MinTrades:           10,
			MinWinRate:          0.55,
			MinROI30d:           0.15,
			MinConfidence:       0.7,
			MaxPositionPct:      0.05,
			MinPositionUSD:      100,
			MaxDailyDrawdownPct: -0.05,
			MaxDailyFailures:    3,
			KellyMultiplier:     0.25,
			DefaultAvgWin:       0.02,
			DefaultAvgLoss:      0.01,
			PortfolioValue:      10000,
		},
		Oracle: Oracle{
			Provider:            "gemini",
			Model:               "gemini-2.0-flash",
			Timeout:             15 * time.Second,
			MaxRequestPerMinute: 10,
			MaxTokenPerMinute:   100000,
			Tolerance:           0.01,
		},
		Telegram: TelegramConfig{
			TimeoutDuration:           10 * time.Second,
			MaxGlobalRequestPerSecond: 20,
		},
	}
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
