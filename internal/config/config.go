package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jinsol-dev/ladder/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Refresh    RefreshConfig             `mapstructure:"refresh"`
	Storage    StorageConfig             `mapstructure:"storage"`
	MarketData MarketDataConfig          `mapstructure:"market_data"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Dispatch   DispatchConfig            `mapstructure:"dispatch"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Portfolios []PortfolioConfig         `mapstructure:"portfolios"`
}

// RefreshConfig controls the recomputation loop.
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type StorageConfig struct {
	// DSN is the SQLite database path. Empty means in-memory only.
	DSN           string        `mapstructure:"dsn"`
	RetentionDays int           `mapstructure:"retention_days"`
	Archive       ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MarketDataConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	RSIPeriod   int    `mapstructure:"rsi_period"`
	HistoryDays int    `mapstructure:"history_days"`
}

type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	BotToken string            `mapstructure:"bot_token"`
	ChatID   string            `mapstructure:"chat_id"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

type DispatchConfig struct {
	CooldownMinutes int  `mapstructure:"cooldown_minutes"`
	SkipEmpty       bool `mapstructure:"skip_empty"`
	SkipUnchanged   bool `mapstructure:"skip_unchanged"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// PortfolioConfig seeds a portfolio at startup. Seeds are upserted by
// ID; trades already recorded for the portfolio are kept.
type PortfolioConfig struct {
	ID            string             `mapstructure:"id"`
	Name          string             `mapstructure:"name"`
	Strategy      string             `mapstructure:"strategy"`
	OneTimeAmount float64            `mapstructure:"one_time_amount"`
	FeeRate       float64            `mapstructure:"fee_rate"`
	StartDate     string             `mapstructure:"start_date"`
	MultiSplit    *MultiSplitSection `mapstructure:"multi_split"`
	Section       *SectionSettings   `mapstructure:"section"`
}

type MultiSplitSection struct {
	TargetStock      string  `mapstructure:"target_stock"`
	TargetReturnRate float64 `mapstructure:"target_return_rate"`
	SplitCount       int     `mapstructure:"split_count"`
}

type SectionSettings struct {
	ReferenceStock string        `mapstructure:"reference_stock"`
	RSIEnabled     bool          `mapstructure:"rsi_enabled"`
	Section1       BandSettings  `mapstructure:"section1"`
	Section2       RangeSettings `mapstructure:"section2"`
	Section3       BandSettings  `mapstructure:"section3"`
}

type BandSettings struct {
	MAPeriod     int     `mapstructure:"ma_period"`
	Stock        string  `mapstructure:"stock"`
	RSIThreshold float64 `mapstructure:"rsi_threshold"`
}

type RangeSettings struct {
	MAPeriodLow  int     `mapstructure:"ma_period_low"`
	MAPeriodHigh int     `mapstructure:"ma_period_high"`
	Stock        string  `mapstructure:"stock"`
	RSIThreshold float64 `mapstructure:"rsi_threshold"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Refresh: RefreshConfig{
			Interval: 30 * time.Second,
		},
		Storage: StorageConfig{
			RetentionDays: 90,
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "data/archive",
			},
		},
		MarketData: MarketDataConfig{
			RSIPeriod:   14,
			HistoryDays: 240,
		},
		Dispatch: DispatchConfig{
			CooldownMinutes: 60,
			SkipEmpty:       true,
			SkipUnchanged:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Refresh.Interval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("refresh interval must be positive, got %s", c.Refresh.Interval))
	}
	if c.Dispatch.CooldownMinutes < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cooldown_minutes cannot be negative, got %d", c.Dispatch.CooldownMinutes))
	}

	switch c.Storage.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	for i := range c.Portfolios {
		if err := c.Portfolios[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *PortfolioConfig) validate() error {
	if p.OneTimeAmount <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("portfolio %q: one_time_amount must be positive", p.Name))
	}
	if p.FeeRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("portfolio %q: fee_rate cannot be negative", p.Name))
	}

	switch core.StrategyKind(p.Strategy) {
	case core.StrategyMultiSplit:
		if p.MultiSplit == nil {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("portfolio %q: multi_split settings required", p.Name))
		}
		if p.MultiSplit.TargetStock == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("portfolio %q: target_stock required", p.Name))
		}
		if p.MultiSplit.SplitCount <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("portfolio %q: split_count must be positive", p.Name))
		}
		if p.MultiSplit.TargetReturnRate <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("portfolio %q: target_return_rate must be positive", p.Name))
		}
	case core.StrategySection:
		if p.Section == nil {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("portfolio %q: section settings required", p.Name))
		}
		if p.Section.ReferenceStock == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("portfolio %q: reference_stock required", p.Name))
		}
		for _, period := range []int{
			p.Section.Section1.MAPeriod,
			p.Section.Section2.MAPeriodLow,
			p.Section.Section2.MAPeriodHigh,
			p.Section.Section3.MAPeriod,
		} {
			if period < 1 || period > 240 {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("portfolio %q: ma period must be within [1,240], got %d", p.Name, period))
			}
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("portfolio %q: unknown strategy %q", p.Name, p.Strategy))
	}
	return nil
}

// ToPortfolio converts a seed into the engine's portfolio type.
func (p *PortfolioConfig) ToPortfolio() core.Portfolio {
	out := core.Portfolio{
		ID:            p.ID,
		Name:          p.Name,
		OneTimeAmount: p.OneTimeAmount,
		FeeRate:       p.FeeRate,
		StartDate:     p.StartDate,
		Strategy:      core.StrategyKind(p.Strategy),
	}
	if p.MultiSplit != nil {
		out.MultiSplit = &core.MultiSplitConfig{
			TargetStock:      p.MultiSplit.TargetStock,
			TargetReturnRate: p.MultiSplit.TargetReturnRate,
			SplitCount:       p.MultiSplit.SplitCount,
		}
	}
	if p.Section != nil {
		out.Section = &core.SectionConfig{
			ReferenceStock: p.Section.ReferenceStock,
			RSIEnabled:     p.Section.RSIEnabled,
			Section1: core.BandSection{
				MAPeriod:     p.Section.Section1.MAPeriod,
				Stock:        p.Section.Section1.Stock,
				RSIThreshold: p.Section.Section1.RSIThreshold,
			},
			Section2: core.RangeSection{
				MAPeriodLow:  p.Section.Section2.MAPeriodLow,
				MAPeriodHigh: p.Section.Section2.MAPeriodHigh,
				Stock:        p.Section.Section2.Stock,
				RSIThreshold: p.Section.Section2.RSIThreshold,
			},
			Section3: core.BandSection{
				MAPeriod:     p.Section.Section3.MAPeriod,
				Stock:        p.Section.Section3.Stock,
				RSIThreshold: p.Section.Section3.RSIThreshold,
			},
		}
	}
	return out
}
