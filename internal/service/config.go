// internal/service/config.go
package service

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// TraderConfig 策略参数，构造引擎时传入，没有其他隐藏配置
type TraderConfig struct {
	Symbol             string
	CashAtRisk         float64 // 单笔入场占可用资金的比例 (0,1]
	SentimentThreshold float64 // 情绪置信度门槛 (0,1)，严格大于才通过
	ATRWindow          int
	SleepTime          string // tick 周期，如 "24h"
	BarTimeFrame       string // K 线周期，如 "1d"
	BarLookback        int    // 每次拉取的 K 线数量
	NewsLookbackDays   int
}

// BrokerConfig 经纪商连接信息，密钥来自环境变量
type BrokerConfig struct {
	Name      string // alpaca | simulator
	BaseURL   string
	APIKey    string `mapstructure:"-"`
	APISecret string `mapstructure:"-"`
}

type MarketDataConfig struct {
	Source string // alpaca | yahoo
}

type NewsConfig struct {
	Source      string // alpaca | stream
	StreamURL   string
	MaxBuffered int
}

type SentimentConfig struct {
	Classifier string // finbert | lexicon
	Endpoint   string
	Timeout    string
	APIToken   string `mapstructure:"-"`
}

type StateConfig struct {
	Store string // memory | file | postgres
	Path  string
	DSN   string `mapstructure:"-"`
}

type SimulatorConfig struct {
	InitialCapital float64
	FeeRate        float64
}

type LogConfig struct {
	Level       string
	Development bool
}

type Config struct {
	Trader     TraderConfig     `mapstructure:"Trader"`
	Broker     BrokerConfig     `mapstructure:"Broker"`
	MarketData MarketDataConfig `mapstructure:"MarketData"`
	News       NewsConfig       `mapstructure:"News"`
	Sentiment  SentimentConfig  `mapstructure:"Sentiment"`
	State      StateConfig      `mapstructure:"State"`
	Simulator  SimulatorConfig  `mapstructure:"Simulator"`
	Log        LogConfig        `mapstructure:"Log"`
}

// 环境变量中的凭证
const (
	EnvAlpacaKey    = "ALPACA_API_KEY"
	EnvAlpacaSecret = "ALPACA_API_SECRET"
	EnvHFToken      = "HF_API_TOKEN"
	EnvDatabaseDSN  = "TRADER_DB_DSN"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("Trader.Symbol", "LLOY.L")
	v.SetDefault("Trader.CashAtRisk", 0.5)
	v.SetDefault("Trader.SentimentThreshold", 0.95)
	v.SetDefault("Trader.ATRWindow", 14)
	v.SetDefault("Trader.SleepTime", "24h")
	v.SetDefault("Trader.BarTimeFrame", "1d")
	v.SetDefault("Trader.BarLookback", 100)
	v.SetDefault("Trader.NewsLookbackDays", 3)

	v.SetDefault("Broker.Name", "alpaca")
	v.SetDefault("Broker.BaseURL", "https://paper-api.alpaca.markets")
	v.SetDefault("MarketData.Source", "alpaca")
	v.SetDefault("News.Source", "alpaca")
	v.SetDefault("News.StreamURL", "wss://stream.data.alpaca.markets/v1beta1/news")
	v.SetDefault("News.MaxBuffered", 500)
	v.SetDefault("Sentiment.Classifier", "finbert")
	v.SetDefault("Sentiment.Endpoint", "https://api-inference.huggingface.co/models/ProsusAI/finbert")
	v.SetDefault("Sentiment.Timeout", "30s")
	v.SetDefault("State.Store", "memory")
	v.SetDefault("State.Path", "state/position.yaml")
	v.SetDefault("Simulator.InitialCapital", 100000.0)
	v.SetDefault("Simulator.FeeRate", 0.0)
	v.SetDefault("Log.Level", "info")
}

// LoadConfig 读取 configPath 下的 config.yaml；文件不存在时使用默认值。
// 凭证从 .env / 环境变量读取，TRADER_ 前缀的环境变量可覆盖任意字段。
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在不是错误
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.Broker.APIKey = os.Getenv(EnvAlpacaKey)
	cfg.Broker.APISecret = os.Getenv(EnvAlpacaSecret)
	cfg.Sentiment.APIToken = os.Getenv(EnvHFToken)
	cfg.State.DSN = os.Getenv(EnvDatabaseDSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查策略参数的取值范围
func (c *Config) Validate() error {
	t := c.Trader
	var errs []error
	if strings.TrimSpace(t.Symbol) == "" {
		errs = append(errs, errors.New("Trader.Symbol is required"))
	}
	if t.CashAtRisk <= 0 || t.CashAtRisk > 1 {
		errs = append(errs, fmt.Errorf("Trader.CashAtRisk must be in (0,1], got %v", t.CashAtRisk))
	}
	if t.SentimentThreshold <= 0 || t.SentimentThreshold >= 1 {
		errs = append(errs, fmt.Errorf("Trader.SentimentThreshold must be in (0,1), got %v", t.SentimentThreshold))
	}
	if t.ATRWindow < 2 {
		errs = append(errs, fmt.Errorf("Trader.ATRWindow must be >= 2, got %d", t.ATRWindow))
	}
	if t.BarLookback < t.ATRWindow {
		errs = append(errs, fmt.Errorf("Trader.BarLookback (%d) must cover Trader.ATRWindow (%d)", t.BarLookback, t.ATRWindow))
	}
	if t.NewsLookbackDays < 1 {
		errs = append(errs, fmt.Errorf("Trader.NewsLookbackDays must be >= 1, got %d", t.NewsLookbackDays))
	}
	if d, err := ParseIntervalDuration(t.SleepTime); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("Trader.SleepTime %q is not a valid interval", t.SleepTime))
	}
	if _, err := ParseIntervalDuration(t.BarTimeFrame); err != nil {
		errs = append(errs, fmt.Errorf("Trader.BarTimeFrame %q is not a valid interval", t.BarTimeFrame))
	}
	if _, err := time.ParseDuration(c.Sentiment.Timeout); c.Sentiment.Timeout != "" && err != nil {
		errs = append(errs, fmt.Errorf("Sentiment.Timeout %q: %w", c.Sentiment.Timeout, err))
	}
	return errors.Join(errs...)
}

// SleepInterval tick 周期
func (c *Config) SleepInterval() time.Duration {
	d, _ := ParseIntervalDuration(c.Trader.SleepTime)
	return d
}

// SentimentTimeout 远程分类器的超时时间
func (c *Config) SentimentTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sentiment.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
