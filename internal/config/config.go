package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMoonshotFactory = "0x0D6848e39114abE69054407452b8aaB82f8a44BA"
	DefaultRouter          = "0xad1eCa41E6F772bE3cb5A48A6141f9bcc1AF9F7c"
	DefaultWETH            = "0x3439153EB7AF838Ad19d56E1571FBD09333C2809"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	if value.Tag == "!!int" {
		var v int64
		if err := value.Decode(&v); err != nil {
			return err
		}
		d.Duration = time.Duration(v) * time.Millisecond
		return nil
	}
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = dur
	return nil
}

type Config struct {
	Chain       string `yaml:"chain"`
	ChainID     uint64 `yaml:"chain_id"`
	ExplorerURL string `yaml:"explorer_url"`

	RPC struct {
		HTTP string `yaml:"http"`
		WS   string `yaml:"ws"`
	} `yaml:"rpc"`

	Venues struct {
		MoonshotFactory      string `yaml:"moonshot_factory"`
		Router               string `yaml:"router"`
		WETH                 string `yaml:"weth"`
		MoonshotExactInGuard bool   `yaml:"moonshot_exact_in_guard"`
	} `yaml:"venues"`

	Tx struct {
		Deadline                Duration `yaml:"deadline"`
		GasBufferPercent        uint64   `yaml:"gas_buffer_percent"`
		FallbackGasLimit        uint64   `yaml:"fallback_gas_limit"`
		ApproveFallbackGasLimit uint64   `yaml:"approve_fallback_gas_limit"`
		FallbackGasPriceWei     string   `yaml:"fallback_gas_price_wei"`
		PriorityFeeWei          string   `yaml:"priority_fee_wei"`
		FeeHistoryPercentile    float64  `yaml:"fee_history_percentile"`
		DefaultSlippagePercent  string   `yaml:"default_slippage_percent"`
	} `yaml:"tx"`

	Approval struct {
		ConfirmPollInterval Duration `yaml:"confirm_poll_interval"`
		ConfirmTimeout      Duration `yaml:"confirm_timeout"`
	} `yaml:"approval"`

	API struct {
		Listen        string   `yaml:"listen"`
		AuthToken     string   `yaml:"auth_token"`
		CORSOrigins   []string `yaml:"cors_origins"`
		RatePerMinute int      `yaml:"rate_per_minute"`
	} `yaml:"api"`

	Journal struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"`
	} `yaml:"journal"`

	Metrics struct {
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes raw YAML, applies environment overrides and defaults, then validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the Abstract mainnet configuration with environment overrides applied.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MOONROUTE_RPC_HTTP"); v != "" {
		c.RPC.HTTP = v
	}
	if v := os.Getenv("MOONROUTE_API_TOKEN"); v != "" {
		c.API.AuthToken = v
	}
	if v := os.Getenv("MOONROUTE_JOURNAL_DSN"); v != "" {
		c.Journal.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if c.Chain == "" {
		c.Chain = "abstract"
	}
	if c.ChainID == 0 {
		switch strings.ToLower(c.Chain) {
		case "abstract":
			c.ChainID = 2741
		case "abstract-testnet":
			c.ChainID = 11124
		}
	}
	if c.ExplorerURL == "" {
		c.ExplorerURL = "https://abscan.org/tx/"
	}
	if c.RPC.HTTP == "" {
		c.RPC.HTTP = "https://api.mainnet.abs.xyz"
	}
	if c.RPC.WS == "" {
		c.RPC.WS = "wss://api.mainnet.abs.xyz/ws"
	}
	if c.Venues.MoonshotFactory == "" {
		c.Venues.MoonshotFactory = DefaultMoonshotFactory
	}
	if c.Venues.Router == "" {
		c.Venues.Router = DefaultRouter
	}
	if c.Venues.WETH == "" {
		c.Venues.WETH = DefaultWETH
	}
	if c.Tx.Deadline.Duration == 0 {
		c.Tx.Deadline = Duration{Duration: 1200 * time.Second}
	}
	if c.Tx.GasBufferPercent == 0 {
		c.Tx.GasBufferPercent = 150
	}
	if c.Tx.FallbackGasLimit == 0 {
		c.Tx.FallbackGasLimit = 0x16E360
	}
	if c.Tx.ApproveFallbackGasLimit == 0 {
		c.Tx.ApproveFallbackGasLimit = 0x186A0
	}
	if c.Tx.FallbackGasPriceWei == "" {
		c.Tx.FallbackGasPriceWei = "45258513"
	}
	if c.Tx.PriorityFeeWei == "" {
		c.Tx.PriorityFeeWei = "1"
	}
	if c.Tx.FeeHistoryPercentile == 0 {
		c.Tx.FeeHistoryPercentile = 50
	}
	if c.Tx.DefaultSlippagePercent == "" {
		c.Tx.DefaultSlippagePercent = "1"
	}
	if c.Approval.ConfirmPollInterval.Duration == 0 {
		c.Approval.ConfirmPollInterval = Duration{Duration: time.Second}
	}
	if c.Approval.ConfirmTimeout.Duration == 0 {
		c.Approval.ConfirmTimeout = Duration{Duration: 3 * time.Minute}
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8080"
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = "file"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/trades.jsonl"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "moonroute"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	if c.RPC.HTTP == "" {
		return fmt.Errorf("rpc.http is required")
	}
	for name, addr := range map[string]string{
		"venues.moonshot_factory": c.Venues.MoonshotFactory,
		"venues.router":           c.Venues.Router,
		"venues.weth":             c.Venues.WETH,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s is not a valid address: %q", name, addr)
		}
	}
	if c.Tx.GasBufferPercent < 100 {
		return fmt.Errorf("tx.gas_buffer_percent must be >= 100")
	}
	switch c.Journal.Driver {
	case "file", "none":
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown journal.driver %q", c.Journal.Driver)
	}
	return nil
}

// ExplorerTxURL links a transaction hash to the configured block explorer.
func (c *Config) ExplorerTxURL(hash string) string {
	base := c.ExplorerURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + hash
}
