package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/discovery"
	"PriceSentinel/internal/flagger"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultCategories are scanned when no categories are given.
var DefaultCategories = []string{
	"TV", "Mobiltelefoner", "Bærbare PC-er", "Hodetelefoner", "Robotstøvsugere", "Skjermer", "Smartklokker",
}

// Config holds all application configuration.
type Config struct {
	Site struct {
		BaseURL        string            `yaml:"base_url"`
		ProductPath    string            `yaml:"product_path"`
		ProductIDParam string            `yaml:"product_id_param"`
		SearchURLs     []string          `yaml:"search_urls"`
		CategoryURLs   map[string]string `yaml:"category_urls"`
	} `yaml:"site"`
	Scan struct {
		Categories      []string `yaml:"categories"`
		MaxPerCategory  int      `yaml:"max_per_category"`
		MinNowPrice     float64  `yaml:"min_now_price"`
		ProductURLsFile string   `yaml:"product_urls_file"`
		OutPrefix       string   `yaml:"out_prefix"`
		OutputDir       string   `yaml:"output_dir"`
		DelayMS         int      `yaml:"delay_ms"`
		TopN            int      `yaml:"top_n"`
		TimeoutMin      int      `yaml:"timeout_min"`
	} `yaml:"scan"`
	Thresholds struct {
		Pct3mIncrease  float64 `yaml:"pct_3m_increase"`
		PctAbove30dLow float64 `yaml:"pct_above_30d_low"`
	} `yaml:"thresholds"`
	Renderer struct {
		Kind         string `yaml:"kind"`
		TimeoutSec   int    `yaml:"timeout_sec"`
		ChromePath   string `yaml:"chrome_path"`
		UserAgent    string `yaml:"user_agent"`
		Locale       string `yaml:"locale"`
		ScrollRounds int    `yaml:"scroll_rounds"`
	} `yaml:"renderer"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Renderer.ChromePath = v
	}
	if v := os.Getenv("RENDERER"); v != "" {
		cfg.Renderer.Kind = v
	}
	if v := os.Getenv("MIN_NOW_PRICE"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scan.MinNowPrice = p
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	site := discovery.DefaultSite()
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = site.BaseURL
	}
	if cfg.Site.ProductPath == "" {
		cfg.Site.ProductPath = site.ProductPath
	}
	if cfg.Site.ProductIDParam == "" {
		cfg.Site.ProductIDParam = site.ProductIDParam
	}
	if len(cfg.Site.SearchURLs) == 0 {
		cfg.Site.SearchURLs = site.SearchURLs
	}
	if len(cfg.Site.CategoryURLs) == 0 {
		cfg.Site.CategoryURLs = site.CategoryURLs
	}

	if len(cfg.Scan.Categories) == 0 {
		cfg.Scan.Categories = append([]string(nil), DefaultCategories...)
	}
	if cfg.Scan.MaxPerCategory == 0 {
		cfg.Scan.MaxPerCategory = 20
	}
	if cfg.Scan.MinNowPrice == 0 {
		cfg.Scan.MinNowPrice = 500
	}
	if cfg.Scan.OutPrefix == "" {
		cfg.Scan.OutPrefix = "prisjakt_output"
	}
	if cfg.Scan.OutputDir == "" {
		cfg.Scan.OutputDir = "outputs"
	}
	if cfg.Scan.DelayMS == 0 {
		cfg.Scan.DelayMS = 1500
	}
	if cfg.Scan.TopN == 0 {
		cfg.Scan.TopN = 10
	}
	if cfg.Scan.TimeoutMin == 0 {
		cfg.Scan.TimeoutMin = 25
	}

	if cfg.Thresholds.Pct3mIncrease == 0 {
		cfg.Thresholds.Pct3mIncrease = 15
	}
	if cfg.Thresholds.PctAbove30dLow == 0 {
		cfg.Thresholds.PctAbove30dLow = 10
	}

	ro := collector.DefaultOptions()
	if cfg.Renderer.Kind == "" {
		cfg.Renderer.Kind = "chrome"
	}
	if cfg.Renderer.TimeoutSec == 0 {
		cfg.Renderer.TimeoutSec = int(ro.Timeout / time.Second)
	}
	if cfg.Renderer.UserAgent == "" {
		cfg.Renderer.UserAgent = ro.UserAgent
	}
	if cfg.Renderer.Locale == "" {
		cfg.Renderer.Locale = ro.Locale
	}
	if cfg.Renderer.ScrollRounds == 0 {
		cfg.Renderer.ScrollRounds = ro.ScrollRounds
	}

	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/price_sentinel.db"
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 0 7 * * *"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

// Validate checks the invariants the scan relies on. Telegram is optional but
// needs both token and chat id when enabled.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL, got %q", c.Site.BaseURL)
	}
	if !strings.HasPrefix(c.Site.ProductPath, "/") {
		return fmt.Errorf("site.product_path must start with /")
	}
	for _, s := range c.Site.SearchURLs {
		if strings.Count(s, "%s") != 1 {
			return fmt.Errorf("site.search_urls entry %q must contain exactly one %%s", s)
		}
	}
	if c.Scan.MaxPerCategory <= 0 {
		return fmt.Errorf("scan.max_per_category must be positive")
	}
	if c.Scan.TopN <= 0 {
		return fmt.Errorf("scan.top_n must be positive")
	}
	if c.Scan.DelayMS < 0 {
		return fmt.Errorf("scan.delay_ms must not be negative")
	}
	if strings.ContainsAny(c.Scan.OutPrefix, `/\`) {
		return fmt.Errorf("scan.out_prefix must be a file name, got %q", c.Scan.OutPrefix)
	}
	if c.Thresholds.Pct3mIncrease <= 0 || c.Thresholds.PctAbove30dLow <= 0 {
		return fmt.Errorf("thresholds must be positive")
	}
	switch c.Renderer.Kind {
	case "chrome", "http":
	default:
		return fmt.Errorf("renderer.kind must be chrome or http, got %q", c.Renderer.Kind)
	}
	if c.Renderer.TimeoutSec <= 0 {
		return fmt.Errorf("renderer.timeout_sec must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.ScanCron); err != nil {
		return fmt.Errorf("schedule.scan_cron: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether a bot token and chat id are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// SiteLayout returns the discovery view of the site section.
func (c *Config) SiteLayout() discovery.Site {
	return discovery.Site{
		BaseURL:        c.Site.BaseURL,
		ProductPath:    c.Site.ProductPath,
		ProductIDParam: c.Site.ProductIDParam,
		SearchURLs:     c.Site.SearchURLs,
		CategoryURLs:   c.Site.CategoryURLs,
	}
}

// RendererOptions returns the renderer settings.
func (c *Config) RendererOptions() collector.Options {
	return collector.Options{
		UserAgent:    c.Renderer.UserAgent,
		Locale:       c.Renderer.Locale,
		Timeout:      time.Duration(c.Renderer.TimeoutSec) * time.Second,
		ChromePath:   c.Renderer.ChromePath,
		Proxy:        c.Proxy,
		ScrollRounds: c.Renderer.ScrollRounds,
	}
}

// FlagThresholds returns the anomaly thresholds.
func (c *Config) FlagThresholds() flagger.Thresholds {
	return flagger.Thresholds{
		Pct3mIncrease:  decimal.NewFromFloat(c.Thresholds.Pct3mIncrease),
		PctAbove30dLow: decimal.NewFromFloat(c.Thresholds.PctAbove30dLow),
	}
}

// MinNowPrice returns the ranking price floor.
func (c *Config) MinNowPrice() decimal.Decimal {
	return decimal.NewFromFloat(c.Scan.MinNowPrice)
}

// ScanDelay returns the pause between product pages.
func (c *Config) ScanDelay() time.Duration {
	return time.Duration(c.Scan.DelayMS) * time.Millisecond
}

// ScanTimeout bounds a whole scan.
func (c *Config) ScanTimeout() time.Duration {
	return time.Duration(c.Scan.TimeoutMin) * time.Minute
}
