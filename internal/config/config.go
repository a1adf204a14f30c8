// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// EnvPrefix namespaces every environment override, e.g. CAREERWATCH_SERVER_PORT.
const EnvPrefix = "CAREERWATCH"

// DefaultUserAgent mimics a desktop browser; many career sites refuse bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Store drivers.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Notify drivers.
const (
	NotifyTelegram = "telegram"
	NotifyPubSub   = "pubsub"
	NotifyLog      = "log"
)

// Audit drivers.
const (
	AuditCSV  = "csv"
	AuditGCS  = "gcs"
	AuditDir  = "dir"
	AuditNone = "none"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Seeds    SeedsConfig    `mapstructure:"seeds"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Detector DetectorConfig `mapstructure:"detector"`
	Store    StoreConfig    `mapstructure:"store"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SeedsConfig locates the company list.
type SeedsConfig struct {
	Path string `mapstructure:"path"`
}

// CrawlerConfig governs the pass loop and fetch politeness.
type CrawlerConfig struct {
	UserAgent            string        `mapstructure:"user_agent"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	RespectRobots        bool          `mapstructure:"respect_robots"`
	Concurrency          int           `mapstructure:"concurrency"`
	CandidateParallelism int           `mapstructure:"candidate_parallelism"`
	GlobalInFlight       int           `mapstructure:"global_inflight"`
	PerHostInFlight      int           `mapstructure:"per_host_inflight"`
	PerHostQPS           float64       `mapstructure:"per_host_qps"`
	Interval             time.Duration `mapstructure:"interval"`
	Schedule             string        `mapstructure:"schedule"`
	SendDelay            time.Duration `mapstructure:"send_delay"`
	MinSignals           int           `mapstructure:"min_signals"`
	RestrictedDomains    []string      `mapstructure:"restricted_domains"`
}

// HeadlessConfig configures the rendered fallback path.
type HeadlessConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxParallel int           `mapstructure:"max_parallel"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// DetectorConfig tunes the unrendered-page heuristic.
type DetectorConfig struct {
	MinTextLength int `mapstructure:"min_text_length"`
	MaxScripts    int `mapstructure:"max_scripts"`
}

// StoreConfig selects and configures the dedup store backend.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// NotifyConfig selects the notification sink.
type NotifyConfig struct {
	Driver   string         `mapstructure:"driver"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID string `mapstructure:"chat_id"`
}

// PubSubConfig names the topic postings are published to.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// AuditConfig selects where delivered postings are recorded.
type AuditConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ServerConfig controls the health server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features and the rotated log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// Load builds a Config from defaults, an optional .env file, the environment
// and an optional config file at path.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	applyRenderToggle(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// bindAliases honors the bare variable names used by existing deployments.
func bindAliases(v *viper.Viper) error {
	aliases := map[string]string{
		"notify.telegram.token":   "BOT_TOKEN",
		"notify.telegram.chat_id": "CHAT_ID",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return fmt.Errorf("bind %s: %w", alias, err)
		}
	}
	return nil
}

// applyRenderToggle maps ENABLE_JS_RENDER onto headless.enabled unless the
// prefixed variable is set.
func applyRenderToggle(v *viper.Viper) {
	if _, ok := os.LookupEnv(EnvPrefix + "_HEADLESS_ENABLED"); ok {
		return
	}
	raw, ok := os.LookupEnv("ENABLE_JS_RENDER")
	if !ok {
		return
	}
	v.Set("headless.enabled", ParseToggle(raw))
}

// ParseToggle accepts 1, true, yes and on in any case.
func ParseToggle(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seeds.path", "cleaned_file.csv")
	v.SetDefault("crawler.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.request_timeout", 15*time.Second)
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.concurrency", 8)
	v.SetDefault("crawler.candidate_parallelism", 4)
	v.SetDefault("crawler.global_inflight", 16)
	v.SetDefault("crawler.per_host_inflight", 1)
	v.SetDefault("crawler.per_host_qps", 0.0)
	v.SetDefault("crawler.interval", 5*time.Hour)
	v.SetDefault("crawler.schedule", "")
	v.SetDefault("crawler.send_delay", 500*time.Millisecond)
	v.SetDefault("crawler.min_signals", 2)
	v.SetDefault("crawler.restricted_domains", crawler.DefaultRestrictedDomains)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout", 30*time.Second)
	v.SetDefault("headless.settle_delay", 2500*time.Millisecond)
	v.SetDefault("detector.min_text_length", 800)
	v.SetDefault("detector.max_scripts", 20)
	v.SetDefault("store.driver", StoreFile)
	v.SetDefault("store.path", "sent_jobs.json")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "sent_jobs")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("notify.driver", NotifyTelegram)
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic", "")
	v.SetDefault("audit.driver", AuditCSV)
	v.SetDefault("audit.path", "jobs_log.csv")
	v.SetDefault("audit.dir", "audit")
	v.SetDefault("audit.gcs_bucket", "")
	v.SetDefault("audit.prefix", "deliveries")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Seeds.Path) == "" {
		return fmt.Errorf("seeds.path is required")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.PerHostQPS < 0 {
		return fmt.Errorf("crawler.per_host_qps must be >= 0")
	}
	if c.Crawler.SendDelay < 0 {
		return fmt.Errorf("crawler.send_delay must be >= 0")
	}
	if c.Crawler.Schedule == "" && c.Crawler.Interval <= 0 {
		return fmt.Errorf("crawler.interval must be > 0 when crawler.schedule is empty")
	}
	if c.Crawler.Schedule != "" {
		if _, err := cron.ParseStandard(c.Crawler.Schedule); err != nil {
			return fmt.Errorf("crawler.schedule: %w", err)
		}
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}

	switch c.Store.Driver {
	case StoreFile, StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case StorePostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}

	switch c.Notify.Driver {
	case NotifyTelegram, NotifyPubSub, NotifyLog:
	default:
		return fmt.Errorf("notify.driver %q is not supported", c.Notify.Driver)
	}

	switch c.Audit.Driver {
	case AuditCSV:
		if strings.TrimSpace(c.Audit.Path) == "" {
			return fmt.Errorf("audit.path is required for the csv driver")
		}
	case AuditDir:
		if strings.TrimSpace(c.Audit.Dir) == "" {
			return fmt.Errorf("audit.dir is required for the dir driver")
		}
	case AuditGCS:
		if strings.TrimSpace(c.Audit.GCSBucket) == "" {
			return fmt.Errorf("audit.gcs_bucket is required for the gcs driver")
		}
	case AuditNone:
	default:
		return fmt.Errorf("audit.driver %q is not supported", c.Audit.Driver)
	}
	return nil
}

// Validate checks the credentials of the selected sink. Commands that never
// deliver skip it.
func (n NotifyConfig) Validate() error {
	switch n.Driver {
	case NotifyTelegram:
		if strings.TrimSpace(n.Telegram.Token) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram.token and notify.telegram.chat_id are required (BOT_TOKEN, CHAT_ID)")
		}
	case NotifyPubSub:
		if n.PubSub.ProjectID == "" || n.PubSub.Topic == "" {
			return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic are required")
		}
	}
	return nil
}
