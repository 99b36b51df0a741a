package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCLOBBaseURL = "https://clob.polymarket.com"
	PolygonChainID     = 137

	EnvSignatureType       = "POLYMARKET_SIGNATURE_TYPE"
	EnvProxyAddress        = "POLYMARKET_PROXY_ADDRESS"
	EnvFunderAddress       = "CLOB_FUNDER_ADDRESS"
	EnvCLOBBaseURL         = "CLOB_BASE_URL"
	EnvChainID             = "CLOB_CHAIN_ID"
	EnvTimeout             = "CLOB_BRIDGE_TIMEOUT"
	EnvRetries             = "CLOB_BRIDGE_RETRIES"
	EnvLogLevel            = "CLOB_BRIDGE_LOG_LEVEL"
	EnvLogFormat           = "CLOB_BRIDGE_LOG_FORMAT"
	EnvKeySource           = "CLOB_BRIDGE_KEY_SOURCE"
	EnvMarketsCache        = "CLOB_BRIDGE_MARKETS_CACHE"
	EnvCachePath           = "CLOB_BRIDGE_CACHE_PATH"
	EnvCacheLockPath       = "CLOB_BRIDGE_CACHE_LOCK_PATH"
	EnvMarketsTTL          = "CLOB_BRIDGE_MARKETS_TTL"
	EnvNoJournal           = "CLOB_BRIDGE_NO_JOURNAL"
	EnvJournalPath         = "CLOB_BRIDGE_JOURNAL_PATH"
	EnvJournalLockPath     = "CLOB_BRIDGE_JOURNAL_LOCK_PATH"
	EnvEnableCommands      = "CLOB_BRIDGE_ENABLE_COMMANDS"
	defaultConfigDirName   = "clob-bridge"
	defaultConfigFileName  = "config.yaml"
	defaultEnvFileName     = ".env"
	defaultMarketsCacheTTL = 30 * time.Second
)

type GlobalFlags struct {
	ConfigPath     string
	EnvFile        string
	KeySource      string
	CLOBURL        string
	Timeout        string
	Retries        int
	LogLevel       string
	LogFormat      string
	EnableCommands string
	MarketsCache   bool
	NoJournal      bool
}

// Settings is built once at startup and never mutated afterwards.
type Settings struct {
	CLOBBaseURL string
	ChainID     int64
	Timeout     time.Duration
	Retries     int
	LogLevel    string
	LogFormat   string
	KeySource   string

	DefaultSignatureType *int
	DefaultFunder        *string

	EnableCommands []string

	CacheEnabled  bool
	CachePath     string
	CacheLockPath string
	MarketsTTL    time.Duration

	JournalEnabled  bool
	JournalPath     string
	JournalLockPath string
}

type fileConfig struct {
	Timeout   string `yaml:"timeout"`
	Retries   *int   `yaml:"retries"`
	KeySource string `yaml:"key_source"`
	CLOB      struct {
		URL     string `yaml:"url"`
		ChainID *int64 `yaml:"chain_id"`
	} `yaml:"clob"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Wallet struct {
		SignatureType *int   `yaml:"signature_type"`
		FunderAddress string `yaml:"funder_address"`
	} `yaml:"wallet"`
	EnableCommands []string `yaml:"enable_commands"`
	Cache          struct {
		Enabled    *bool  `yaml:"enabled"`
		Path       string `yaml:"path"`
		LockPath   string `yaml:"lock_path"`
		MarketsTTL string `yaml:"markets_ttl"`
	} `yaml:"cache"`
	Journal struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"journal"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	if err := loadEnvFile(flags.EnvFile); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if strings.TrimSpace(settings.CLOBBaseURL) == "" {
		settings.CLOBBaseURL = DefaultCLOBBaseURL
	}
	settings.CLOBBaseURL = strings.TrimRight(settings.CLOBBaseURL, "/")
	if settings.ChainID <= 0 {
		settings.ChainID = PolygonChainID
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.MarketsTTL <= 0 {
		settings.MarketsTTL = defaultMarketsCacheTTL
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	cacheDir, err := defaultCacheDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		CLOBBaseURL:     DefaultCLOBBaseURL,
		ChainID:         PolygonChainID,
		Timeout:         30 * time.Second,
		Retries:         0,
		LogLevel:        "info",
		LogFormat:       "json",
		KeySource:       "auto",
		CacheEnabled:    false,
		CachePath:       filepath.Join(cacheDir, "cache.db"),
		CacheLockPath:   filepath.Join(cacheDir, "cache.lock"),
		MarketsTTL:      defaultMarketsCacheTTL,
		JournalEnabled:  true,
		JournalPath:     filepath.Join(cacheDir, "journal.db"),
		JournalLockPath: filepath.Join(cacheDir, "journal.lock"),
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, defaultConfigDirName, defaultConfigFileName), nil
}

func defaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, defaultConfigDirName), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.KeySource != "" {
		settings.KeySource = strings.ToLower(cfg.KeySource)
	}
	if cfg.CLOB.URL != "" {
		settings.CLOBBaseURL = cfg.CLOB.URL
	}
	if cfg.CLOB.ChainID != nil {
		settings.ChainID = *cfg.CLOB.ChainID
	}
	if cfg.Log.Level != "" {
		settings.LogLevel = strings.ToLower(cfg.Log.Level)
	}
	if cfg.Log.Format != "" {
		settings.LogFormat = strings.ToLower(cfg.Log.Format)
	}
	if cfg.Wallet.SignatureType != nil {
		v := *cfg.Wallet.SignatureType
		settings.DefaultSignatureType = &v
	}
	if v := strings.TrimSpace(cfg.Wallet.FunderAddress); v != "" {
		settings.DefaultFunder = &v
	}
	if len(cfg.EnableCommands) > 0 {
		settings.EnableCommands = normalizeList(cfg.EnableCommands)
	}
	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	if cfg.Cache.MarketsTTL != "" {
		d, err := time.ParseDuration(cfg.Cache.MarketsTTL)
		if err != nil {
			return fmt.Errorf("config cache.markets_ttl: %w", err)
		}
		settings.MarketsTTL = d
	}
	if cfg.Journal.Enabled != nil {
		settings.JournalEnabled = *cfg.Journal.Enabled
	}
	if cfg.Journal.Path != "" {
		settings.JournalPath = cfg.Journal.Path
	}
	if cfg.Journal.LockPath != "" {
		settings.JournalLockPath = cfg.Journal.LockPath
	}

	return nil
}

// loadEnvFile populates unset variables from a dotenv file. Variables already
// present in the environment win.
func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = defaultEnvFileName
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := strings.TrimSpace(os.Getenv(EnvSignatureType)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.DefaultSignatureType = &n
		}
	}
	if v := firstEnv(EnvProxyAddress, EnvFunderAddress); v != "" {
		settings.DefaultFunder = &v
	}
	if v := os.Getenv(EnvCLOBBaseURL); v != "" {
		settings.CLOBBaseURL = v
	}
	if v := os.Getenv(EnvChainID); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.ChainID = n
		}
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv(EnvRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		settings.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		settings.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv(EnvKeySource); v != "" {
		settings.KeySource = strings.ToLower(v)
	}
	if v := os.Getenv(EnvEnableCommands); v != "" {
		settings.EnableCommands = normalizeList(strings.Split(v, ","))
	}
	if v := os.Getenv(EnvMarketsCache); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = b
		}
	}
	if v := os.Getenv(EnvCachePath); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv(EnvCacheLockPath); v != "" {
		settings.CacheLockPath = v
	}
	if v := os.Getenv(EnvMarketsTTL); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.MarketsTTL = d
		}
	}
	if v := os.Getenv(EnvNoJournal); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.JournalEnabled = !b
		}
	}
	if v := os.Getenv(EnvJournalPath); v != "" {
		settings.JournalPath = v
	}
	if v := os.Getenv(EnvJournalLockPath); v != "" {
		settings.JournalLockPath = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if strings.TrimSpace(flags.CLOBURL) != "" {
		settings.CLOBBaseURL = strings.TrimSpace(flags.CLOBURL)
	}
	if strings.TrimSpace(flags.KeySource) != "" {
		settings.KeySource = strings.ToLower(strings.TrimSpace(flags.KeySource))
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.LogLevel != "" {
		settings.LogLevel = strings.ToLower(flags.LogLevel)
	}
	if flags.LogFormat != "" {
		settings.LogFormat = strings.ToLower(flags.LogFormat)
	}
	if strings.TrimSpace(flags.EnableCommands) != "" {
		settings.EnableCommands = normalizeList(strings.Split(flags.EnableCommands, ","))
	}
	if flags.MarketsCache {
		settings.CacheEnabled = true
	}
	if flags.NoJournal {
		settings.JournalEnabled = false
	}

	if settings.LogFormat != "json" && settings.LogFormat != "console" {
		return fmt.Errorf("log format must be json or console")
	}

	return nil
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		v := strings.TrimSpace(item)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
