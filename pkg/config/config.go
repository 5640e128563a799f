/*
Package config manages TOML config for marketserve.
*/
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MARKETSERVE_"

// Config holds the entire config structure
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Catalog CatalogConfig `toml:"catalog"`
	Search  SearchConfig  `toml:"search"`
	Market  MarketConfig  `toml:"market"`
	Log     LogConfig     `toml:"log"`
	Servers []WorldServer `toml:"servers"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	RequestTimeout Duration `toml:"request_timeout"`
	MaxQuery       int      `toml:"max_query"`
	CompleteLimit  int      `toml:"complete_limit"`
}

// CatalogConfig points at the item table.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// SearchConfig holds resolver and search cache options.
type SearchConfig struct {
	CacheFile           string `toml:"cache_file"`
	FuzzyLimit          int    `toml:"fuzzy_limit"`
	MinSimilarity       int    `toml:"min_similarity"`
	SubstringSimilarity int    `toml:"substring_similarity"`
	AlternativesMaxLen  int    `toml:"alternatives_max_len"`
}

// MarketConfig holds pricing API options.
type MarketConfig struct {
	BaseURL     string   `toml:"base_url"`
	CacheExpiry Duration `toml:"cache_expiry"`
	Timeout     Duration `toml:"timeout"`
	Concurrency int      `toml:"concurrency"`
}

// LogConfig holds logging options.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// WorldServer is one entry of the server directory. Order in the file is
// the order results are reported in.
type WorldServer struct {
	ID   int    `toml:"id"`
	Name string `toml:"name"`
}

// Duration wraps time.Duration so it reads and writes as "60s" in TOML.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			RequestTimeout: Duration{15 * time.Second},
			MaxQuery:       100,
			CompleteLimit:  10,
		},
		Catalog: CatalogConfig{
			Path: "data.csv",
		},
		Search: SearchConfig{
			CacheFile:           "item_cache.json",
			FuzzyLimit:          50,
			MinSimilarity:       0,
			SubstringSimilarity: 95,
			AlternativesMaxLen:  100,
		},
		Market: MarketConfig{
			BaseURL:     "https://universalis.app/api/v2",
			CacheExpiry: Duration{60 * time.Second},
			Timeout:     Duration{10 * time.Second},
			Concurrency: 5,
		},
		Log: LogConfig{
			File:  "",
			Level: "warn",
		},
		Servers: DefaultServers(),
	}
}

// DefaultServers returns the Korean data center worlds.
func DefaultServers() []WorldServer {
	return []WorldServer{
		{ID: 2075, Name: "카벙클"},
		{ID: 2076, Name: "초코보"},
		{ID: 2077, Name: "모그리"},
		{ID: 2078, Name: "톤베리"},
		{ID: 2080, Name: "펜리르"},
	}
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path handed in by the caller (created with defaults if missing)
// 3. Builtin defaults
//
// Environment overrides (.env first) are applied on top of whichever won.
func LoadConfigWithPriority(customConfigPath, defaultPath string) (*Config, string, error) {
	loadDotEnv()

	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config.withEnv(), customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	if defaultPath == "" {
		log.Warn("No default config path. Using built-in defaults...")
		return DefaultConfig().withEnv(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig().withEnv(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config.withEnv(), defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	// a file that lists its own servers replaces the defaults rather than appending
	config.Servers = nil

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	if len(config.Servers) == 0 {
		config.Servers = DefaultServers()
	}
	config.sanitize()
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "catalog"); ok {
		if val, ok := utils.ExtractString(section, "path"); ok {
			config.Catalog.Path = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "market"); ok {
		extractMarketConfig(section, &config.Market)
	}
	if section, ok := utils.ExtractSection(tempConfig, "log"); ok {
		if val, ok := utils.ExtractString(section, "file"); ok {
			config.Log.File = val
		}
		if val, ok := utils.ExtractString(section, "level"); ok {
			config.Log.Level = val
		}
	}
	if tables, ok := utils.ExtractTables(tempConfig, "servers"); ok {
		if servers := extractServers(tables); len(servers) > 0 {
			config.Servers = servers
		}
	}
	config.sanitize()
	return config, nil
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractDuration(data, "request_timeout"); ok {
		server.RequestTimeout = Duration{val}
	}
	if val, ok := utils.ExtractInt64(data, "max_query"); ok {
		server.MaxQuery = val
	}
	if val, ok := utils.ExtractInt64(data, "complete_limit"); ok {
		server.CompleteLimit = val
	}
}

// extractSearchConfig extracts search configuration from a map
func extractSearchConfig(data map[string]any, search *SearchConfig) {
	if val, ok := utils.ExtractString(data, "cache_file"); ok {
		search.CacheFile = val
	}
	if val, ok := utils.ExtractInt64(data, "fuzzy_limit"); ok {
		search.FuzzyLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "min_similarity"); ok {
		search.MinSimilarity = val
	}
	if val, ok := utils.ExtractInt64(data, "substring_similarity"); ok {
		search.SubstringSimilarity = val
	}
	if val, ok := utils.ExtractInt64(data, "alternatives_max_len"); ok {
		search.AlternativesMaxLen = val
	}
}

// extractMarketConfig extracts market configuration from a map
func extractMarketConfig(data map[string]any, market *MarketConfig) {
	if val, ok := utils.ExtractString(data, "base_url"); ok {
		market.BaseURL = val
	}
	if val, ok := utils.ExtractDuration(data, "cache_expiry"); ok {
		market.CacheExpiry = Duration{val}
	}
	if val, ok := utils.ExtractDuration(data, "timeout"); ok {
		market.Timeout = Duration{val}
	}
	if val, ok := utils.ExtractInt64(data, "concurrency"); ok {
		market.Concurrency = val
	}
}

func extractServers(tables []map[string]any) []WorldServer {
	servers := make([]WorldServer, 0, len(tables))
	for _, t := range tables {
		id, okID := utils.ExtractInt64(t, "id")
		name, okName := utils.ExtractString(t, "name")
		if !okID || !okName {
			log.Warnf("Skipping server entry without id/name: %v", t)
			continue
		}
		servers = append(servers, WorldServer{ID: id, Name: name})
	}
	return servers
}

// sanitize replaces out-of-range values with defaults.
func (c *Config) sanitize() {
	def := DefaultConfig()
	if c.Server.RequestTimeout.Duration <= 0 {
		c.Server.RequestTimeout = def.Server.RequestTimeout
	}
	if c.Server.MaxQuery <= 0 {
		c.Server.MaxQuery = def.Server.MaxQuery
	}
	if c.Server.CompleteLimit <= 0 {
		c.Server.CompleteLimit = def.Server.CompleteLimit
	}
	if c.Search.FuzzyLimit <= 0 {
		c.Search.FuzzyLimit = def.Search.FuzzyLimit
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 100 {
		c.Search.MinSimilarity = def.Search.MinSimilarity
	}
	if c.Search.SubstringSimilarity < 0 || c.Search.SubstringSimilarity > 100 {
		c.Search.SubstringSimilarity = def.Search.SubstringSimilarity
	}
	if c.Search.AlternativesMaxLen < 0 {
		c.Search.AlternativesMaxLen = def.Search.AlternativesMaxLen
	}
	if c.Market.BaseURL == "" {
		c.Market.BaseURL = def.Market.BaseURL
	}
	if c.Market.CacheExpiry.Duration <= 0 {
		c.Market.CacheExpiry = def.Market.CacheExpiry
	}
	if c.Market.Timeout.Duration <= 0 {
		c.Market.Timeout = def.Market.Timeout
	}
	if c.Market.Concurrency <= 0 {
		c.Market.Concurrency = 1
	}
}

// loadDotEnv reads .env from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to read .env: %v", err)
	}
}

// withEnv applies MARKETSERVE_* overrides.
func (c *Config) withEnv() *Config {
	if val := os.Getenv(EnvPrefix + "CATALOG_PATH"); val != "" {
		c.Catalog.Path = val
	}
	if val := os.Getenv(EnvPrefix + "SEARCH_CACHE_FILE"); val != "" {
		c.Search.CacheFile = val
	}
	if val := os.Getenv(EnvPrefix + "MARKET_BASE_URL"); val != "" {
		c.Market.BaseURL = val
	}
	if val := os.Getenv(EnvPrefix + "MARKET_TIMEOUT"); val != "" {
		if d, ok := parseEnvDuration(val); ok {
			c.Market.Timeout = Duration{d}
		}
	}
	if val := os.Getenv(EnvPrefix + "MARKET_CACHE_EXPIRY"); val != "" {
		if d, ok := parseEnvDuration(val); ok {
			c.Market.CacheExpiry = Duration{d}
		}
	}
	if val := os.Getenv(EnvPrefix + "LOG_FILE"); val != "" {
		c.Log.File = val
	}
	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	return c
}

// parseEnvDuration accepts plain integers as seconds or Go duration strings.
func parseEnvDuration(val string) (time.Duration, bool) {
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, true
	}
	log.Warnf("Ignoring invalid duration %q", val)
	return 0, false
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
