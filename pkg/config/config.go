package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Trust   TrustConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Fetch   FetchConfig
	Quota   QuotaConfig
	Tables  TablesConfig
	Charts  ChartsConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	Development    bool
	SessionTimeout int
	RatePerMinute  int
}

type BackendConfig struct {
	BaseURL    string
	Region     string
	TimeoutSec int
}

type TrustConfig struct {
	Enabled     bool
	BaseURL     string
	DefaultDays int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	TTLSec int
}

// FetchConfig bounds the query-log pagination loop. MaxPages is a safety
// valve, not a correctness guarantee: a fetch that hits it returns a
// truncated working set and flags it.
type FetchConfig struct {
	PageSize   int
	MaxPages   int
	WindowDays int
}

type QuotaConfig struct {
	User QuotaLimits
	Team QuotaLimits
}

type QuotaLimits struct {
	DailyLimit        int
	MonthlyLimit      int
	WarningThreshold  int
	CriticalThreshold int
}

type TablesConfig struct {
	UserPageSize     int
	TeamUserPageSize int
	DetailPageSize   int
	HistoryPageSize  int
}

type ChartsConfig struct {
	PrimaryPalette []string
	TeamPalette    []string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/rag-dashboard")

	viper.SetEnvPrefix("RAG_DASHBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.baseURL is required")
	}
	if config.Trust.Enabled && config.Trust.BaseURL == "" {
		config.Trust.BaseURL = config.Backend.BaseURL
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.development", false)
	viper.SetDefault("server.sessionTimeout", 60)
	viper.SetDefault("server.ratePerMinute", 240)

	viper.SetDefault("backend.region", "eu-west-1")
	viper.SetDefault("backend.timeoutSec", 30)

	viper.SetDefault("trust.enabled", true)
	viper.SetDefault("trust.defaultDays", 7)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("cache.ttlSec", 300)

	viper.SetDefault("fetch.pageSize", 1000)
	viper.SetDefault("fetch.maxPages", 50)
	viper.SetDefault("fetch.windowDays", 30)

	viper.SetDefault("quota.user.dailyLimit", 100)
	viper.SetDefault("quota.user.monthlyLimit", 3000)
	viper.SetDefault("quota.user.warningThreshold", 80)
	viper.SetDefault("quota.user.criticalThreshold", 90)

	viper.SetDefault("quota.team.monthlyLimit", 15000)
	viper.SetDefault("quota.team.warningThreshold", 80)
	viper.SetDefault("quota.team.criticalThreshold", 90)

	viper.SetDefault("tables.userPageSize", 10)
	viper.SetDefault("tables.teamUserPageSize", 10)
	viper.SetDefault("tables.detailPageSize", 10)
	viper.SetDefault("tables.historyPageSize", 15)

	viper.SetDefault("charts.primaryPalette", []string{
		"#319795", "#2c7a7b", "#38b2ac", "#4fd1c5", "#81e6d9",
		"#b2f5ea", "#e6fffa", "#2d3748", "#4a5568", "#718096",
	})
	viper.SetDefault("charts.teamPalette", []string{
		"#a8d5ba", "#8bc9a3", "#6ebd8c", "#51b175", "#34a55e",
		"#7ec99a", "#9dd6b0", "#bce3c6", "#d4edd9", "#e8f5ec",
	})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
