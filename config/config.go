package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int      `mapstructure:"port"`
	Debug    bool     `mapstructure:"debug"`
	AdminKey string   `mapstructure:"admin_key"`
	AdminIPs []string `mapstructure:"admin_ips"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type GameConfig struct {
	FishingCooldownS    int            `mapstructure:"fishing_cooldown_s"`
	PassCooldownS       int            `mapstructure:"pass_cooldown_s"`
	DailyReward         int64          `mapstructure:"daily_reward"`
	DailyCooldownH      int            `mapstructure:"daily_cooldown_h"`
	WindowOpenMinute    int            `mapstructure:"window_open_minute"`
	WindowCloseMinute   int            `mapstructure:"window_close_minute"`
	MaxBonusCatches     int            `mapstructure:"max_bonus_catches"`
	WeightsNormal       map[string]int `mapstructure:"weights_normal"`
	WeightsLimited      map[string]int `mapstructure:"weights_limited"`
	LeaderboardSize     int            `mapstructure:"leaderboard_size"`
	LeaderboardRefreshS int            `mapstructure:"leaderboard_refresh_s"`
	UpgradePointPrice   int64          `mapstructure:"upgrade_point_price"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// ServiceName/ServiceSecretHash authenticate the chat-platform glue.
	// The hash is a bcrypt hash of the shared secret.
	ServiceName       string `mapstructure:"service_name"`
	ServiceSecretHash string `mapstructure:"service_secret_hash"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/perofish.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("game.fishing_cooldown_s", 3600)
	v.SetDefault("game.pass_cooldown_s", 86400)
	v.SetDefault("game.daily_reward", 100)
	v.SetDefault("game.daily_cooldown_h", 24)
	v.SetDefault("game.window_open_minute", 0)
	v.SetDefault("game.window_close_minute", 30)
	v.SetDefault("game.max_bonus_catches", 4)
	v.SetDefault("game.weights_normal", map[string]int{
		"common": 6000, "uncommon": 3000, "rare": 1500, "epic": 700,
		"legendary": 300, "immortal": 120, "mythical": 50, "arcane": 20,
		"ultimate": 10,
	})
	v.SetDefault("game.weights_limited", map[string]int{
		"common": 1000, "uncommon": 900, "rare": 800, "epic": 700,
		"legendary": 600, "immortal": 500, "mythical": 400, "arcane": 300,
		"ultimate": 200,
	})
	v.SetDefault("game.leaderboard_size", 10)
	v.SetDefault("game.leaderboard_refresh_s", 60)
	v.SetDefault("game.upgrade_point_price", 100)
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.service_name", "bot")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
