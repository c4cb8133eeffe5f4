package config

import (
	"errors"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Mail      MailConfig      `mapstructure:"mail"`
	Content   ContentConfig   `mapstructure:"content"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// 全局 IP 防刷（与业务限流无关）
	FloodQPS   float64  `mapstructure:"flood_qps"`
	FloodBurst int      `mapstructure:"flood_burst"`
	CORSOrigin []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"` // postgres | sqlite
	Host        string `mapstructure:"host"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	Port        string `mapstructure:"port"`
	SSLMode     string `mapstructure:"sslmode"`
	TimeZone    string `mapstructure:"timezone"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"` // dev | test | production
	URL         string `mapstructure:"url"` // 站点地址，用于邮件中的链接
	SiteName    string `mapstructure:"site_name"`
	AuthorEmail string `mapstructure:"author_email"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"` // ses | log
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	Region   string `mapstructure:"region"`
}

type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

type StatsConfig struct {
	WakatimeAPIKey   string `mapstructure:"wakatime_api_key"`
	GoogleAPIKey     string `mapstructure:"google_api_key"`
	YoutubeChannelID string `mapstructure:"youtube_channel_id"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

var GlobalConfig Config

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return errors.New("database configuration is incomplete")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("sqlite_path is required for the sqlite driver")
		}
	default:
		return errors.New("database driver must be postgres or sqlite")
	}

	// Redis 配置验证
	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Mail.Enabled {
		if c.Mail.From == "" {
			return errors.New("mail.from is required when mail is enabled")
		}
		if c.App.AuthorEmail == "" {
			return errors.New("app.author_email is required when mail is enabled")
		}
	}

	return nil
}

// LoadConfig 加载配置
func LoadConfig() {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults(env)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}

	applyEnvOverrides(&GlobalConfig)

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}

func setDefaults(env string) {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.flood_qps", 50)
	viper.SetDefault("server.flood_burst", 100)
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.timezone", "UTC")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "blog:")
	viper.SetDefault("jwt.issuer", "blog-auth")
	viper.SetDefault("app.env", env)
	viper.SetDefault("app.url", "http://localhost:3000")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("mail.provider", "log")
	viper.SetDefault("mail.region", "us-east-1")
	viper.SetDefault("content.dir", "./content")
	viper.SetDefault("telemetry.service_name", "blog-api")
	viper.SetDefault("telemetry.sampling_rate", 1.0)
}

// applyEnvOverrides 手动覆盖，以防 viper 无法正确解析嵌套结构的环境变量
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}
	if email := os.Getenv("AUTHOR_EMAIL"); email != "" {
		cfg.App.AuthorEmail = email
	}
	if key := os.Getenv("WAKATIME_API_KEY"); key != "" {
		cfg.Stats.WakatimeAPIKey = key
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		cfg.Stats.GoogleAPIKey = key
	}
}
