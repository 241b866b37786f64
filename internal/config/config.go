package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	DBPath         string        `mapstructure:"db_path"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	ContentTimeout time.Duration `mapstructure:"content_timeout"`
	VacancyGrace   time.Duration `mapstructure:"vacancy_grace"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`

	StateRateLimit    int           `mapstructure:"state_rate_limit"`
	StateRateInterval time.Duration `mapstructure:"state_rate_interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, then PRESENCE_* environment
// variables, then command line flags, each overriding the one before.
func Load(args []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	flags := pflag.NewFlagSet("presence", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a yaml config file")
	flags.Int("port", 8080, "listen port")
	flags.String("db-path", "./data/presence.db", "sqlite database file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	if *configFile != "" {
		fileName = *configFile
	}

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "./data/presence.db")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("content_timeout", "3s")
	v.SetDefault("vacancy_grace", "10m")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("state_rate_limit", 10)
	v.SetDefault("state_rate_interval", "1s")

	v.SetEnvPrefix("PRESENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"port":      "port",
		"db_path":   "db-path",
		"log_level": "log-level",
	} {
		f := flags.Lookup(flag)
		if f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Str("db", cfg.DBPath).Msg("config ready")
	return &cfg, nil
}
