package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/document"
	"github.com/spigell/insurance-advisor/internal/logger"
	"github.com/spigell/insurance-advisor/internal/server"
	"github.com/spigell/insurance-advisor/internal/session"
)

const (
	app       = "insurance-advisor"
	envPrefix = "INSURANCE_ADVISOR"
)

type Config struct {
	Server    server.Config   `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Fraud     FraudConfig     `mapstructure:"fraud"`
	Documents DocumentsConfig `mapstructure:"documents"`
	AI        *AIConfig       `mapstructure:"ai"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
}

type CatalogConfig struct {
	// Path to a JSON plan catalog. Empty means the built-in catalog.
	Path string `mapstructure:"path"`
}

type FraudConfig struct {
	// ModelPath points to the exported classifier. Fraud detection is disabled when empty.
	ModelPath string `mapstructure:"model-path"`
}

type DocumentsConfig struct {
	MaxSize int64 `mapstructure:"max-size"`
}

type AIConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	BaseURL      string `mapstructure:"base-url"`
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type SessionsConfig struct {
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis-addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "insurance-advisor recommends insurance plans and answers policy questions",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is insurance-advisor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key so env overrides reach viper.Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown-timeout", 10*time.Second)
	v.SetDefault("server.rate-limit", 10)

	v.SetDefault("catalog.path", "")
	v.SetDefault("fraud.model-path", "")
	v.SetDefault("documents.max-size", document.DefaultMaxSize)

	v.SetDefault("ai.provider", "openrouter")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.base-url", "")
	v.SetDefault("ai.api-key", "")
	v.SetDefault("ai.api-key-file", "")
	v.SetDefault("ai.max-retries", 3)
	v.SetDefault("ai.max-log-length", 200)

	v.SetDefault("sessions.backend", "memory")
	v.SetDefault("sessions.redis-addr", "localhost:6379")
	v.SetDefault("sessions.ttl", session.DefaultTTL)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional; an explicit --config is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func newLogger() *zap.Logger {
	return newLoggerTo(logger.Stdout)
}

// newCLILogger is for commands whose results go to stdout.
func newCLILogger() *zap.Logger {
	return newLoggerTo(logger.Stderr)
}

func newLoggerTo(output string) *zap.Logger {
	l, err := logger.NewWithOutput(viper.GetBool("json"), viper.GetBool("debug"), output)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
