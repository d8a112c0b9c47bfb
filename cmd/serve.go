package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/ai"
	"github.com/spigell/insurance-advisor/internal/ai/gemini"
	"github.com/spigell/insurance-advisor/internal/ai/openrouter"
	"github.com/spigell/insurance-advisor/internal/catalog"
	"github.com/spigell/insurance-advisor/internal/claims"
	"github.com/spigell/insurance-advisor/internal/document"
	"github.com/spigell/insurance-advisor/internal/fraud"
	"github.com/spigell/insurance-advisor/internal/recommend"
	"github.com/spigell/insurance-advisor/internal/secrets"
	"github.com/spigell/insurance-advisor/internal/server"
	"github.com/spigell/insurance-advisor/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the insurance-advisor HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "address to listen on")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on")
	addCatalogFlag(serveCmd.Flags())
	serveCmd.Flags().String("fraud-model", "", "path to an exported fraud model")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("fraud.model-path", serveCmd.Flags().Lookup("fraud-model"))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the insurance-advisor", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	config.Catalog.Path = catalogPath(cmd.Flags(), config)
	plans, err := catalog.Init(config.Catalog.Path)
	if err != nil {
		logger.Fatal("loading plan catalog", zap.Error(err), zap.String("path", config.Catalog.Path))
	}
	logger.Info("plan catalog loaded", zap.Int("plans", plans.Len()))

	var model *fraud.Model
	if path := strings.TrimSpace(config.Fraud.ModelPath); path != "" {
		model, err = fraud.Init(path)
		if err != nil {
			logger.Fatal("loading fraud model", zap.Error(err), zap.String("path", path))
		}
		logger.Info("fraud model loaded", zap.Int("terms", model.Terms()))
	} else {
		logger.Warn("fraud detection disabled", zap.String("hint", "set fraud.model-path"))
	}

	var assistant ai.Assistant
	if a, err := newAssistant(ctx, config.AI, logger); err != nil {
		logger.Warn("assistant disabled", zap.Error(err))
	} else {
		assistant = a
	}

	store, err := newSessionStore(ctx, config.Sessions, logger)
	if err != nil {
		logger.Fatal("creating session store", zap.Error(err))
	}

	srv, err := server.New(config.Server, server.Deps{
		Catalog:     plans,
		Recommender: recommend.NewService(plans, logger),
		Sessions:    store,
		Extractor:   document.NewExtractor(config.Documents.MaxSize),
		Assistant:   assistant,
		Fraud:       model,
		Claims:      claims.Builtin(),
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("creating http server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("stopped")
}

func newAssistant(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Assistant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ai section is not configured")
	}

	providerName := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if providerName == "" {
		providerName = openrouter.ProviderName
	}

	var keyEnv string
	switch providerName {
	case openrouter.ProviderName:
		keyEnv = "OPENROUTER_API_KEY"
	case gemini.ProviderName:
		keyEnv = "GEMINI_API_KEY"
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  providerName + " api key",
		Value: cfg.APIKey,
		Env:   keyEnv,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.api-key-file or %s)", err, keyEnv)
	}

	var provider ai.Provider
	switch providerName {
	case gemini.ProviderName:
		genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))
		provider, err = gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	default:
		provider, err = openrouter.New(openrouter.Options{
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		}, logger)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("assistant enabled", zap.String("provider", provider.Name()), zap.String("model", provider.Model()))

	return ai.NewInsuranceAssistant(provider, logger, cfg.MaxLogLength), nil
}

func newSessionStore(ctx context.Context, cfg SessionsConfig, logger *zap.Logger) (session.Store, error) {
	switch strings.TrimSpace(strings.ToLower(cfg.Backend)) {
	case "", "memory":
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil
	case "redis":
		store := session.NewRedisStore(cfg.RedisAddr, cfg.TTL)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.TTL))
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}

// redacted hides the inline api key from debug output.
func redacted(config *Config) *Config {
	clone := *config
	if config.AI != nil && config.AI.APIKey != "" {
		aiCfg := *config.AI
		aiCfg.APIKey = "***"
		clone.AI = &aiCfg
	}
	return &clone
}
