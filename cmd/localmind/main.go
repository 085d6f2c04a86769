package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/localmind-ai/localmind/config"
	"github.com/localmind-ai/localmind/errors"
	"github.com/localmind-ai/localmind/server"
	"github.com/localmind-ai/localmind/server/gemini"
	"github.com/localmind-ai/localmind/server/handlers"
	"github.com/localmind-ai/localmind/server/metrics"
	"github.com/localmind-ai/localmind/server/processing"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	validate   = flag.Bool("validate", false, "Validate configuration and exit")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "v0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("localmind %s\n", Version)
		os.Exit(0)
	}

	// Pick up GEMINI_API_KEY and PORT from a local .env when present.
	_ = godotenv.Load()

	// The config file is optional: without one the service runs on
	// defaults plus the PORT and GEMINI_API_KEY environment variables.
	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	errors.SetLogger(logger)

	watcher, err := newWatcher(*configFile, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to watch config", zap.Error(err))
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	logger.Info("Starting localmind",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.Gemini.Model),
	)

	if err := server.Run(ctx, watcher, newHandler(logger), logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

// loadConfig reads the config file when it exists and falls back to the
// environment-driven defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.LoadFile(path)
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newWatcher hot-reloads the config file when one exists; otherwise the
// configuration is fixed for the lifetime of the process.
func newWatcher(path string, cfg *config.Config, logger *zap.Logger) (config.Watcher, error) {
	if _, err := os.Stat(path); err == nil {
		return config.NewConfigWatcher(path, logger)
	}
	return config.NewStatic(cfg), nil
}

// newHandler builds the full handler chain for one configuration. It is
// invoked again on every config reload.
func newHandler(logger *zap.Logger) func(*config.Config) (http.Handler, error) {
	return func(cfg *config.Config) (http.Handler, error) {
		m := metrics.NewMetrics()

		// Without a credential the server still comes up; the analyze
		// endpoint answers with a misconfiguration error until the key
		// is provided.
		var processor *processing.Processor
		if cfg.Gemini.APIKey != "" {
			client, err := gemini.NewClient(context.Background(), cfg.Gemini, logger)
			if err != nil {
				return nil, fmt.Errorf("create Gemini client: %w", err)
			}
			processor, err = processing.NewProcessor(client, cfg.Gemini.SystemPrompt, m, logger)
			if err != nil {
				return nil, fmt.Errorf("create processor: %w", err)
			}
		} else {
			logger.Warn("GEMINI_API_KEY is not set; /analyze will return a configuration error")
		}

		analyze := handlers.NewAnalyzeHandler(processor, logger)
		return server.NewRouter(analyze, m, logger, cfg.Server.CORS.AllowedOrigin), nil
	}
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
