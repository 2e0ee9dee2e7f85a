package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/north-cloud/muniwatch/internal/config"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/lexicon"
	"github.com/jonesrussell/north-cloud/muniwatch/internal/logger"
)

// ServiceName tags every log line and health response.
const ServiceName = "muniwatch"

// Version is overridden at build time with -ldflags "-X ...bootstrap.Version=...".
var Version = "dev"

// LoadConfig loads and validates configuration. debug forces debug mode on
// regardless of the file.
func LoadConfig(path string, debug bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// CreateLogger creates the service logger from configuration.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	logCfg := cfg.Logging
	if cfg.Debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With(
		logger.String("service", ServiceName),
		logger.String("version", Version),
	)
	logger.SetDefault(log)
	return log, nil
}

// LoadLexicon reads the configured lexicon, or the embedded default.
func LoadLexicon(cfg *config.Config, log logger.Logger) (*lexicon.Lexicon, error) {
	lex, err := lexicon.Load(cfg.Crawl.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	source := cfg.Crawl.LexiconPath
	if source == "" {
		source = "embedded"
	}
	log.Info("Lexicon loaded",
		logger.String("source", source),
		logger.Int("cities", len(lex.Cities)),
		logger.Int("utilities", len(lex.Utilities)),
	)
	return lex, nil
}
