package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/dealer-pipeline/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "DP"

	// Dir is the directory under the user's home holding config and data files.
	Dir = ".dealerpipe"

	KeyRecordsPath       = "records.path"
	KeyRepositoryBackend = "repository.backend"
	KeyBadgerPath        = "repository.badger_path"
	KeyHistorySize       = "history.size"
	KeySaveTimeout       = "sync.save_timeout"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyActorID           = "actor.id"
	KeyActorRole         = "actor.role"
)

const (
	BackendTOML   = "toml"
	BackendBadger = "badger"
)

type Config struct {
	RecordsPath string
	Backend     string
	BadgerPath  string
	HistorySize int
	SaveTimeout time.Duration
	LogLevel    slog.Level
	LogFormat   string
	Actor       domain.Actor
}

// New returns a viper instance reading ~/.dealerpipe/config.toml with DP_
// environment overrides, e.g. DP_LOG_LEVEL for log.level.
func New() (*viper.Viper, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, Dir))
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	setDefaults(cfg, homeDir)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}

func setDefaults(cfg *viper.Viper, homeDir string) {
	cfg.SetDefault(KeyRecordsPath, filepath.Join(homeDir, Dir, "records.toml"))
	cfg.SetDefault(KeyRepositoryBackend, BackendTOML)
	cfg.SetDefault(KeyBadgerPath, filepath.Join(homeDir, Dir, "badger"))
	cfg.SetDefault(KeyHistorySize, 50)
	cfg.SetDefault(KeySaveTimeout, "15s")
	cfg.SetDefault(KeyLogLevel, "warn")
	cfg.SetDefault(KeyLogFormat, "text")
	cfg.SetDefault(KeyActorRole, string(domain.RoleSalesperson))
}

// Load decodes and validates cfg.
func Load(cfg *viper.Viper) (Config, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.GetString(KeyRepositoryBackend)))
	if backend != BackendTOML && backend != BackendBadger {
		return Config{}, fmt.Errorf("unsupported repository backend %q", backend)
	}

	historySize := cfg.GetInt(KeyHistorySize)
	if historySize <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", KeyHistorySize, historySize)
	}

	saveTimeout := cfg.GetDuration(KeySaveTimeout)
	if saveTimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be a positive duration", KeySaveTimeout)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyLogLevel, err)
	}

	format := strings.ToLower(cfg.GetString(KeyLogFormat))
	if format != "text" && format != "json" {
		return Config{}, fmt.Errorf("unsupported log format %q", format)
	}

	role := domain.Role(strings.ToLower(cfg.GetString(KeyActorRole)))
	if !role.Valid() {
		return Config{}, fmt.Errorf("unsupported actor role %q", role)
	}

	actorID := cfg.GetString(KeyActorID)
	if actorID == "" {
		actorID = os.Getenv("USER")
	}

	return Config{
		RecordsPath: cfg.GetString(KeyRecordsPath),
		Backend:     backend,
		BadgerPath:  cfg.GetString(KeyBadgerPath),
		HistorySize: historySize,
		SaveTimeout: saveTimeout,
		LogLevel:    level,
		LogFormat:   format,
		Actor:       domain.Actor{ID: domain.UserID(actorID), Role: role},
	}, nil
}
