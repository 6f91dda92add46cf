package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/cache"
	"github.com/ppiankov/claimwatch/internal/llm"
	"github.com/ppiankov/claimwatch/internal/logging"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/normalize"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// envAliases binds config keys to the conventional variables of each service as
// well as their CLAIMWATCH_* names. llm.api_key is never written to YAML.
var envAliases = map[string][]string{
	"llm.api_key":              {"CLAIMWATCH_LLM_API_KEY", "OPENAI_API_KEY"},
	"sources.postgres.dsn":     {"CLAIMWATCH_SOURCES_POSTGRES_DSN", "DATABASE_URL"},
	"sources.minio.access_key": {"CLAIMWATCH_SOURCES_MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY"},
	"sources.minio.secret_key": {"CLAIMWATCH_SOURCES_MINIO_SECRET_KEY", "MINIO_SECRET_KEY"},
	"llm.base_url":             {"CLAIMWATCH_LLM_BASE_URL", "OLLAMA_BASE_URL"},
	"sources.minio.endpoint":   {"CLAIMWATCH_SOURCES_MINIO_ENDPOINT", "MINIO_ENDPOINT"},
}

// loadConfig merges defaults, config file, environment and bound flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(v, cfg); err != nil {
		return nil, err
	}
	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerDefaults teaches viper every config key so AutomaticEnv can see them
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			setDefaults(v, key, child)
			continue
		}
		v.SetDefault(key, val)
	}
}

// newLogger builds the zap logger for cfg
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Env)
}

// buildPipeline wires the cache and digest provider configured in cfg
func buildPipeline(cfg *model.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	var c cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.DiskDir
		if dir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(home, ".claimwatch", "cache")
			}
		}
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, dir, cfg.Cache.DiskTTL)
	}

	var digester pipeline.Digester
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("init llm provider: %w", err)
		}
		logger.Info("llm digest enabled",
			zap.String("provider", s.ProviderName()),
			zap.String("model", cfg.LLM.Model),
		)
		digester = s
	}

	return pipeline.NewPipeline(cfg, logger, c, digester), nil
}

// parseNow reads the --now flag: empty means the current time
func parseNow(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	d, err := normalize.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: use YYYY-MM-DD or RFC3339", s)
	}
	return d, nil
}
