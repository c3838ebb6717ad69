package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProviderConfig 补全服务配置 / completion service configuration
type ProviderConfig struct {
	BaseURL    string `json:"base_url"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
	TimeoutMS  int    `json:"timeout_ms"`
	MaxRetries int    `json:"max_retries"`
}

// StorageConfig 覆盖层持久化配置；backend 为 sqlite | file | redis
// StorageConfig selects the overlay persistence backend: sqlite | file | redis
type StorageConfig struct {
	Backend  string `json:"backend"`
	BaseDir  string `json:"base_dir"`
	RedisURL string `json:"redis_url"`
}

// SuggestConfig 建议管线配置
// SuggestConfig configures the suggestion pipeline
type SuggestConfig struct {
	// AutoApply 为 false 时，所有建议一律进入人工确认。
	// When AutoApply is false, every suggestion goes to review.
	AutoApply         bool `json:"auto_apply"`
	ContextTokenLimit int  `json:"context_token_limit"`
}

// BaseConfig 基础数据集来源 / base dataset source
type BaseConfig struct {
	Path     string `json:"path"`
	Timezone string `json:"timezone"`
}

type Config struct {
	Provider ProviderConfig `json:"provider"`
	Storage  StorageConfig  `json:"storage"`
	Suggest  SuggestConfig  `json:"suggest"`
	Base     BaseConfig     `json:"base"`
}

type fileSuggestConfig struct {
	AutoApply         *bool `json:"auto_apply"`
	ContextTokenLimit *int  `json:"context_token_limit"`
}

type fileConfig struct {
	Provider *ProviderConfig    `json:"provider"`
	Storage  *StorageConfig     `json:"storage"`
	Suggest  *fileSuggestConfig `json:"suggest"`
	Base     *BaseConfig        `json:"base"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			TimeoutMS:  60000,
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			BaseDir: "~/.planner",
		},
		Suggest: SuggestConfig{
			AutoApply:         true,
			ContextTokenLimit: 8000,
		},
		Base: BaseConfig{
			Path: "~/.planner/base.json",
		},
	}
}

// Load 按优先级加载配置：默认值 < 全局配置 < 项目配置 < 环境变量。
// Load applies config layers: defaults < global file < project file < env.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("PLANNER_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".planner", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"planner.config.json",
		".planner/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Provider != nil {
		cfg.Provider = mergeProvider(cfg.Provider, *fc.Provider)
	}
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Suggest != nil {
		if fc.Suggest.AutoApply != nil {
			cfg.Suggest.AutoApply = *fc.Suggest.AutoApply
		}
		if fc.Suggest.ContextTokenLimit != nil {
			cfg.Suggest.ContextTokenLimit = *fc.Suggest.ContextTokenLimit
		}
	}
	if fc.Base != nil {
		if strings.TrimSpace(fc.Base.Path) != "" {
			cfg.Base.Path = fc.Base.Path
		}
		if strings.TrimSpace(fc.Base.Timezone) != "" {
			cfg.Base.Timezone = fc.Base.Timezone
		}
	}
}

func mergeProvider(base ProviderConfig, override ProviderConfig) ProviderConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	if override.MaxRetries > 0 {
		base.MaxRetries = override.MaxRetries
	}
	return base
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.Backend) != "" {
		base.Backend = override.Backend
	}
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.RedisURL) != "" {
		base.RedisURL = override.RedisURL
	}
	return base
}

func normalize(cfg *Config) error {
	def := Default()
	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		cfg.Provider.BaseURL = def.Provider.BaseURL
	}
	if strings.TrimSpace(cfg.Provider.Model) == "" {
		cfg.Provider.Model = def.Provider.Model
	}
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = def.Provider.TimeoutMS
	}
	if cfg.Provider.MaxRetries <= 0 {
		cfg.Provider.MaxRetries = def.Provider.MaxRetries
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch backend {
	case "sqlite", "file", "redis":
		cfg.Storage.Backend = backend
	case "":
		cfg.Storage.Backend = def.Storage.Backend
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	storageDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	if storageDir == "" {
		storageDir, err = expandPath(def.Storage.BaseDir)
		if err != nil {
			return err
		}
	}
	cfg.Storage.BaseDir = storageDir

	basePath, err := expandPath(cfg.Base.Path)
	if err != nil {
		return err
	}
	cfg.Base.Path = basePath

	if cfg.Suggest.ContextTokenLimit <= 0 {
		cfg.Suggest.ContextTokenLimit = def.Suggest.ContextTokenLimit
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("PLANNER_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANNER_MODEL")); v != "" {
		cfg.Provider.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANNER_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANNER_DATA_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("PLANNER_BASE_PATH")); v != "" {
		cfg.Base.Path = v
	}
	return cfg, normalize(&cfg)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}
