package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vibe-cli/vibe/internal/errors"
	"github.com/vibe-cli/vibe/internal/util"
)

// Source identifies which resolution layer set a config key.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceProject Source = "project"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// EnvVars maps VIBE_* environment variables to config keys.
var EnvVars = map[string]string{
	"VIBE_PROVIDER":     "provider",
	"VIBE_MODEL":        "model",
	"VIBE_AUTO_COMMIT":  "auto_commit",
	"VIBE_TOKEN_BUDGET": "token_budget",
	"VIBE_TIMEOUT":      "timeout",
}

// Tracked is a resolved Config plus per-key source attribution.
type Tracked struct {
	Config  *Config
	sources map[string]Source
}

// SetSource records which layer set key.
func (t *Tracked) SetSource(key string, src Source) {
	t.sources[key] = src
}

// SourceOf returns the layer that set key. Unknown keys report defaults.
func (t *Tracked) SourceOf(key string) Source {
	if s, ok := t.sources[key]; ok {
		return s
	}
	return SourceDefault
}

// Load resolves configuration for the project rooted at projectRoot.
// Global config errors are warnings; a malformed project config is fatal
// because it is the file the user is most likely editing.
func Load(projectRoot string) (*Tracked, error) {
	t := &Tracked{Config: Default(), sources: make(map[string]Source)}

	if home, err := os.UserHomeDir(); err == nil {
		globalPath := filepath.Join(home, Dir, FileName)
		if _, err := os.Stat(globalPath); err == nil {
			if err := mergeFile(t, globalPath, SourceGlobal); err != nil {
				slog.Warn("skipping unreadable global config", "path", globalPath, "error", err)
			}
		}
	}

	projectPath := filepath.Join(projectRoot, Dir, FileName)
	if _, err := os.Stat(projectPath); err == nil {
		if err := mergeFile(t, projectPath, SourceProject); err != nil {
			return nil, err
		}
	}

	applyEnv(t)
	return t, nil
}

// ApplyFlags overlays CLI flag values, the highest-precedence layer.
// Empty values mean the flag was not given.
func (t *Tracked) ApplyFlags(provider, model string) {
	if provider != "" {
		t.Config.Provider = provider
		t.Config.Dual.MainProvider = provider
		t.SetSource("provider", SourceFlag)
	}
	if model != "" {
		t.Config.Model = model
		t.Config.Dual.MainModel = model
		t.SetSource("model", SourceFlag)
	}
}

// Save writes cfg to the project config file.
func Save(projectRoot string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	path := filepath.Join(projectRoot, Dir, FileName)
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return errors.ErrFilePermission(path).WithCause(err)
	}
	return nil
}

// mergeFile overlays values set in the YAML file at path, tracking sources.
// Only keys present in the raw document override; zero values in absent keys
// never clobber lower layers.
func mergeFile(t *Tracked, path string, src Source) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.ErrFilePermission(path).WithCause(err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.ErrConfigInvalid(path, err.Error()).WithCause(err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return errors.ErrConfigInvalid(path, err.Error()).WithCause(err)
	}

	cfg := t.Config
	if _, ok := raw["project_name"]; ok {
		cfg.ProjectName = fileCfg.ProjectName
		t.SetSource("project_name", src)
	}
	if _, ok := raw["project_type"]; ok {
		cfg.ProjectType = fileCfg.ProjectType
		t.SetSource("project_type", src)
	}
	if _, ok := raw["provider"]; ok {
		cfg.Provider = fileCfg.Provider
		t.SetSource("provider", src)
	}
	if _, ok := raw["model"]; ok {
		cfg.Model = fileCfg.Model
		t.SetSource("model", src)
	}
	if _, ok := raw["auto_commit"]; ok {
		cfg.AutoCommit = fileCfg.AutoCommit
		t.SetSource("auto_commit", src)
	}
	if _, ok := raw["language"]; ok {
		cfg.Language = fileCfg.Language
		t.SetSource("language", src)
	}
	if _, ok := raw["token_budget"]; ok {
		cfg.TokenBudget = fileCfg.TokenBudget
		t.SetSource("token_budget", src)
	}
	if _, ok := raw["timeout"]; ok {
		cfg.Timeout = fileCfg.Timeout
		t.SetSource("timeout", src)
	}

	if rawDual, ok := raw["dual"].(map[string]any); ok {
		mergeDual(cfg, &fileCfg, rawDual, t, src)
	}
	if rawRetry, ok := raw["retry"].(map[string]any); ok {
		if _, ok := rawRetry["max_attempts"]; ok {
			cfg.Retry.MaxAttempts = fileCfg.Retry.MaxAttempts
			t.SetSource("retry.max_attempts", src)
		}
		if _, ok := rawRetry["initial_backoff"]; ok {
			cfg.Retry.InitialBackoff = fileCfg.Retry.InitialBackoff
			t.SetSource("retry.initial_backoff", src)
		}
	}
	if rawHealing, ok := raw["healing"].(map[string]any); ok {
		if _, ok := rawHealing["max_attempts"]; ok {
			cfg.Healing.MaxAttempts = fileCfg.Healing.MaxAttempts
			t.SetSource("healing.max_attempts", src)
		}
	}
	return nil
}

func mergeDual(cfg, fileCfg *Config, raw map[string]any, t *Tracked, src Source) {
	if _, ok := raw["enabled"]; ok {
		cfg.Dual.Enabled = fileCfg.Dual.Enabled
		t.SetSource("dual.enabled", src)
	}
	if _, ok := raw["main_provider"]; ok {
		cfg.Dual.MainProvider = fileCfg.Dual.MainProvider
		t.SetSource("dual.main_provider", src)
	}
	if _, ok := raw["main_model"]; ok {
		cfg.Dual.MainModel = fileCfg.Dual.MainModel
		t.SetSource("dual.main_model", src)
	}
	if _, ok := raw["knowledge_provider"]; ok {
		cfg.Dual.KnowledgeProvider = fileCfg.Dual.KnowledgeProvider
		t.SetSource("dual.knowledge_provider", src)
	}
	if _, ok := raw["knowledge_model"]; ok {
		cfg.Dual.KnowledgeModel = fileCfg.Dual.KnowledgeModel
		t.SetSource("dual.knowledge_model", src)
	}
}

func applyEnv(t *Tracked) {
	for envVar, key := range EnvVars {
		val := os.Getenv(envVar)
		if val == "" {
			continue
		}
		switch key {
		case "provider":
			t.Config.Provider = val
		case "model":
			t.Config.Model = val
		case "auto_commit":
			if b, err := strconv.ParseBool(val); err == nil {
				t.Config.AutoCommit = b
			} else {
				slog.Warn("ignoring invalid env value", "var", envVar, "value", val)
				continue
			}
		case "token_budget":
			if n, err := strconv.Atoi(val); err == nil {
				t.Config.TokenBudget = n
			} else {
				slog.Warn("ignoring invalid env value", "var", envVar, "value", val)
				continue
			}
		case "timeout":
			if d, err := time.ParseDuration(val); err == nil {
				t.Config.Timeout = d
			} else {
				slog.Warn("ignoring invalid env value", "var", envVar, "value", val)
				continue
			}
		}
		t.SetSource(key, SourceEnv)
	}
}
