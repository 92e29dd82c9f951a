package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ltxtrans/internal/types"
)

func clearEnv(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	t.Setenv(EnvOpenAIBaseURL, "")
	t.Setenv(EnvOpenAIModel, "")
}

func TestNewConfigManager(t *testing.T) {
	t.Run("with custom path", func(t *testing.T) {
		customPath := filepath.Join(t.TempDir(), "test-config.json")
		cm, err := NewConfigManager(customPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() != customPath {
			t.Errorf("expected config path %s, got %s", customPath, cm.GetConfigPath())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		cm, err := NewConfigManager("")
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if !strings.HasSuffix(cm.GetConfigPath(), DefaultConfigFileName) {
			t.Errorf("unexpected default config path %s", cm.GetConfigPath())
		}
	})
}

func TestConfigManager_LoadDefaults(t *testing.T) {
	clearEnv(t)
	cm, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}
	if err := cm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	config := cm.GetConfig()
	if config.MaxFragmentLength != DefaultMaxFragmentLength {
		t.Errorf("expected max fragment length %d, got %d", DefaultMaxFragmentLength, config.MaxFragmentLength)
	}
	if config.SplitMode != types.SplitAutomatic {
		t.Errorf("expected automatic split mode, got %s", config.SplitMode)
	}
	if !config.ConstrainedGeneration || !config.EnforceGrammar {
		t.Error("expected constrained generation and grammar enforcement on by default")
	}
	if config.SplitMarker != "%trsltx-split" {
		t.Errorf("unexpected split marker %q", config.SplitMarker)
	}
	if result := ValidateConfig(config); !result.IsValid {
		t.Errorf("default config is invalid: %v", result.Err())
	}
}

func TestConfigManager_SaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cm, err := NewConfigManager(path)
			if err != nil {
				t.Fatalf("NewConfigManager failed: %v", err)
			}

			config := DefaultConfig()
			config.OpenAIAPIKey = "test-api-key"
			config.SplitMode = types.SplitManual
			config.GrammarFormat = types.GrammarGBNF
			config.ConstrainedGeneration = false
			config.CachePath = "/tmp/cache.db"
			cm.SetConfig(config)
			if err := cm.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("config file was not created: %v", err)
			}
			if info.Mode().Perm() != 0600 {
				t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
			}

			loaded, _ := NewConfigManager(path)
			if err := loaded.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			got := loaded.GetConfig()
			if *got != *config {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, config)
			}
		})
	}
}

func TestConfigManager_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "partial.yml")
	if err := os.WriteFile(path, []byte("max_fragment_length: 1200\nsplit_mode: manual\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cm, _ := NewConfigManager(path)
	if err := cm.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	config := cm.GetConfig()
	if config.MaxFragmentLength != 1200 || config.SplitMode != types.SplitManual {
		t.Errorf("file values not applied: %+v", config)
	}
	if !config.EnforceGrammar || config.Concurrency != DefaultConcurrency {
		t.Errorf("defaults lost: %+v", config)
	}
}

func TestConfigManager_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	cm, _ := NewConfigManager(path)
	err := cm.Load()
	if types.CodeOf(err) != types.ErrConfig {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestConfigManager_EnvironmentFallback(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "env-key")
	t.Setenv(EnvOpenAIBaseURL, "http://localhost:8080/v1")
	t.Setenv(EnvOpenAIModel, "local-model")

	t.Run("empty file values use environment", func(t *testing.T) {
		cm, _ := NewConfigManager(filepath.Join(t.TempDir(), "none.json"))
		if err := cm.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		config := cm.GetConfig()
		if config.OpenAIAPIKey != "env-key" {
			t.Errorf("expected env API key, got %q", config.OpenAIAPIKey)
		}
		if config.OpenAIBaseURL != "http://localhost:8080/v1" {
			t.Errorf("expected env base URL, got %q", config.OpenAIBaseURL)
		}
		if config.OpenAIModel != "local-model" {
			t.Errorf("expected env model, got %q", config.OpenAIModel)
		}
	})

	t.Run("file values win", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "set.json")
		data := `{"openai_api_key": "file-key", "openai_model": "file-model"}`
		if err := os.WriteFile(path, []byte(data), 0600); err != nil {
			t.Fatal(err)
		}
		cm, _ := NewConfigManager(path)
		if err := cm.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		config := cm.GetConfig()
		if config.OpenAIAPIKey != "file-key" || config.OpenAIModel != "file-model" {
			t.Errorf("file values overridden: %+v", config)
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		fields []string
	}{
		{"valid", func(*types.Config) {}, nil},
		{"zero length", func(c *types.Config) { c.MaxFragmentLength = 0 }, []string{"max_fragment_length"}},
		{"zero concurrency", func(c *types.Config) { c.Concurrency = 0 }, []string{"concurrency"}},
		{"unknown mode", func(c *types.Config) { c.SplitMode = "sometimes" }, []string{"split_mode"}},
		{"unknown format", func(c *types.Config) { c.GrammarFormat = "peg" }, []string{"grammar_format"}},
		{"same markers", func(c *types.Config) { c.IgnoreEndMarker = c.IgnoreBeginMarker }, []string{"ignore_end_marker"}},
		{"empty marker", func(c *types.Config) { c.SplitMarker = "" }, []string{"split_marker"}},
		{"several", func(c *types.Config) {
			c.MaxFragmentLength = -1
			c.Temperature = 3
			c.MaxRetries = 0
		}, []string{"max_fragment_length", "temperature", "max_retries"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			result := ValidateConfig(config)

			if result.IsValid != (len(tt.fields) == 0) {
				t.Fatalf("IsValid = %v with errors %v", result.IsValid, result.Errors)
			}
			if len(result.Errors) != len(tt.fields) {
				t.Fatalf("expected %d errors, got %d: %v", len(tt.fields), len(result.Errors), result.Errors)
			}
			for i, field := range tt.fields {
				if result.Errors[i].Field != field {
					t.Errorf("error %d: expected field %s, got %s", i, field, result.Errors[i].Field)
				}
			}
			if (result.Err() == nil) != result.IsValid {
				t.Errorf("Err() disagrees with IsValid")
			}
		})
	}
}
