package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (zai, deepseek, openai, siliconflow, ollama) use the same config
	LLMProvider string   // Provider identifier: zai, deepseek, openai, siliconflow, dashscope, openrouter, ollama
	LLMAPIKeys  []string // Ordered credential pool; rotated on upstream rate limits
	LLMBaseURL  string   // Unified LLM base URL (optional, has default per provider)
	LLMModel    string   // Model name: glm-4.7, deepseek-chat, gpt-4o, etc.
	LLMTimeout  int      // LLM request timeout in seconds (default: 120)

	// Memory configuration
	ShortTermMessageLimit int // Short-term window size in messages (default: 30)
	ExtractionConcurrency int // Max concurrent extraction model calls (default: 4)

	// Server configuration
	Mode        string
	Addr        string
	Port        int
	Data        string
	Driver      string
	DSN         string
	Version     string
	InstanceURL string
}

// Provider default configurations for LLM.
// Used when LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-5.2",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if at least one LLM credential is configured.
func (p *Profile) IsAIEnabled() bool {
	return len(p.LLMAPIKeys) > 0
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("MEMORYCHAT_LLM_PROVIDER", "openai")
	p.LLMBaseURL = getEnvOrDefault("MEMORYCHAT_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("MEMORYCHAT_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("MEMORYCHAT_LLM_TIMEOUT_SECONDS", 120)

	// Credential pool: MEMORYCHAT_LLM_API_KEYS takes precedence (comma-separated,
	// rotation order preserved); MEMORYCHAT_LLM_API_KEY is the single-key fallback.
	p.LLMAPIKeys = nil
	if keys := os.Getenv("MEMORYCHAT_LLM_API_KEYS"); keys != "" {
		for _, key := range strings.Split(keys, ",") {
			if key = strings.TrimSpace(key); key != "" {
				p.LLMAPIKeys = append(p.LLMAPIKeys, key)
			}
		}
	} else if key := os.Getenv("MEMORYCHAT_LLM_API_KEY"); key != "" {
		p.LLMAPIKeys = []string{key}
	}

	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: openai", "provider", p.LLMProvider)
			p.LLMProvider = "openai"
		}
	}
	if p.LLMBaseURL == "" || p.LLMModel == "" {
		if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
			if p.LLMBaseURL == "" {
				p.LLMBaseURL = defaults.BaseURL
			}
			if p.LLMModel == "" {
				p.LLMModel = defaults.Model
			}
		}
	}

	p.ShortTermMessageLimit = getEnvOrDefaultInt("MEMORYCHAT_SHORT_TERM_MESSAGE_LIMIT", 30)
	p.ExtractionConcurrency = getEnvOrDefaultInt("MEMORYCHAT_EXTRACTION_CONCURRENCY", 4)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/memorychat"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("memorychat_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn required for postgres driver")
	}

	if p.ShortTermMessageLimit <= 0 {
		p.ShortTermMessageLimit = 30
	}
	if p.ExtractionConcurrency <= 0 {
		p.ExtractionConcurrency = 4
	}

	return nil
}
