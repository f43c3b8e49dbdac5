package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tasklens/internal/digest"
	"tasklens/internal/domain"
	"tasklens/internal/tagging"
)

const defaultExternalHTTPTimeout = 30 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	HTTPAddr           string   `yaml:"http_addr"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	DBDriver string `yaml:"db_driver"`
	DBPath   string `yaml:"db_path"`
	DBDSN    string `yaml:"db_dsn"`

	Classifier          string `yaml:"classifier"`
	ClassifyConcurrency int    `yaml:"classify_concurrency"`
	GlossaryPath        string `yaml:"glossary_path"`
	LLMProvider         string `yaml:"llm_provider"`
	LLMModel            string `yaml:"llm_model"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`
	OpenAIBaseURL       string `yaml:"openai_base_url"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	// MaxOpenTasks caps open tasks created per day. Negative disables it.
	MaxOpenTasks int `yaml:"max_open_tasks"`

	Members          []string `yaml:"members"`
	ManagerSlackIDs  []string `yaml:"manager_slack_ids"`
	DigestSchedule   string   `yaml:"digest_schedule"`
	MondayCutoffTime string   `yaml:"monday_cutoff_time"`
	Timezone         string   `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverrideList(&cfg.CORSAllowedOrigins, "CORS_ALLOWED_ORIGINS")
	envOverride(&cfg.DBDriver, "DB_DRIVER")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.DBDSN, "DB_DSN")
	envOverride(&cfg.Classifier, "CLASSIFIER")
	envOverrideInt(&cfg.ClassifyConcurrency, "CLASSIFY_CONCURRENCY")
	envOverride(&cfg.GlossaryPath, "GLOSSARY_PATH")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.MaxOpenTasks, "MAX_OPEN_TASKS")
	envOverrideList(&cfg.Members, "MEMBERS")
	envOverrideList(&cfg.ManagerSlackIDs, "MANAGER_SLACK_IDS")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.MondayCutoffTime, "MONDAY_CUTOFF_TIME")
	envOverride(&cfg.Timezone, "TIMEZONE")

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite3"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./tasklens.db"
	}
	if cfg.Classifier == "" {
		cfg.Classifier = ClassifierKeyword
	}
	if cfg.ClassifyConcurrency == 0 {
		cfg.ClassifyConcurrency = 4
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.MaxOpenTasks == 0 {
		cfg.MaxOpenTasks = 3
	}
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = "0 9 * * 1"
	}
	if cfg.MondayCutoffTime == "" {
		cfg.MondayCutoffTime = "12:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		log.Fatalf("Partial Slack config: slack_bot_token and slack_app_token are required together")
	}
	if !cfg.SlackConfigured() {
		log.Printf("WARNING: Slack is not configured. Only the HTTP API will run.")
	}

	switch cfg.DBDriver {
	case "sqlite3":
	case "postgres":
		if cfg.DBDSN == "" {
			log.Fatalf("db_dsn is required when db_driver=postgres")
		}
	default:
		log.Fatalf("db_driver must be 'sqlite3' or 'postgres', got '%s'", cfg.DBDriver)
	}

	switch cfg.Classifier {
	case ClassifierKeyword:
	case ClassifierLLM:
		switch cfg.LLMProvider {
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
			}
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				log.Fatalf("openai_api_key is required when llm_provider=openai")
			}
		default:
			log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
		}
	default:
		log.Fatalf("classifier must be 'keyword' or 'llm', got '%s'", cfg.Classifier)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if _, _, err := domain.ParseClock(cfg.MondayCutoffTime); err != nil {
		log.Fatalf("invalid monday_cutoff_time '%s': %v", cfg.MondayCutoffTime, err)
	}
	if _, err := digest.ParseSchedule(cfg.DigestSchedule); err != nil {
		log.Fatalf("invalid digest_schedule '%s': %v", cfg.DigestSchedule, err)
	}
	if cfg.ClassifyConcurrency < 1 {
		log.Fatalf("invalid classify_concurrency '%d': must be >= 1", cfg.ClassifyConcurrency)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.GlossaryPath != "" {
		if err := validateGlossaryPath(cfg.GlossaryPath); err != nil {
			log.Fatalf("invalid glossary_path '%s': %v", cfg.GlossaryPath, err)
		}
	}

	return cfg
}

func defaultModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o-mini"
	}
	return "claude-3-5-haiku-latest"
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// envOverrideList replaces field with the comma-separated, non-empty values
// of envKey.
func envOverrideList(field *[]string, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	*field = nil
	for _, v := range strings.Split(val, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			*field = append(*field, v)
		}
	}
}

func (c Config) IsManagerID(userID string) bool {
	for _, id := range c.ManagerSlackIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// DataSource is the DSN handed to the configured database driver.
func (c Config) DataSource() string {
	if c.DBDriver == "postgres" {
		return c.DBDSN
	}
	return c.DBPath
}

// OpenTaskLimit converts MaxOpenTasks to the form the task service expects,
// where 0 means no limit.
func (c Config) OpenTaskLimit() int {
	if c.MaxOpenTasks < 0 {
		return 0
	}
	return c.MaxOpenTasks
}

func validateGlossaryPath(path string) error {
	_, err := tagging.LoadGlossary(path, tagging.KeywordClassifier{})
	return err
}
