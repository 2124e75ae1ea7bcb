package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	SinkFile   = "file"
	SinkSheets = "sheets"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	StudyTitle string `env:"STUDY_TITLE" envDefault:"Neuroeconomics Learning Study"`

	// LLM settings
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string        `env:"OPENAI_BASE_URL"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"60s"`
	ContextMode    string        `env:"CONTEXT_MODE" envDefault:"full"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Yandex provider variant
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`

	// Identity
	IdentityMode string `env:"IDENTITY_MODE" envDefault:"short"`

	// Log sink
	LogSink           string `env:"LOG_SINK" envDefault:"file"`
	LogFilePath       string `env:"LOG_FILE_PATH" envDefault:"logs/interactions.jsonl"`
	SheetsCredentials string `env:"SHEETS_CREDENTIALS_FILE"`
	SpreadsheetID     string `env:"SHEETS_SPREADSHEET_ID"`
	SheetsRange       string `env:"SHEETS_RANGE" envDefault:"Sheet1"`

	// Operator reporting (optional)
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	OperatorChatID   int64  `env:"OPERATOR_CHAT_ID"`
	ReportCronSpec   string `env:"REPORT_CRON_SPEC" envDefault:"0 21 * * *"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Validate enforces startup-time configuration requirements: missing gateway
// credentials or a missing sink target must prevent the session from
// starting rather than fail mid-turn.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "yandex":
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return fmt.Errorf("YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for the yandex provider")
		}
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}

	switch c.LogSink {
	case SinkFile:
		if c.LogFilePath == "" {
			return fmt.Errorf("LOG_FILE_PATH is required for the file sink")
		}
	case SinkSheets:
		if c.SheetsCredentials == "" || c.SpreadsheetID == "" {
			return fmt.Errorf("SHEETS_CREDENTIALS_FILE and SHEETS_SPREADSHEET_ID are required for the sheets sink")
		}
	default:
		return fmt.Errorf("unknown log sink: %s", c.LogSink)
	}

	if c.ContextMode != "full" && c.ContextMode != "latest" {
		return fmt.Errorf("CONTEXT_MODE must be full or latest, got %q", c.ContextMode)
	}

	if c.IdentityMode != "" && c.IdentityMode != "short" && c.IdentityMode != "token" {
		return fmt.Errorf("IDENTITY_MODE must be short or token, got %q", c.IdentityMode)
	}

	if c.TelegramBotToken != "" && c.OperatorChatID == 0 {
		return fmt.Errorf("OPERATOR_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}
