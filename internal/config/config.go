package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/raine/telegram-annonce-bot/internal/listing"
	"github.com/raine/telegram-annonce-bot/internal/llm"
)

const (
	AppName     = "telegram-annonce-bot"
	EnvFileName = "config.env"

	DefaultPort          = 3001
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// LoadEnvFile loads environment variables from ./.env and from the config
// file in the user's config directory. Variables already set in the
// environment win. Errors are ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load(".env")

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
}

// EnvFilePath returns the path of the config file in the user's config
// directory, creating the directory if needed.
func EnvFilePath() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// WriteEnvFile saves values to the config file. The file holds secrets, so
// it is only readable by the owner.
func WriteEnvFile(values map[string]string) (string, error) {
	path, err := EnvFilePath()
	if err != nil {
		return "", err
	}
	content, err := godotenv.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

type Config struct {
	LogLevel   string
	Bot        BotConfig
	Relay      RelayConfig
	Generation GenerationConfig
}

type BotConfig struct {
	Token   string `env:"BOT_TOKEN" validate:"required"`
	AdminID int64  `env:"ADMIN_TELEGRAM_ID" validate:"required,gt=0"`
	// RelayEmbedded makes the bot process serve the relay as well.
	RelayEmbedded bool `env:"RELAY_EMBEDDED"`
}

type RelayConfig struct {
	Port int `env:"PORT" validate:"min=1,max=65535"`
	// APIKey may be empty; the relay then answers every request with 500.
	APIKey        string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" validate:"required,url"`
}

type GenerationConfig struct {
	RelayURL          string        `env:"RELAY_URL" validate:"required,url"`
	TextModel         string        `env:"TEXT_MODEL" validate:"required"`
	ImageModel        string        `env:"IMAGE_MODEL" validate:"required"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT_SECONDS" validate:"min=1s"`
	DefaultImageCount int           `env:"DEFAULT_IMAGE_COUNT" validate:"min=1,max=5"`
}

// Load reads the configuration from the environment. It does not validate;
// each entrypoint calls the Validate method for the parts it uses.
func Load() Config {
	return Config{
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Bot: BotConfig{
			Token:         getEnv("BOT_TOKEN", ""),
			AdminID:       getEnvInt64("ADMIN_TELEGRAM_ID", 0),
			RelayEmbedded: getEnvBool("RELAY_EMBEDDED", false),
		},
		Relay: RelayConfig{
			Port:          getEnvInt("PORT", DefaultPort),
			APIKey:        getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL: strings.TrimSuffix(getEnv("GEMINI_BASE_URL", DefaultGeminiBaseURL), "/"),
		},
		Generation: GenerationConfig{
			RelayURL:          strings.TrimSuffix(getEnv("RELAY_URL", llm.DefaultRelayURL), "/"),
			TextModel:         getEnv("TEXT_MODEL", llm.DefaultTextModel),
			ImageModel:        getEnv("IMAGE_MODEL", llm.DefaultImageModel),
			RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", int(llm.DefaultRelayTimeout/time.Second))) * time.Second,
			DefaultImageCount: getEnvInt("DEFAULT_IMAGE_COUNT", listing.DefaultImageCount),
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// ValidateBot checks the settings the Telegram bot needs.
func (c Config) ValidateBot() error {
	if err := validateStruct(c.Bot); err != nil {
		return err
	}
	if c.Bot.RelayEmbedded {
		if err := validateStruct(c.Relay); err != nil {
			return err
		}
	}
	return validateStruct(c.Generation)
}

// ValidateRelay checks the settings the relay server needs.
func (c Config) ValidateRelay() error {
	return validateStruct(c.Relay)
}

// ValidateGeneration checks the settings needed to talk to a relay.
func (c Config) ValidateGeneration() error {
	return validateStruct(c.Generation)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Field(), fe.Value())
	case "min", "max", "gt":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
