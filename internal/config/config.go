package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	LLM      LLMConfig     `mapstructure:"llm"`
	Server   ServerConfig  `mapstructure:"server"`
	Storage  StorageConfig `mapstructure:"storage"`
	Chat     ChatConfig    `mapstructure:"chat"`
	LogLevel string        `mapstructure:"log_level"`
}

// LLMConfig holds the model provider configuration.
type LLMConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// StorageConfig holds the session store configuration.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ChatConfig holds the conversation presentation defaults.
type ChatConfig struct {
	TitleMaxLen  int    `mapstructure:"title_max_len"`
	ErrorText    string `mapstructure:"error_text"`
	Greeting     string `mapstructure:"greeting"`
	NewChatTitle string `mapstructure:"new_chat_title"`
}

// Persona and display defaults mirror the hosted client this service backs.
const (
	defaultSystemPrompt = "Ты — Telegram-бот 'Gemini Pro'. Используй эмодзи. Отвечай на языке пользователя. Если используешь поиск, предоставляй точные данные. Форматируй код и списки с помощью Markdown."
	defaultGreeting     = "Привет! Я Gemini Pro. Я умею искать информацию в Google и анализировать изображения. Чем могу помочь?"
	defaultErrorText    = "⚠️ Ошибка связи с API."
	defaultNewChatTitle = "Новый диалог"
	defaultTitleMaxLen  = 25
)

// Load loads the configuration from config.yaml (or the file named by the
// CONFIG_PATH environment variable). A missing file yields the defaults;
// a malformed file is an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("llm.model", "gemini-3-pro-preview")
	v.SetDefault("llm.system_prompt", defaultSystemPrompt)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("storage.path", "sessions.db")
	v.SetDefault("chat.title_max_len", defaultTitleMaxLen)
	v.SetDefault("chat.error_text", defaultErrorText)
	v.SetDefault("chat.greeting", defaultGreeting)
	v.SetDefault("chat.new_chat_title", defaultNewChatTitle)
	v.SetDefault("log_level", "info")

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
