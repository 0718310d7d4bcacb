package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Bot: BotConfig{
			Name: "Wabot",
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			MaxTokens:   500,
			TimeoutSecs: 60,
		},
		Transport: TransportConfig{
			BridgeURL: "ws://127.0.0.1:3765/ws",
		},
		Gateway: GatewayConfig{
			Port: 3001,
			Bind: "loopback",
		},
		History: HistoryConfig{
			Archive: "none",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
