package config

// Config is the root configuration for wabot.
type Config struct {
	Owner     OwnerConfig     `yaml:"owner,omitempty"`
	Bot       BotConfig       `yaml:"bot,omitempty"`
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Transport TransportConfig `yaml:"transport,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// OwnerConfig identifies the account owner. The number is stored as
// digits only; senders matching it are treated as the owner.
type OwnerConfig struct {
	Name   string `yaml:"name,omitempty"`
	Number string `yaml:"number"`
}

// BotConfig controls the bot's presented identity.
type BotConfig struct {
	Name string `yaml:"name,omitempty"`
}

// LLMConfig configures the language-model backend.
type LLMConfig struct {
	APIKey      string   `yaml:"apiKey,omitempty"` // supports ${ENV_VAR} expansion
	Model       string   `yaml:"model,omitempty"`
	BaseURL     string   `yaml:"baseUrl,omitempty"`
	MaxTokens   int      `yaml:"maxTokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	TimeoutSecs int      `yaml:"timeoutSecs,omitempty"`
}

// TransportConfig configures the connection to the messaging sidecar
// bridge. The bridge owns the wire protocol and credential storage.
type TransportConfig struct {
	BridgeURL string `yaml:"bridgeUrl,omitempty"` // ws:// or wss:// endpoint
	AuthToken string `yaml:"authToken,omitempty"` // supports ${ENV_VAR} expansion
}

// GatewayConfig controls the control-surface HTTP server.
type GatewayConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AuthToken      string   `yaml:"authToken,omitempty"` // optional bearer token for /api/*
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// HistoryConfig controls conversation history retention.
type HistoryConfig struct {
	// Archive selects durable transcript storage: "sqlite" | "none".
	Archive string `yaml:"archive,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
