package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soyeahso/wabot/internal/domain"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Owner.Number == "" {
		issues = append(issues, ValidationIssue{
			Path:    "owner.number",
			Message: "owner number is required",
		})
	} else if _, ok := domain.NormalizePhoneNumber(cfg.Owner.Number); !ok {
		issues = append(issues, ValidationIssue{
			Path:    "owner.number",
			Message: fmt.Sprintf("not a valid phone number: %q", cfg.Owner.Number),
		})
	}

	if cfg.LLM.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "llm.apiKey",
			Message: "API key is required (set llm.apiKey or use ${OPENAI_API_KEY})",
		})
	}
	if cfg.LLM.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "llm.maxTokens",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.LLM.MaxTokens),
		})
	}
	if cfg.LLM.Temperature != nil && (*cfg.LLM.Temperature < 0 || *cfg.LLM.Temperature > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "llm.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", *cfg.LLM.Temperature),
		})
	}

	if cfg.Transport.BridgeURL != "" &&
		!strings.HasPrefix(cfg.Transport.BridgeURL, "ws://") &&
		!strings.HasPrefix(cfg.Transport.BridgeURL, "wss://") {
		issues = append(issues, ValidationIssue{
			Path:    "transport.bridgeUrl",
			Message: fmt.Sprintf("must be a ws:// or wss:// URL, got %q", cfg.Transport.BridgeURL),
		})
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	validArchives := []string{"none", "sqlite"}
	if cfg.History.Archive != "" && !slices.Contains(validArchives, cfg.History.Archive) {
		issues = append(issues, ValidationIssue{
			Path:    "history.archive",
			Message: fmt.Sprintf("must be one of %v, got %q", validArchives, cfg.History.Archive),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
