package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServer(&cfg.Server, result)
	validateGames(cfg.Games, result)
	validateSessions(&cfg.Sessions, result)
	validateApplicationData(&cfg.ApplicationData, result)

	return result
}

func validateServer(s *ServerConfig, result *ValidationResult) {
	if s.ListenPort < 1 || s.ListenPort > 65535 {
		result.AddError("server.listen_port", fmt.Sprintf("invalid port: %d", s.ListenPort))
	}
	if s.DebugFaults {
		result.AddWarning("server.debug_faults", "detailed fault messages are enabled; disable in production")
	}
}

func validateGames(games []GameDeployment, result *ValidationResult) {
	if len(games) == 0 {
		result.AddWarning("games", "no games configured; every stats request will be rejected with 404")
	}

	seenNames := make(map[string]bool)
	seenIDs := make(map[string]string)
	for i, g := range games {
		field := fmt.Sprintf("games[%d]", i)

		if strings.TrimSpace(g.Name) == "" {
			result.AddError(field+".name", "deployment name is required")
		} else if seenNames[g.Name] {
			result.AddError(field+".name", fmt.Sprintf("duplicate deployment name: %s", g.Name))
		}
		seenNames[g.Name] = true

		cfg, err := g.GameConfig()
		if err != nil {
			result.AddError(field+".game_key", err.Error())
			continue
		}

		if prev, dup := seenIDs[cfg.GameID]; dup {
			result.AddWarning(field+".game_key",
				fmt.Sprintf("game id %s already used by deployment %s; sessions will be shared", cfg.GameID, prev))
		}
		seenIDs[cfg.GameID] = g.Name

		if g.Handler == "" {
			result.AddError(field+".handler", "handler name is required")
		}
	}
}

func validateSessions(s *SessionConfig, result *ValidationResult) {
	if s.TTLMinutes < 1 {
		result.AddError("sessions.ttl_minutes", "session TTL must be at least 1 minute")
	}
	if s.SweepIntervalMinutes < 1 {
		result.AddError("sessions.sweep_interval_minutes", "sweep interval must be at least 1 minute")
	}
	if s.TTLMinutes > 0 && s.SweepIntervalMinutes > s.TTLMinutes {
		result.AddWarning("sessions.sweep_interval_minutes",
			"sweep interval exceeds the session TTL; sessions will linger past expiry")
	}
}

func validateApplicationData(data *ApplicationData, result *ValidationResult) {
	switch data.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		result.AddWarning("application_data.logging.level",
			fmt.Sprintf("unknown log level %q, falling back to info", data.Logging.Level))
	}

	if data.MQTT.Enabled && strings.TrimSpace(data.MQTT.BrokerURL) == "" {
		result.AddError("application_data.mqtt.broker_url", "broker URL is required when MQTT is enabled")
	}

	if data.Security.RateLimitRPS < 0 {
		result.AddError("application_data.security.rate_limit_rps", "rate limit must not be negative")
	}
}
