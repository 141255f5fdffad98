// Package config handles configuration loading, validation, and
// persistence for the StatRelay protocol backend.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/protocol"
)

const (
	DefaultConfigDir  = "config"
	DefaultConfigFile = "config.json"
	DefaultListenPort = 8085
)

// Config is the root configuration structure for StatRelay.
type Config struct {
	mu   sync.RWMutex
	path string

	Server          ServerConfig     `json:"server"`
	Games           []GameDeployment `json:"games"`
	Sessions        SessionConfig    `json:"sessions"`
	Stats           StatsConfig      `json:"stats"`
	ApplicationData ApplicationData  `json:"application_data"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenPort int `json:"listen_port"`

	// DebugFaults serves detailed fault messages to clients. Production
	// deployments leave it off and serve the fixed generic strings.
	DebugFaults bool `json:"debug_faults"`
}

// GameDeployment describes one configured game: the packed key carrying
// the per-game constants plus the behavior flags that are not part of
// the key.
type GameDeployment struct {
	// Name is the route segment the game is served under.
	Name string `json:"name"`

	// Key is the packed deployment string: 20-char salt, four 8-hex-digit
	// constants, trailing game id.
	Key string `json:"game_key"`

	RequestVersion  protocol.RequestVersion  `json:"request_version"`
	ResponseVersion protocol.ResponseVersion `json:"response_version"`
	Encrypted       bool                     `json:"encrypted_request"`
	RequireSession  bool                     `json:"require_session"`
	LenientV1       bool                     `json:"lenient_v1"`

	// Handler names the registered game handler ("echo", "discard",
	// "recorder").
	Handler string `json:"handler"`
}

// GameConfig unpacks the key and applies the deployment flags.
func (g *GameDeployment) GameConfig() (*protocol.GameConfig, error) {
	cfg, err := protocol.ParseGameKey(g.Key)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", g.Name, err)
	}
	cfg.RequestVersion = g.RequestVersion
	cfg.ResponseVersion = g.ResponseVersion
	cfg.Encrypted = g.Encrypted
	cfg.RequireSession = g.RequireSession
	cfg.LenientV1 = g.LenientV1
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("game %s: %w", g.Name, err)
	}
	return cfg, nil
}

// SessionConfig holds the eviction policy knobs.
type SessionConfig struct {
	TTLMinutes           int `json:"ttl_minutes"`
	SweepIntervalMinutes int `json:"sweep_interval_minutes"`
}

// TTL returns the session time-to-live.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// SweepInterval returns the janitor interval.
func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalMinutes) * time.Minute
}

// StatsConfig holds the SQLite record store settings used by the
// recorder handler.
type StatsConfig struct {
	DatabasePath string `json:"database_path"`
}

// ApplicationData groups the ambient application settings.
type ApplicationData struct {
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
	MQTT     MQTTConfig     `json:"mqtt"`
}

// SecurityConfig holds transport-hardening settings.
type SecurityConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps"`
	IPWhitelist    []string `json:"ip_whitelist"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled"`
	BrokerURL string `json:"broker_url"`
	Port      int    `json:"port"`
	UseTLS    bool   `json:"use_tls"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	ClientID  string `json:"client_id"`
}

// DefaultConfig returns a configuration with sensible defaults and no
// games; deployments are provisioned by editing config.json.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenPort: DefaultListenPort,
		},
		Sessions: SessionConfig{
			TTLMinutes:           60,
			SweepIntervalMinutes: 5,
		},
		Stats: StatsConfig{
			DatabasePath: "data/stats.db",
		},
		ApplicationData: ApplicationData{
			Security: SecurityConfig{
				RateLimitRPS: 100,
			},
			Logging: LoggingConfig{
				Level:      "info",
				Directory:  "logs",
				MaxSizeMB:  10,
				MaxBackups: 5,
			},
			MQTT: MQTTConfig{
				Enabled: false,
				Port:    8883,
				UseTLS:  true,
			},
		},
	}
}

// Load reads configuration from a JSON file, creating the default file
// when none exists.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Int("games", len(cfg.Games)).Msg("configuration loaded")
	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// GetGames returns a copy of the configured deployments.
func (c *Config) GetGames() []GameDeployment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	games := make([]GameDeployment, len(c.Games))
	copy(games, c.Games)
	return games
}

// GetServer returns a copy of the server settings.
func (c *Config) GetServer() ServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Server
}

// GetApplicationData returns a copy of the application settings.
func (c *Config) GetApplicationData() ApplicationData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ApplicationData
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}
