package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skybridgecompass/handshake/pkg/logging"
	"github.com/skybridgecompass/handshake/pkg/suite"
)

// Config is the complete configuration for a handshake-capable node: which
// suites it offers and under what policy, how it reaches its peers, where
// its trust pins live, and how it logs.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Crypto    CryptoConfig    `yaml:"crypto"`
	Transport TransportConfig `yaml:"transport"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig identifies this node to its peers and bounds how long it will
// wait for a handshake to complete.
type NodeConfig struct {
	PeerID           string        `yaml:"peer_id"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// CryptoConfig selects which suites this node offers and the policy a
// responder enforces when choosing among them.
type CryptoConfig struct {
	Strategy                 string `yaml:"strategy"`        // classicOnly, pqcOnly, hybridPreferred
	MinimumSecurityTier      string `yaml:"minimum_tier"`    // classical, pqcPreferred, hybridPreferred
	AllowExperimentalHybrid  bool   `yaml:"allow_experimental_hybrid"`
	AdvertiseHybrid          bool   `yaml:"advertise_hybrid"`
	RequireHybridIfAvailable bool   `yaml:"require_hybrid_if_available"`
	StrictPQC                bool   `yaml:"strict_pqc"`
}

// ToStrategy resolves the configured strategy string into suite.Strategy.
func (c CryptoConfig) ToStrategy() (suite.Strategy, error) {
	switch c.Strategy {
	case string(suite.ClassicOnly):
		return suite.ClassicOnly, nil
	case string(suite.PQCOnly):
		return suite.PQCOnly, nil
	case string(suite.HybridPreferred):
		return suite.HybridPreferred, nil
	default:
		return "", fmt.Errorf("config: unknown crypto strategy %q", c.Strategy)
	}
}

// Policy resolves the configured tier string into a suite.CryptoPolicy and
// suite.HandshakePolicy pair.
func (c CryptoConfig) Policy() (suite.CryptoPolicy, suite.HandshakePolicy, error) {
	var tier suite.SecurityTier
	switch c.MinimumSecurityTier {
	case "classical", "":
		tier = suite.TierClassical
	case "pqcPreferred":
		tier = suite.TierPQCPreferred
	case "hybridPreferred":
		tier = suite.TierHybridPreferred
	default:
		return suite.CryptoPolicy{}, suite.HandshakePolicy{}, fmt.Errorf("config: unknown minimum tier %q", c.MinimumSecurityTier)
	}

	cp := suite.CryptoPolicy{
		MinimumSecurityTier:      tier,
		AllowExperimentalHybrid:  c.AllowExperimentalHybrid,
		AdvertiseHybrid:          c.AdvertiseHybrid,
		RequireHybridIfAvailable: c.RequireHybridIfAvailable,
	}
	hp := suite.HandshakePolicy{StrictPQC: c.StrictPQC}
	return cp, hp, nil
}

// TransportConfig selects the wire carrier and its dial/listen parameters.
type TransportConfig struct {
	Kind             string        `yaml:"kind"` // memory, ws, quic
	ListenAddr       string        `yaml:"listen_addr"`
	DialURL          string        `yaml:"dial_url"`
	TLSCert          string        `yaml:"tls_cert"`
	TLSKey           string        `yaml:"tls_key"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	MaxMessageSize   int64         `yaml:"max_message_size"`
}

// DatabaseConfig holds the durable trust store's PostgreSQL connection
// settings, passed straight through to pgstore.Config.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the trust store cache's Redis connection settings,
// passed straight through to redisstore.Config.
type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	OutputFile string `yaml:"output_file"` // empty = stdout
	MaxSizeMB  int64  `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// LogLevel resolves the configured Level string into a logging.LogLevel.
func (c LoggingConfig) LogLevel() (logging.LogLevel, error) {
	switch c.Level {
	case "debug":
		return logging.DEBUG, nil
	case "info", "":
		return logging.INFO, nil
	case "warn":
		return logging.WARN, nil
	case "error":
		return logging.ERROR, nil
	default:
		return 0, fmt.Errorf("config: unknown logging level %q", c.Level)
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Node.HandshakeTimeout == 0 {
		c.Node.HandshakeTimeout = 10 * time.Second
	}

	if c.Crypto.Strategy == "" {
		c.Crypto.Strategy = string(suite.ClassicOnly)
	}
	if c.Crypto.MinimumSecurityTier == "" {
		c.Crypto.MinimumSecurityTier = "classical"
	}

	if c.Transport.Kind == "" {
		c.Transport.Kind = "memory"
	}
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = 10 * time.Second
	}
	if c.Transport.ReadTimeout == 0 {
		c.Transport.ReadTimeout = 30 * time.Second
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = 10 * time.Second
	}
	if c.Transport.PingInterval == 0 {
		c.Transport.PingInterval = 20 * time.Second
	}
	if c.Transport.MaxMessageSize == 0 {
		c.Transport.MaxMessageSize = 64 * 1024
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 5 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
}

func (c *Config) validate() error {
	if c.Node.PeerID == "" {
		return fmt.Errorf("node peer_id is required")
	}

	if _, err := c.Crypto.ToStrategy(); err != nil {
		return err
	}
	if _, _, err := c.Crypto.Policy(); err != nil {
		return err
	}

	switch c.Transport.Kind {
	case "memory", "ws", "quic":
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}
	if c.Transport.Kind != "memory" && c.Transport.ListenAddr == "" && c.Transport.DialURL == "" {
		return fmt.Errorf("transport %q requires either listen_addr or dial_url", c.Transport.Kind)
	}

	if _, err := c.Logging.LogLevel(); err != nil {
		return err
	}

	return nil
}

// GenerateDefaultConfig creates a default config for the named peer.
func GenerateDefaultConfig(peerID string) *Config {
	cfg := &Config{
		Node: NodeConfig{PeerID: peerID},
		Crypto: CryptoConfig{
			Strategy:            string(suite.ClassicOnly),
			MinimumSecurityTier: "classical",
		},
		Transport: TransportConfig{Kind: "memory"},
		Database: DatabaseConfig{
			Host:   "localhost",
			DBName: "handshake",
			User:   "handshake",
		},
		Redis: RedisConfig{Host: "localhost"},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
	cfg.setDefaults()
	return cfg
}

// WriteConfigFile writes a config struct to a YAML file.
func WriteConfigFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
