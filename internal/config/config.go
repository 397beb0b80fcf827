// Package config holds the immutable parameters a DRTP endpoint is
// constructed with: mode, network address, transfer tuning and logging.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects which side of the connection an endpoint runs as.
type Mode int

const (
	// ModeServer runs the endpoint as the receiver.
	ModeServer Mode = iota
	// ModeClient runs the endpoint as the sender.
	ModeClient
)

func (m Mode) String() string {
	switch m {
	case ModeServer:
		return "server"
	case ModeClient:
		return "client"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", m)
	}
}

// NetworkConfig holds the peer address both endpoints bind/connect to.
type NetworkConfig struct {
	IP   string `json:"ip" env:"DRTP_IP" default:"127.0.0.1"`
	Port int    `json:"port" env:"DRTP_PORT" default:"8088"`
}

// TransferConfig holds the parameters that drive the Go-Back-N transfer.
type TransferConfig struct {
	File         string        `json:"file" env:"DRTP_FILE" default:""`
	Window       int           `json:"window" env:"DRTP_WINDOW" default:"3"`
	Discard      int           `json:"discard" env:"DRTP_DISCARD" default:"-1"`
	RTO          time.Duration `json:"rto" env:"DRTP_RTO" default:"500ms"`
	ReceiverIdle time.Duration `json:"receiverIdle" env:"DRTP_RECEIVER_IDLE" default:"5s"`
}

// LoggingConfig holds console-logging configuration.
type LoggingConfig struct {
	Level       string `json:"level" env:"DRTP_LOG_LEVEL" default:"info"`
	ShowPackets bool   `json:"showPackets" env:"DRTP_SHOW_PACKETS" default:"false"`
}

// MonitorConfig holds the optional live-progress WebSocket broadcaster
// settings. It is off by default.
type MonitorConfig struct {
	Enabled bool   `json:"enabled" env:"DRTP_MONITOR" default:"false"`
	Addr    string `json:"addr" env:"DRTP_MONITOR_ADDR" default:":7077"`
}

// Config holds the full, immutable configuration for one DRTP endpoint.
// It is built once at startup; cmd/drtp reads from it the plain values it
// passes to the endpoint, handshake and sender/receiver constructors.
// Nothing in this package stores it globally.
type Config struct {
	Mode     Mode
	Network  NetworkConfig
	Transfer TransferConfig
	Logging  LoggingConfig
	Monitor  MonitorConfig
}

// LoadOptions holds command-line override values, typically populated by
// cmd/drtp's flag parsing.
type LoadOptions struct {
	Mode        Mode
	IP          string
	Port        int
	File        string
	Window      int
	Discard     int
	LogLevel    string
	ShowPackets bool
	MonitorAddr string
	Monitor     bool
}

// MaxFilenameLength is the width of the reserved filename field in the
// first data payload; a filename must fit here with its UTF-8 encoding.
const MaxFilenameLength = 32

// LoadWithOverrides loads configuration, applying command-line overrides
// over environment variables over built-in defaults.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	cfg := &Config{Mode: opts.Mode}

	cfg.Network.IP = getOverrideOrEnv(opts.IP, "DRTP_IP", "127.0.0.1")
	cfg.Network.Port = getIntOverrideOrEnv(opts.Port, "DRTP_PORT", 8088)

	cfg.Transfer.File = getOverrideOrEnv(opts.File, "DRTP_FILE", "")
	cfg.Transfer.Window = getIntOverrideOrEnv(opts.Window, "DRTP_WINDOW", 3)
	cfg.Transfer.Discard = getDiscardOverrideOrEnv(opts.Discard, "DRTP_DISCARD", -1)
	cfg.Transfer.RTO = getDurationWithDefault("DRTP_RTO", 500*time.Millisecond)
	cfg.Transfer.ReceiverIdle = getDurationWithDefault("DRTP_RECEIVER_IDLE", 5*time.Second)

	cfg.Logging.Level = getOverrideOrEnv(opts.LogLevel, "DRTP_LOG_LEVEL", "info")
	cfg.Logging.ShowPackets = getBoolWithDefault("DRTP_SHOW_PACKETS", false) || opts.ShowPackets

	cfg.Monitor.Enabled = getBoolWithDefault("DRTP_MONITOR", false) || opts.Monitor
	cfg.Monitor.Addr = getOverrideOrEnv(opts.MonitorAddr, "DRTP_MONITOR_ADDR", ":7077")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against the constraints the CLI
// surface is documented to enforce: a dotted-decimal IPv4 literal, a port
// in [1024,65535], a positive window, a file that exists and whose name
// fits the reserved header field when running as client.
func (c *Config) Validate() error {
	ip := net.ParseIP(c.Network.IP)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid IPv4 address: %q", c.Network.IP)
	}

	if c.Network.Port < 1024 || c.Network.Port > 65535 {
		return fmt.Errorf("port out of range [1024,65535]: %d", c.Network.Port)
	}

	if c.Transfer.Window <= 0 {
		return fmt.Errorf("window must be positive: %d", c.Transfer.Window)
	}

	if c.Mode == ModeClient {
		if c.Transfer.File == "" {
			return fmt.Errorf("file is required in client mode")
		}

		info, err := os.Stat(c.Transfer.File)
		if err != nil {
			return fmt.Errorf("file does not exist: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("file is a directory: %s", c.Transfer.File)
		}

		name := filenameOf(c.Transfer.File)
		if len(name) > MaxFilenameLength {
			return fmt.Errorf("file name %q exceeds %d bytes", name, MaxFilenameLength)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

func filenameOf(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// Helper functions for environment variable parsing.

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func getIntOverrideOrEnv(override int, envKey string, defaultValue int) int {
	if override != 0 {
		return override
	}
	if value := os.Getenv(envKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDiscardOverrideOrEnv treats -1 as "unset": a discard sequence number
// is always >= 1, so -1 cannot collide with a real value the way 0 could.
func getDiscardOverrideOrEnv(override int, envKey string, defaultValue int) int {
	if override != -1 {
		return override
	}
	if value := os.Getenv(envKey); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
