package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithOverridesDefaults(t *testing.T) {
	cfg, err := LoadWithOverrides(LoadOptions{Discard: -1})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Network.IP)
	assert.Equal(t, 8088, cfg.Network.Port)
	assert.Equal(t, 3, cfg.Transfer.Window)
	assert.Equal(t, -1, cfg.Transfer.Discard)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.ShowPackets)
	assert.False(t, cfg.Monitor.Enabled)
}

func TestLoadWithOverridesShowPackets(t *testing.T) {
	cfg, err := LoadWithOverrides(LoadOptions{Discard: -1, ShowPackets: true})
	require.NoError(t, err)

	assert.True(t, cfg.Logging.ShowPackets)
}

func TestLoadWithOverrides(t *testing.T) {
	cfg, err := LoadWithOverrides(LoadOptions{
		Mode:    ModeServer,
		IP:      "10.0.0.2",
		Port:    9000,
		Window:  5,
		Discard: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2", cfg.Network.IP)
	assert.Equal(t, 9000, cfg.Network.Port)
	assert.Equal(t, 5, cfg.Transfer.Window)
	assert.Equal(t, 2, cfg.Transfer.Discard)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	okFile := filepath.Join(dir, "hi.txt")
	require.NoError(t, os.WriteFile(okFile, []byte("hello\n"), 0o644))

	longName := filepath.Join(dir, "this-name-is-far-too-long-to-fit-the-header.bin")
	require.NoError(t, os.WriteFile(longName, []byte("x"), 0o644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid server config",
			cfg: Config{
				Mode:     ModeServer,
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 8088},
				Transfer: TransferConfig{Window: 3, Discard: -1},
				Logging:  LoggingConfig{Level: "info"},
			},
		},
		{
			name: "bad IP literal",
			cfg: Config{
				Network:  NetworkConfig{IP: "not-an-ip", Port: 8088},
				Transfer: TransferConfig{Window: 3},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: "invalid IPv4 address",
		},
		{
			name: "port too low",
			cfg: Config{
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 80},
				Transfer: TransferConfig{Window: 3},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: "port out of range",
		},
		{
			name: "non-positive window",
			cfg: Config{
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 8088},
				Transfer: TransferConfig{Window: 0},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: "window must be positive",
		},
		{
			name: "client mode requires an existing file",
			cfg: Config{
				Mode:     ModeClient,
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 8088},
				Transfer: TransferConfig{Window: 3, File: filepath.Join(dir, "missing.txt")},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: "file does not exist",
		},
		{
			name: "client mode file name must fit the header field",
			cfg: Config{
				Mode:     ModeClient,
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 8088},
				Transfer: TransferConfig{Window: 3, File: longName},
				Logging:  LoggingConfig{Level: "info"},
			},
			wantErr: "exceeds",
		},
		{
			name: "client mode happy path",
			cfg: Config{
				Mode:     ModeClient,
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 8088},
				Transfer: TransferConfig{Window: 3, File: okFile},
				Logging:  LoggingConfig{Level: "info"},
			},
		},
		{
			name: "invalid log level",
			cfg: Config{
				Network:  NetworkConfig{IP: "127.0.0.1", Port: 8088},
				Transfer: TransferConfig{Window: 3},
				Logging:  LoggingConfig{Level: "verbose"},
			},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "server", ModeServer.String())
	assert.Equal(t, "client", ModeClient.String())
}
