// Package config loads bedrockd's flat key/value configuration from a
// TOML file into a typed Config, applying defaults for every optional
// key.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the typed form of the server's flat configuration map, plus
// the ambient keys (MOTD, MAX_PLAYERS, METRICS_ADDR, LOG_LEVEL) a runnable
// server needs beyond the wire-protocol settings.
type Config struct {
	ServerPort             int    `toml:"SERVER_PORT"`
	ServerGUID             uint64 `toml:"SERVER_GUID"`
	WorldName              string `toml:"WORLD_NAME"`
	GameMode               string `toml:"GAME_MODE"`
	BatchCompressThreshold int    `toml:"BATCH_COMPRESS_THRESHOLD"`
	MaxLogLength           int    `toml:"MAX_LOG_LENGTH"`
	RetransmitIntervalMS   int    `toml:"RETRANSMIT_INTERVAL_MS"`
	SessionInactivityS     int    `toml:"SESSION_INACTIVITY_S"`

	MOTD        string `toml:"MOTD"`
	MaxPlayers  int    `toml:"MAX_PLAYERS"`
	MetricsAddr string `toml:"METRICS_ADDR"`
	LogLevel    string `toml:"LOG_LEVEL"`
}

// Defaults returns the server's built-in configuration, used as-is when
// no config file path is given and as the base every loaded file is
// decoded over.
func Defaults() Config {
	return Config{
		ServerPort:             19132,
		ServerGUID:             0x853d8b01fe289e1b,
		WorldName:              "testWorld",
		GameMode:               "survival",
		BatchCompressThreshold: 512,
		MaxLogLength:           256,
		RetransmitIntervalMS:   200,
		SessionInactivityS:     30,

		MOTD:        "bedrockd",
		MaxPlayers:  20,
		MetricsAddr: "",
		LogLevel:    "INFO",
	}
}

// Load reads path as TOML over Defaults(), so any key the file omits keeps
// its default.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %q: %w", path, err)
	}
	return cfg, nil
}

// RetransmitInterval is RetransmitIntervalMS as a time.Duration.
func (c Config) RetransmitInterval() time.Duration {
	return time.Duration(c.RetransmitIntervalMS) * time.Millisecond
}

// InactivityTimeout is SessionInactivityS as a time.Duration.
func (c Config) InactivityTimeout() time.Duration {
	return time.Duration(c.SessionInactivityS) * time.Second
}

// ListenAddr is the UDP address bedrockd binds.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.ServerPort)
}
