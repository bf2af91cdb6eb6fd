// Package config loads the plugin's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/simpleteleport/internal/core/observability/log"
)

// EnvConfigPath names the config file when no flag is given.
const EnvConfigPath = "SIMPLETELEPORT_CONFIG"

type TransportMode string

const (
	TransportStdio     TransportMode = "stdio"
	TransportWebSocket TransportMode = "websocket"
)

type Config struct {
	Log       log.Config `yaml:"log"`
	Commands  Commands   `yaml:"commands"`
	Transport Transport  `yaml:"transport"`
	RPC       RPC        `yaml:"rpc"`
}

// Commands holds the chat command names the plugin registers with the host.
type Commands struct {
	Help     string `yaml:"help"`
	Position string `yaml:"position"`
}

type Transport struct {
	Mode   TransportMode `yaml:"mode"`
	Listen string        `yaml:"listen"`
	Path   string        `yaml:"path"`
}

type RPC struct {
	CallTimeout time.Duration `yaml:"call_timeout"`
}

func Default() Config {
	return Config{
		Log: log.Config{
			Level:    "info",
			Encoding: "json",
			Output:   "stderr",
		},
		Commands: Commands{
			Help:     "helpsimpleteleport",
			Position: "getposition",
		},
		Transport: Transport{
			Mode:   TransportStdio,
			Listen: "127.0.0.1:8765",
			Path:   "/rpc",
		},
		RPC: RPC{
			CallTimeout: 5 * time.Second,
		},
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", err.Error())
	}
	switch c.Log.Encoding {
	case "", "json", "console":
	default:
		return invalid("log.encoding", fmt.Sprintf("%q is not json or console", c.Log.Encoding))
	}

	if err := validCommandName(c.Commands.Help); err != nil {
		return invalid("commands.help", err.Error())
	}
	if err := validCommandName(c.Commands.Position); err != nil {
		return invalid("commands.position", err.Error())
	}
	if strings.EqualFold(c.Commands.Help, c.Commands.Position) {
		return invalid("commands", "help and position commands must differ")
	}

	switch c.Transport.Mode {
	case TransportStdio:
		if c.Log.Output == "stdout" {
			return invalid("log.output", "stdout carries the rpc stream in stdio mode")
		}
	case TransportWebSocket:
		if c.Transport.Listen == "" {
			return invalid("transport.listen", "required in websocket mode")
		}
		if !strings.HasPrefix(c.Transport.Path, "/") {
			return invalid("transport.path", "must start with /")
		}
	default:
		return invalid("transport.mode", fmt.Sprintf("%q is not stdio or websocket", c.Transport.Mode))
	}

	if c.RPC.CallTimeout <= 0 {
		return invalid("rpc.call_timeout", "must be positive")
	}
	return nil
}

func validCommandName(name string) error {
	if name == "" {
		return errors.New("empty")
	}
	if strings.ContainsFunc(name, func(r rune) bool {
		return r <= ' ' || r == ':' || r == '/' || r == 0x7f
	}) {
		return fmt.Errorf("%q contains whitespace, ':' or '/'", name)
	}
	return nil
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}
