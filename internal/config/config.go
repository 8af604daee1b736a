package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
	Tree      TreeConfig      `yaml:"tree"`
	Server    ServerConfig    `yaml:"server"`
	WS        WSConfig        `yaml:"ws"`
}

type ZooKeeperConfig struct {
	// Servers is the ensemble address list, e.g. ["127.0.0.1:2181"].
	Servers []string `yaml:"servers"`
	// SessionTimeout is negotiated with the ensemble at connect time and
	// governs how long the session survives a broken connection.
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

type TreeConfig struct {
	// Root is the path the initial walk starts from.
	Root string `yaml:"root"`
	// Depth bounds the initial walk; nodes deeper than this are only
	// discovered through later change notifications.
	Depth int `yaml:"depth"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AuthToken      string   `yaml:"auth_token"`
}

type WSConfig struct {
	// SendBuffer is the per-client outbound frame buffer. A client whose
	// buffer fills up is disconnected.
	SendBuffer int `yaml:"send_buffer"`
}

func defaultConfig() *Config {
	return &Config{
		ZooKeeper: ZooKeeperConfig{
			Servers:        []string{"127.0.0.1:2181"},
			SessionTimeout: 30 * time.Second,
		},
		Tree: TreeConfig{
			Root:  "/",
			Depth: 3,
		},
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		WS: WSConfig{
			SendBuffer: 64,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.ZooKeeper.Servers) == 0 {
		return fmt.Errorf("config: zookeeper.servers is empty")
	}
	if c.ZooKeeper.SessionTimeout <= 0 {
		return fmt.Errorf("config: zookeeper.session_timeout must be positive, got %s", c.ZooKeeper.SessionTimeout)
	}
	if c.Tree.Root == "" || c.Tree.Root[0] != '/' {
		return fmt.Errorf("config: tree.root must be an absolute path, got %q", c.Tree.Root)
	}
	if c.Tree.Depth < 0 {
		return fmt.Errorf("config: tree.depth must not be negative, got %d", c.Tree.Depth)
	}
	if c.WS.SendBuffer <= 0 {
		return fmt.Errorf("config: ws.send_buffer must be positive, got %d", c.WS.SendBuffer)
	}
	return nil
}
