package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	// An empty document leaves every default in place.
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.ZooKeeper.SessionTimeout; got != 30*time.Second {
		t.Errorf("session_timeout = %s, want 30s", got)
	}
	if len(cfg.ZooKeeper.Servers) != 1 || cfg.ZooKeeper.Servers[0] != "127.0.0.1:2181" {
		t.Errorf("servers = %v, want [127.0.0.1:2181]", cfg.ZooKeeper.Servers)
	}
	if cfg.Tree.Root != "/" || cfg.Tree.Depth != 3 {
		t.Errorf("tree = %q depth %d, want / depth 3", cfg.Tree.Root, cfg.Tree.Depth)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "0.0.0.0" {
		t.Errorf("server = %s:%d, want 0.0.0.0:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.WS.SendBuffer != 64 {
		t.Errorf("send_buffer = %d, want 64", cfg.WS.SendBuffer)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
zookeeper:
  servers: ["zk1:2181", "zk2:2181"]
  session_timeout: 10s
tree:
  root: /services
  depth: 5
server:
  port: 9090
  allowed_origins: ["https://ops.example.com"]
ws:
  send_buffer: 128
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.ZooKeeper.Servers) != 2 || cfg.ZooKeeper.Servers[1] != "zk2:2181" {
		t.Errorf("servers = %v", cfg.ZooKeeper.Servers)
	}
	if cfg.ZooKeeper.SessionTimeout != 10*time.Second {
		t.Errorf("session_timeout = %s, want 10s", cfg.ZooKeeper.SessionTimeout)
	}
	if cfg.Tree.Root != "/services" || cfg.Tree.Depth != 5 {
		t.Errorf("tree = %q depth %d", cfg.Tree.Root, cfg.Tree.Depth)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	// Host keeps its default when only port is overridden.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default", cfg.Server.Host)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("allowed_origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.WS.SendBuffer != 128 {
		t.Errorf("send_buffer = %d, want 128", cfg.WS.SendBuffer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load succeeded for a missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"BadSyntax", "zookeeper: ["},
		{"EmptyServers", "zookeeper:\n  servers: []\n"},
		{"NegativeTimeout", "zookeeper:\n  session_timeout: -5s\n"},
		{"RelativeRoot", "tree:\n  root: services\n"},
		{"NegativeDepth", "tree:\n  depth: -1\n"},
		{"ZeroSendBuffer", "ws:\n  send_buffer: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Errorf("Load accepted invalid config:\n%s", tt.yaml)
			}
		})
	}
}
