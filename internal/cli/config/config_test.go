package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
  "servers": [
    {"ip": "192.168.1.100", "alias": "production"},
    {"ip": "192.168.1.101", "alias": "staging"}
  ]
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(cfg.Servers))
	}
	if cfg.Servers[0].Alias != "production" {
		t.Errorf("alias = %q, want %q", cfg.Servers[0].Alias, "production")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), ConfigFileName)); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoad_RejectsServerWithoutAlias(t *testing.T) {
	path := writeConfig(t, `{"servers": [{"ip": "192.168.1.100"}]}`)
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for server without alias")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := &Config{Servers: []Server{{IP: "10.0.0.1", Alias: "production"}}}
	path := filepath.Join(t.TempDir(), ConfigFileName)

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded.Servers) != 1 || loaded.Servers[0] != cfg.Servers[0] {
		t.Errorf("round trip mismatch: %+v", loaded.Servers)
	}
}

func TestGetServerByAlias(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{IP: "10.0.0.1", Alias: "production"},
		{IP: "10.0.0.2", Alias: "staging"},
	}}

	server, err := cfg.GetServerByAlias("staging")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if server.IP != "10.0.0.2" {
		t.Errorf("ip = %q, want %q", server.IP, "10.0.0.2")
	}

	if _, err := cfg.GetServerByAlias("missing"); err == nil {
		t.Error("expected error for unknown alias")
	}
}

func TestGetDefaultServer(t *testing.T) {
	empty := DefaultConfig()
	if _, err := empty.GetDefaultServer(); err == nil {
		t.Error("expected error for empty server list")
	}

	cfg := &Config{Servers: []Server{{IP: "10.0.0.1", Alias: "production"}}}
	server, err := cfg.GetDefaultServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Alias != "production" {
		t.Errorf("alias = %q, want first server", server.Alias)
	}
}
