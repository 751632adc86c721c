package config

import (
	"strings"
	"testing"
	"time"
)

// env returns a lookup over vars.
func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "sqlite")
	}
	if cfg.Resolver.Backend != "local" {
		t.Errorf("Resolver.Backend = %q, want %q", cfg.Resolver.Backend, "local")
	}
	if cfg.Convert.MaxConcurrent != 4 {
		t.Errorf("Convert.MaxConcurrent = %d, want %d", cfg.Convert.MaxConcurrent, 4)
	}
	if cfg.Upload.MaxBinarySize != 256<<20 {
		t.Errorf("Upload.MaxBinarySize = %d, want %d", cfg.Upload.MaxBinarySize, 256<<20)
	}
	if cfg.Cleanup.MaxOutputBytes != 16<<20 {
		t.Errorf("Cleanup.MaxOutputBytes = %d, want %d", cfg.Cleanup.MaxOutputBytes, 16<<20)
	}
	if cfg.Registry.ActiveFollowsReorder {
		t.Error("Registry.ActiveFollowsReorder = true, want false")
	}
	if !cfg.Store.CompressBlobs {
		t.Error("Store.CompressBlobs = false, want true")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"SERVER_PORT":                     "9090",
		"STORE_DRIVER":                    "memory",
		"CONVERT_MAX_CONCURRENT":          "8",
		"CONVERT_TIMEOUT":                 "1m30s",
		"REGISTRY_ACTIVE_FOLLOWS_REORDER": "true",
		"LOG_LEVEL":                       "debug",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "memory")
	}
	if cfg.Convert.MaxConcurrent != 8 {
		t.Errorf("Convert.MaxConcurrent = %d, want %d", cfg.Convert.MaxConcurrent, 8)
	}
	if cfg.Convert.Timeout != 90*time.Second {
		t.Errorf("Convert.Timeout = %v, want %v", cfg.Convert.Timeout, 90*time.Second)
	}
	if !cfg.Registry.ActiveFollowsReorder {
		t.Error("Registry.ActiveFollowsReorder = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_OSEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 7070)
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"STORE_DRIVER": "postgres",
		"DB_URL":       "postgres://localhost/alttest",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Database.URL != "postgres://localhost/alttest" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://localhost/alttest")
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"TRUSTED_PROXIES": "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "integer", vars: map[string]string{"SERVER_PORT": "eighty"}},
		{name: "duration", vars: map[string]string{"CONVERT_TIMEOUT": "soon"}},
		{name: "boolean", vars: map[string]string{"RATE_LIMIT_ENABLED": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrom(env(tt.vars)); err == nil {
				t.Error("LoadFrom() expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "postgres without url",
			vars:    map[string]string{"STORE_DRIVER": "postgres"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "unknown store driver",
			vars:    map[string]string{"STORE_DRIVER": "mysql"},
			wantErr: "STORE_DRIVER",
		},
		{
			name:    "remote resolver without url",
			vars:    map[string]string{"RESOLVER_BACKEND": "remote"},
			wantErr: "RESOLVER_REMOTE_URL",
		},
		{
			name:    "remote resolver with relative url",
			vars:    map[string]string{"RESOLVER_BACKEND": "remote", "RESOLVER_REMOTE_URL": "/convert"},
			wantErr: "RESOLVER_REMOTE_URL",
		},
		{
			name:    "invalid port",
			vars:    map[string]string{"SERVER_PORT": "99999"},
			wantErr: "SERVER_PORT",
		},
		{
			name:    "api key required without keys",
			vars:    map[string]string{"REQUIRE_API_KEY": "true"},
			wantErr: "API_KEYS is empty",
		},
		{
			name:    "invalid log level",
			vars:    map[string]string{"LOG_LEVEL": "verbose"},
			wantErr: "LOG_LEVEL",
		},
		{
			name: "remote resolver configured",
			vars: map[string]string{"RESOLVER_BACKEND": "remote", "RESOLVER_REMOTE_URL": "http://symbolizer:5000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(env(tt.vars))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("LoadFrom() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("LoadFrom() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{
		"SERVER_PORT":  "0",
		"STORE_DRIVER": "mysql",
		"LOG_FORMAT":   "xml",
	}))
	if err == nil {
		t.Fatal("LoadFrom() expected error")
	}
	for _, want := range []string{"SERVER_PORT", "STORE_DRIVER", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestConfig_StringMasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"STORE_DRIVER":    "postgres",
		"DATABASE_URL":    "postgres://user:secret@db/app",
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "k1,k2",

		"RESOLVER_BACKEND":        "remote",
		"RESOLVER_REMOTE_URL":     "http://symbolizer:8000/convert",
		"RESOLVER_REMOTE_API_KEY": "remote-token",
	}))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	s := cfg.String()
	for _, secret := range []string{"secret", "k1", "k2", "remote-token"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaks %q: %s", secret, s)
		}
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked database URL", s)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{host: "0.0.0.0", port: 8080, want: "0.0.0.0:8080"},
		{host: "", port: 9000, want: ":9000"},
		{host: "::1", port: 80, want: "[::1]:80"},
	}

	for _, tt := range tests {
		c := ServerConfig{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}
