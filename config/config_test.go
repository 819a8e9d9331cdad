package config

import (
	"testing"
	"time"
)

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		spec     string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"alice@gateway.example", "alice", "gateway.example", 22, false},
		{"alice@gateway.example:2222", "alice", "gateway.example", 2222, false},
		{"bob@10.0.0.1", "bob", "10.0.0.1", 22, false},
		{"gateway.example", "", "", 0, true},  // missing user
		{"alice@", "", "", 0, true},           // missing host
		{"alice@host:notnum", "", "", 0, true}, // bad port
		{"alice@host:70000", "", "", 0, true},  // port out of range
	}

	for _, tt := range tests {
		cfg := &Config{TunnelSpec: tt.spec}
		err := cfg.ParseTunnelSpec()
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTunnelSpec(%q) err = %v, wantErr = %v", tt.spec, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if cfg.TunnelUser != tt.wantUser || cfg.TunnelHost != tt.wantHost ||
			cfg.TunnelPort != tt.wantPort {
			t.Errorf("ParseTunnelSpec(%q) = %s@%s:%d, want %s@%s:%d", tt.spec,
				cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort,
				tt.wantUser, tt.wantHost, tt.wantPort)
		}
	}
}

func TestParseTunnelSpec_Empty(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ParseTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if cfg.TunnelEnabled {
		t.Error("empty spec enabled the tunnel")
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{Host: "server.example", Service: "15000"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.TLS != TLSAuto {
		t.Errorf("TLS = %q, want auto", cfg.TLS)
	}
	if cfg.DialTimeout != DefaultDialTimeout {
		t.Errorf("DialTimeout = %v, want %v", cfg.DialTimeout, DefaultDialTimeout)
	}
	if cfg.MaxPayload != DefaultMaxPayload {
		t.Errorf("MaxPayload = %d, want %d", cfg.MaxPayload, DefaultMaxPayload)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing host", Config{Service: "80"}},
		{"missing service", Config{Host: "h"}},
		{"bad tls mode", Config{Host: "h", Service: "80", TLS: "sometimes"}},
		{"bad local port", Config{Host: "h", Service: "80", LocalPort: -1}},
		{"bad tunnel spec", Config{Host: "h", Service: "80", TunnelSpec: "nouser"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WIRELINK_HOST", "env.example")
	t.Setenv("WIRELINK_SERVICE", "16000")
	t.Setenv("WIRELINK_TLS", "Required")
	t.Setenv("WIRELINK_GZIP", "yes")
	t.Setenv("WIRELINK_TIMEOUT", "5")
	t.Setenv("WIRELINK_RETRY", "3")
	t.Setenv("WIRELINK_TUNNEL", "alice@gw")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if cfg.Host != "env.example" || cfg.Service != "16000" {
		t.Errorf("target = %s:%s", cfg.Host, cfg.Service)
	}
	if cfg.TLS != TLSRequired {
		t.Errorf("TLS = %q, want required", cfg.TLS)
	}
	if !cfg.Gzip {
		t.Error("Gzip not set")
	}
	if cfg.DialTimeout != 5*time.Second {
		t.Errorf("DialTimeout = %v", cfg.DialTimeout)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d", cfg.RetryAttempts)
	}
	if cfg.TunnelSpec != "alice@gw" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
}

func TestLoadFromEnv_IgnoresInvalid(t *testing.T) {
	t.Setenv("WIRELINK_TIMEOUT", "soon")
	t.Setenv("WIRELINK_VERBOSE", "")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if cfg.DialTimeout != 0 {
		t.Errorf("non-numeric timeout applied: %v", cfg.DialTimeout)
	}
	if cfg.Verbose != 0 {
		t.Errorf("empty verbose applied: %d", cfg.Verbose)
	}
}

func TestConfigError_Format(t *testing.T) {
	err := &Error{Field: "tls", Value: "sometimes",
		Message: "unknown TLS mode", Hint: "use auto, required, or disabled"}
	got := err.Error()
	want := "config: --tls=sometimes: unknown TLS mode\n  hint: use auto, required, or disabled"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
