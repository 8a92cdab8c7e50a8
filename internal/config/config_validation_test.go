package config

import "testing"

func validConfig() *Config {
	return &Config{
		Audio:  AudioConfig{Backend: "auto", FallbackSampleRate: 44100},
		Output: OutputConfig{Directory: "/tmp", Prefix: "recording"},
		Server: ServerConfig{Port: "8080", EventQueue: 64},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty backend", func(c *Config) { c.Audio.Backend = "" }, ""},
		{"uppercase backend", func(c *Config) { c.Audio.Backend = "MALGO" }, ""},
		{"unknown backend", func(c *Config) { c.Audio.Backend = "pipewire" }, "audio.backend"},
		{"rate too low", func(c *Config) { c.Audio.FallbackSampleRate = 4000 }, "audio.fallback_sample_rate"},
		{"rate too high", func(c *Config) { c.Audio.FallbackSampleRate = 768000 }, "audio.fallback_sample_rate"},
		{"empty prefix", func(c *Config) { c.Output.Prefix = "" }, "output.prefix"},
		{"prefix with slash", func(c *Config) { c.Output.Prefix = "../evil" }, "output.prefix"},
		{"prefix with dash", func(c *Config) { c.Output.Prefix = "voice-memo_2" }, ""},
		{"non numeric port", func(c *Config) { c.Server.Port = "80a" }, "server.port must be numeric"},
		{"port zero", func(c *Config) { c.Server.Port = "0" }, "server.port must be between"},
		{"port too high", func(c *Config) { c.Server.Port = "70000" }, "server.port must be between"},
		{"empty queue", func(c *Config) { c.Server.EventQueue = 0 }, "server.event_queue"},
		{"negative rotation", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging rotation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing '%s', got nil", tt.wantErr)
			}
			if !containsSubstring(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing '%s', got: %v", tt.wantErr, err)
			}
		})
	}
}
