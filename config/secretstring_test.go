package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestSecretString_Marshal(t *testing.T) {
	tests := []struct {
		name     string
		input    SecretString
		wantJSON string
		wantYAML any
	}{
		{name: "empty string", input: "", wantJSON: "null", wantYAML: nil},
		{name: "short string", input: "x", wantJSON: `"` + SecretStringValue + `"`, wantYAML: SecretStringValue},
		{name: "token", input: "my-secret-api-key", wantJSON: `"` + SecretStringValue + `"`, wantYAML: SecretStringValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tt.wantJSON {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.wantJSON)
			}

			y, err := tt.input.MarshalYAML()
			if err != nil {
				t.Fatalf("MarshalYAML() error = %v", err)
			}
			if y != tt.wantYAML {
				t.Errorf("MarshalYAML() = %v, want %v", y, tt.wantYAML)
			}
		})
	}
}

func TestSecretString_InStructs(t *testing.T) {
	cfg := ImagesConfig{UserAgent: "ua", AuthToken: "hunter2"}

	j, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	y, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	for name, out := range map[string]string{
		"json":   string(j),
		"yaml":   string(y),
		"printf": fmt.Sprintf("%v %s", cfg, cfg.AuthToken),
	} {
		if strings.Contains(out, "hunter2") {
			t.Errorf("%s output reveals secret: %s", name, out)
		}
	}
	if cfg.AuthToken.Reveal() != "hunter2" {
		t.Errorf("Reveal() = %q", cfg.AuthToken.Reveal())
	}
}

func TestSecretString_Unmarshal(t *testing.T) {
	var cfg ImagesConfig
	if err := yaml.Unmarshal([]byte("auth_token: abc\n"), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if cfg.AuthToken.Reveal() != "abc" {
		t.Errorf("AuthToken = %q, want abc", cfg.AuthToken.Reveal())
	}
}
