package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jackedney/bio-explorer/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Puma concolor", "Puma-concolor"},
		{"  Vulpes vulpes  ", "Vulpes-vulpes"},
		{"a/b\\c:d*e?f\"g<h>i|j", "a_b_c_d_e_f_g_h_i_j"},
		{"../..", "_"},
		{"", "unnamed"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteJSON_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	result := model.NewOccurrenceResult([]model.CoordinatePoint{{Lat: 1.5, Lng: 2.5}}, 3)
	if err := writeJSON(path, result); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"total": 3`) {
		t.Errorf("unexpected output %s", data)
	}
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}
	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Sampling.Cap != model.DefaultCap || cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("unexpected round-tripped config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestLayeredConfig(t *testing.T) {
	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader("sampling:\n  cap: 500\nhttp:\n  timeout: 45s\n")); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BIO_EXPLORER_SAMPLING_CAP", "750")
	t.Setenv("BIO_EXPLORER_RETRY_MAX_ATTEMPTS", "5")
	v.SetEnvPrefix("BIO_EXPLORER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if cfg.Sampling.Cap != 750 {
		t.Errorf("env should override file: cap = %d", cfg.Sampling.Cap)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("env should apply to keys absent from the file: max_attempts = %d", cfg.Retry.MaxAttempts)
	}
	if cfg.HTTP.Timeout != 45*time.Second {
		t.Errorf("file should override defaults: timeout = %v", cfg.HTTP.Timeout)
	}
	if cfg.Upstream.PageSize != model.MaxPageSize {
		t.Errorf("defaults should fill the rest: page_size = %d", cfg.Upstream.PageSize)
	}
}
