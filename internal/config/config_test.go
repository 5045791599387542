package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker_config.txt")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const baseConfig = `# tracker
LOCATION_SOURCE=mock
INFLUX_URL=https://influx.example.com
INFLUX_ORG=acme
INFLUX_BUCKET=gps
INFLUX_TOKEN=file-token
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LocationInterval != 60000 || cfg.LocationMinInterval != 5000 {
		t.Fatalf("want intervals 60000/5000, have %d/%d", cfg.LocationInterval, cfg.LocationMinInterval)
	}
	if cfg.MapZoom != 15 {
		t.Fatalf("want zoom 15, have %g", cfg.MapZoom)
	}
	if cfg.DeviceTag != "android" {
		t.Fatalf("want device tag android, have %q", cfg.DeviceTag)
	}
	if cfg.LocationPermission != "prompt" {
		t.Fatalf("want permission prompt, have %q", cfg.LocationPermission)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("want no kafka brokers, have %v", cfg.KafkaBrokers)
	}
}

func TestLoadEnvironmentOverridesToken(t *testing.T) {
	t.Setenv("INFLUX_TOKEN", "env-token")

	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InfluxToken != "env-token" {
		t.Fatalf("want env-token, have %q", cfg.InfluxToken)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := map[string]struct {
		extra string
		want  string
	}{
		"unknown key":       {"COLOR=blue\n", "unknown config key"},
		"bad interval":      {"LOCATION_INTERVAL_MS=soon\n", "invalid LOCATION_INTERVAL_MS"},
		"min over interval": {"LOCATION_MIN_INTERVAL_MS=90000\n", "exceeds"},
		"bad source":        {"LOCATION_SOURCE=carrier-pigeon\n", "LOCATION_SOURCE"},
		"bad permission":    {"LOCATION_PERMISSION=maybe\n", "LOCATION_PERMISSION"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, baseConfig+tc.extra))
			if err == nil {
				t.Fatalf("want error containing %q, have nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, have %v", tc.want, err)
			}
		})
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("INFLUX_TOKEN", "")
	body := strings.Replace(baseConfig, "INFLUX_TOKEN=file-token\n", "", 1)
	_, err := Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "INFLUX_TOKEN") {
		t.Fatalf("want INFLUX_TOKEN error, have %v", err)
	}
}

func TestLoadSplitsKafkaBrokers(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig+"KAFKA_BROKERS=a:9092, b:9092 ,\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "a:9092" || cfg.KafkaBrokers[1] != "b:9092" {
		t.Fatalf("want [a:9092 b:9092], have %v", cfg.KafkaBrokers)
	}
}
