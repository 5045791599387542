package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDGPS     string
	MQTTClientIDConsole string
	MQTTClientIDTracker string

	// Topics
	TopicGPS string

	// GPS receiver
	GPSSerialPort string
	GPSBaudRate   int

	// Location subscription
	LocationSource      string // "serial", "mqtt" or "mock"
	LocationPriority    string // "high_accuracy" or "balanced"
	LocationInterval    int    // milliseconds, desired update interval
	LocationMinInterval int    // milliseconds, fastest accepted update interval
	LocationPermission  string // "granted" or "prompt"
	MockCenterLat       float64
	MockCenterLon       float64

	// Map
	MapZoom       float64
	MapTileSource string

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Telemetry
	InfluxURL       string
	InfluxOrg       string
	InfluxBucket    string
	InfluxPrecision string
	InfluxToken     string
	DeviceTag       string
	KafkaBrokers    []string
	KafkaTopic      string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through Get().
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

var defaults = map[string]string{
	"MQTT_BROKER":              "tcp://localhost:1883",
	"MQTT_CLIENT_ID_GPS":       "gps-tracker-producer",
	"MQTT_CLIENT_ID_CONSOLE":   "gps-tracker-console",
	"MQTT_CLIENT_ID_TRACKER":   "gps-tracker",
	"TOPIC_GPS":                "tracker/gps",
	"GPS_SERIAL_PORT":          "/dev/serial0",
	"GPS_BAUD_RATE":            "9600",
	"LOCATION_SOURCE":          "serial",
	"LOCATION_PRIORITY":        "high_accuracy",
	"LOCATION_INTERVAL_MS":     "60000",
	"LOCATION_MIN_INTERVAL_MS": "5000",
	"LOCATION_PERMISSION":      "prompt",
	"MOCK_CENTER_LAT":          "52.5",
	"MOCK_CENTER_LON":          "13.4",
	"MAP_ZOOM":                 "15",
	"MAP_TILE_SOURCE":          "MAPNIK",
	"WEB_SERVER_PORT":          "8080",
	"WEB_STATIC_DIR":           "web",
	"INFLUX_URL":               "",
	"INFLUX_ORG":               "",
	"INFLUX_BUCKET":            "",
	"INFLUX_PRECISION":         "s",
	"INFLUX_TOKEN":             "",
	"DEVICE_TAG":               "android",
	"KAFKA_BROKERS":            "",
	"KAFKA_TOPIC":              "gps-fixes",
}

// Load reads the KEY=VALUE configuration file and returns a Config struct.
// Environment variables with the same key override the file, which is how
// INFLUX_TOKEN is expected to be supplied.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// viper stores keys lowercased
	for _, key := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(key)]; !ok {
			return nil, fmt.Errorf("unknown config key: %q", strings.ToUpper(key))
		}
	}

	cfg := &Config{
		MQTTBroker:          v.GetString("MQTT_BROKER"),
		MQTTClientIDGPS:     v.GetString("MQTT_CLIENT_ID_GPS"),
		MQTTClientIDConsole: v.GetString("MQTT_CLIENT_ID_CONSOLE"),
		MQTTClientIDTracker: v.GetString("MQTT_CLIENT_ID_TRACKER"),
		TopicGPS:            v.GetString("TOPIC_GPS"),
		GPSSerialPort:       v.GetString("GPS_SERIAL_PORT"),
		LocationSource:      strings.ToLower(v.GetString("LOCATION_SOURCE")),
		LocationPriority:    strings.ToLower(v.GetString("LOCATION_PRIORITY")),
		LocationPermission:  strings.ToLower(v.GetString("LOCATION_PERMISSION")),
		MapTileSource:       v.GetString("MAP_TILE_SOURCE"),
		WebStaticDir:        v.GetString("WEB_STATIC_DIR"),
		InfluxURL:           v.GetString("INFLUX_URL"),
		InfluxOrg:           v.GetString("INFLUX_ORG"),
		InfluxBucket:        v.GetString("INFLUX_BUCKET"),
		InfluxPrecision:     v.GetString("INFLUX_PRECISION"),
		InfluxToken:         v.GetString("INFLUX_TOKEN"),
		DeviceTag:           v.GetString("DEVICE_TAG"),
		KafkaBrokers:        splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:          v.GetString("KAFKA_TOPIC"),
	}

	var err error
	if cfg.GPSBaudRate, err = intValue(v, "GPS_BAUD_RATE"); err != nil {
		return nil, err
	}
	if cfg.LocationInterval, err = intValue(v, "LOCATION_INTERVAL_MS"); err != nil {
		return nil, err
	}
	if cfg.LocationMinInterval, err = intValue(v, "LOCATION_MIN_INTERVAL_MS"); err != nil {
		return nil, err
	}
	if cfg.WebServerPort, err = intValue(v, "WEB_SERVER_PORT"); err != nil {
		return nil, err
	}
	if cfg.MockCenterLat, err = floatValue(v, "MOCK_CENTER_LAT"); err != nil {
		return nil, err
	}
	if cfg.MockCenterLon, err = floatValue(v, "MOCK_CENTER_LON"); err != nil {
		return nil, err
	}
	if cfg.MapZoom, err = floatValue(v, "MAP_ZOOM"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	value := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func floatValue(v *viper.Viper, key string) (float64, error) {
	value := strings.TrimSpace(v.GetString(key))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	switch c.LocationSource {
	case "serial":
		if c.GPSSerialPort == "" {
			return fmt.Errorf("GPS_SERIAL_PORT is required")
		}
		if c.GPSBaudRate <= 0 {
			return fmt.Errorf("GPS_BAUD_RATE must be positive, got %d", c.GPSBaudRate)
		}
	case "mqtt":
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT_BROKER is required")
		}
		if c.TopicGPS == "" {
			return fmt.Errorf("TOPIC_GPS is required")
		}
	case "mock":
	default:
		return fmt.Errorf("LOCATION_SOURCE must be serial, mqtt or mock, got %q", c.LocationSource)
	}

	switch c.LocationPermission {
	case "granted", "prompt":
	default:
		return fmt.Errorf("LOCATION_PERMISSION must be granted or prompt, got %q", c.LocationPermission)
	}

	if c.LocationInterval <= 0 || c.LocationMinInterval <= 0 {
		return fmt.Errorf("LOCATION_INTERVAL_MS and LOCATION_MIN_INTERVAL_MS must be positive")
	}
	if c.LocationMinInterval > c.LocationInterval {
		return fmt.Errorf("LOCATION_MIN_INTERVAL_MS (%d) exceeds LOCATION_INTERVAL_MS (%d)",
			c.LocationMinInterval, c.LocationInterval)
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}

	if c.InfluxURL == "" {
		return fmt.Errorf("INFLUX_URL is required")
	}
	if c.InfluxOrg == "" {
		return fmt.Errorf("INFLUX_ORG is required")
	}
	if c.InfluxBucket == "" {
		return fmt.Errorf("INFLUX_BUCKET is required")
	}
	if c.InfluxToken == "" {
		return fmt.Errorf("INFLUX_TOKEN is required (set it in the environment)")
	}
	if c.DeviceTag == "" {
		return fmt.Errorf("DEVICE_TAG is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
