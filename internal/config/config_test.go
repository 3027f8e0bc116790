package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != defaultHTTPPort {
		t.Errorf("HTTPPort = %d, want %d", cfg.HTTPPort, defaultHTTPPort)
	}
	if cfg.BrokerURL != defaultBrokerURL {
		t.Errorf("BrokerURL = %q, want %q", cfg.BrokerURL, defaultBrokerURL)
	}
	if cfg.DBBackend != "sqlite" {
		t.Errorf("DBBackend = %q, want sqlite", cfg.DBBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEATHERSTATION_HTTP_PORT", "9000")
	t.Setenv("WEATHERSTATION_MQTT_BROKER_URL", "tcp://broker:1883")
	t.Setenv("WEATHERSTATION_MQTT_TOPIC", "station/1/packets")
	t.Setenv("WEATHERSTATION_DB_BACKEND", "postgres")
	t.Setenv("WEATHERSTATION_INGEST_QUEUE", "64")
	t.Setenv("WEATHERSTATION_MDNS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 9000 {
		t.Errorf("HTTPPort = %d, want 9000", cfg.HTTPPort)
	}
	if cfg.BrokerURL != "tcp://broker:1883" {
		t.Errorf("BrokerURL = %q", cfg.BrokerURL)
	}
	if cfg.Topic != "station/1/packets" {
		t.Errorf("Topic = %q", cfg.Topic)
	}
	if cfg.DBBackend != "postgres" {
		t.Errorf("DBBackend = %q", cfg.DBBackend)
	}
	if cfg.IngestQueue != 64 {
		t.Errorf("IngestQueue = %d", cfg.IngestQueue)
	}
	if !cfg.MDNSEnabled {
		t.Error("MDNSEnabled = false, want true")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"WEATHERSTATION_HTTP_PORT":    "not-a-port",
		"WEATHERSTATION_DB_BACKEND":   "oracle",
		"WEATHERSTATION_INGEST_QUEUE": "0",
		"WEATHERSTATION_MDNS":         "maybe",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%q", key, value)
			}
		})
	}
}
