package model

import "time"

// SensorData is the four-channel environmental measurement decoded from a
// transmission. The sensor produces all four values together; a packet
// either carries the full vector or none of it.
type SensorData struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	PressureHPa  float64 `json:"pressure_hpa"`
	GasKOhms     float64 `json:"gas_kohms"`
}

// Packet is one received telemetry transmission, keyed by its capture
// timestamp. A later transmission with the same timestamp replaces the
// stored row.
type Packet struct {
	Timestamp time.Time   `json:"timestamp"`
	RSSIdBm   float64     `json:"rssi_dbm"`
	SNRdB     float64     `json:"snr_db"`
	Error     bool        `json:"error"`
	ErrorType string      `json:"error_type,omitempty"`
	RawHex    string      `json:"raw_hex"`
	Sensor    *SensorData `json:"sensor_data,omitempty"`
}
