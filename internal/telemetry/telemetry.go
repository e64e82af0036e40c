// Package telemetry defines the loose reading shape delivered by the IoT
// platform and the typed record the rest of the system works with, plus the
// mapping between the two.
package telemetry

import "encoding/json"

// Sample is a single timeseries entry for one sensor group. Value holds the
// group's payload; ThingsBoard serialises it as a JSON-encoded string, but a
// plain JSON object is accepted too.
type Sample struct {
	TS    int64           `json:"ts"`
	Value json.RawMessage `json:"value"`
}

// RawReading is the latest-timeseries response for one device, keyed by
// sensor group name (bat, gnss, dev, env, ai). Entries are ordered newest
// first; completeness varies per device.
type RawReading map[string][]Sample

// Record is the flat, fully-typed form of one device reading. Every field is
// populated or the mapping fails — a missing sensor value is never silently
// zeroed, since a zero battery percentage is a meaningful reading.
type Record struct {
	// Battery
	BatteryPercentage float64
	BatteryTimestamp  int64
	// GPS
	GPSLatitude  float64
	GPSLongitude float64
	GPSSpeed     float64
	GPSTimestamp int64
	// Cellular / firmware
	CellularIMEI         int64
	CellularICCID        int64
	FirmwareVersion      string
	BoardVersion         string
	ApplicationVersion   string
	DevelopmentTimestamp int64
	// Environment
	EnvironmentTemperature int
	EnvironmentHumidity    int
	EnvironmentPressure    int
	EnvironmentTimestamp   int64
	// AI classification
	AINormalPercentage int
	AIError1Percentage int
	AIError2Percentage int
	AIError3Percentage int
	AITimestamp        int64
}
