package telemetry

import (
	"encoding/json"
	"fmt"
)

// Sensor group keys as they appear in the platform's timeseries response.
const (
	groupBattery = "bat"
	groupGPS     = "gnss"
	groupDevice  = "dev"
	groupEnv     = "env"
	groupAI      = "ai"
)

// MappingError reports a reading that could not be mapped: the sensor group
// was absent, its payload failed to decode, or a required sub-field was
// missing. Field is empty when the whole group is missing or undecodable.
type MappingError struct {
	Group string
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("telemetry: group %q: %v", e.Group, e.Err)
	case e.Field != "":
		return fmt.Sprintf("telemetry: group %q: missing field %q", e.Group, e.Field)
	default:
		return fmt.Sprintf("telemetry: missing group %q", e.Group)
	}
}

func (e *MappingError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Group payload shapes
// ---------------------------------------------------------------------------

// Pointer fields distinguish "absent" from a genuine zero value; every
// required field is checked explicitly after decoding.

type batteryPayload struct {
	V  *float64 `json:"v"`
	TS *int64   `json:"ts"`
}

type gpsPayload struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
	Spd *float64 `json:"spd"`
}

type devicePayload struct {
	IMEI  *int64  `json:"imei"`
	ICCID *int64  `json:"iccid"`
	ModV  *string `json:"modV"`
	BrdV  *string `json:"brdV"`
	AppV  *string `json:"appV"`
	TS    *int64  `json:"ts"`
}

type envPayload struct {
	Temp *int   `json:"temp"`
	Hum  *int   `json:"hum"`
	Atmp *int   `json:"atmp"`
	TS   *int64 `json:"ts"`
}

type aiPayload struct {
	N  *int `json:"n"`
	E1 *int `json:"e1"`
	E2 *int `json:"e2"`
	E3 *int `json:"e3"`
}

// ---------------------------------------------------------------------------
// Map
// ---------------------------------------------------------------------------

// Map converts a raw reading into a typed Record. It is pure: no I/O, no
// shared state. The first (most recent) entry of each required sensor group
// is used. Any absent group, undecodable payload, or missing sub-field makes
// the whole mapping fail with a *MappingError — no partial record is ever
// produced.
//
// Timestamps: battery, device-info and environment carry their timestamp
// inside the value payload; GPS and AI use the sample-level ts.
func Map(raw RawReading) (Record, error) {
	var rec Record

	var bat batteryPayload
	if _, err := decodeGroup(raw, groupBattery, &bat); err != nil {
		return Record{}, err
	}
	if bat.V == nil {
		return Record{}, &MappingError{Group: groupBattery, Field: "v"}
	}
	if bat.TS == nil {
		return Record{}, &MappingError{Group: groupBattery, Field: "ts"}
	}
	rec.BatteryPercentage = *bat.V
	rec.BatteryTimestamp = *bat.TS

	var gps gpsPayload
	gpsTS, err := decodeGroup(raw, groupGPS, &gps)
	if err != nil {
		return Record{}, err
	}
	if gps.Lat == nil {
		return Record{}, &MappingError{Group: groupGPS, Field: "lat"}
	}
	if gps.Lng == nil {
		return Record{}, &MappingError{Group: groupGPS, Field: "lng"}
	}
	if gps.Spd == nil {
		return Record{}, &MappingError{Group: groupGPS, Field: "spd"}
	}
	rec.GPSLatitude = *gps.Lat
	rec.GPSLongitude = *gps.Lng
	rec.GPSSpeed = *gps.Spd
	rec.GPSTimestamp = gpsTS

	var dev devicePayload
	if _, err := decodeGroup(raw, groupDevice, &dev); err != nil {
		return Record{}, err
	}
	if err := requireFields(groupDevice, []fieldCheck{
		{"imei", dev.IMEI == nil},
		{"iccid", dev.ICCID == nil},
		{"modV", dev.ModV == nil},
		{"brdV", dev.BrdV == nil},
		{"appV", dev.AppV == nil},
		{"ts", dev.TS == nil},
	}); err != nil {
		return Record{}, err
	}
	rec.CellularIMEI = *dev.IMEI
	rec.CellularICCID = *dev.ICCID
	rec.FirmwareVersion = *dev.ModV
	rec.BoardVersion = *dev.BrdV
	rec.ApplicationVersion = *dev.AppV
	rec.DevelopmentTimestamp = *dev.TS

	var env envPayload
	if _, err := decodeGroup(raw, groupEnv, &env); err != nil {
		return Record{}, err
	}
	if err := requireFields(groupEnv, []fieldCheck{
		{"temp", env.Temp == nil},
		{"hum", env.Hum == nil},
		{"atmp", env.Atmp == nil},
		{"ts", env.TS == nil},
	}); err != nil {
		return Record{}, err
	}
	rec.EnvironmentTemperature = *env.Temp
	rec.EnvironmentHumidity = *env.Hum
	rec.EnvironmentPressure = *env.Atmp
	rec.EnvironmentTimestamp = *env.TS

	var ai aiPayload
	aiTS, err := decodeGroup(raw, groupAI, &ai)
	if err != nil {
		return Record{}, err
	}
	if err := requireFields(groupAI, []fieldCheck{
		{"n", ai.N == nil},
		{"e1", ai.E1 == nil},
		{"e2", ai.E2 == nil},
		{"e3", ai.E3 == nil},
	}); err != nil {
		return Record{}, err
	}
	rec.AINormalPercentage = *ai.N
	rec.AIError1Percentage = *ai.E1
	rec.AIError2Percentage = *ai.E2
	rec.AIError3Percentage = *ai.E3
	rec.AITimestamp = aiTS

	return rec, nil
}

// fieldCheck pairs a payload field name with whether it was absent.
type fieldCheck struct {
	name    string
	missing bool
}

// requireFields returns a *MappingError for the first absent field, in
// declaration order so failures are deterministic.
func requireFields(group string, checks []fieldCheck) error {
	for _, c := range checks {
		if c.missing {
			return &MappingError{Group: group, Field: c.name}
		}
	}
	return nil
}

// decodeGroup finds the group's most recent sample and decodes its value
// payload into dst. Returns the sample-level timestamp.
func decodeGroup(raw RawReading, group string, dst any) (int64, error) {
	samples, ok := raw[group]
	if !ok || len(samples) == 0 {
		return 0, &MappingError{Group: group}
	}

	s := samples[0]
	payload := []byte(s.Value)
	if len(payload) == 0 {
		return 0, &MappingError{Group: group, Err: fmt.Errorf("empty value payload")}
	}

	// ThingsBoard wraps the payload object in a JSON string.
	if payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			return 0, &MappingError{Group: group, Err: fmt.Errorf("unquote value: %w", err)}
		}
		payload = []byte(inner)
	}

	if err := json.Unmarshal(payload, dst); err != nil {
		return 0, &MappingError{Group: group, Err: fmt.Errorf("decode value: %w", err)}
	}
	return s.TS, nil
}
