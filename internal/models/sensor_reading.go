package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind selects where sensor readings come from.
type SourceKind string

const (
	SourceManual SourceKind = "manual"
	SourceFile   SourceKind = "file"
	SourceRemote SourceKind = "remote"
)

// Default locations offered for the file and remote sources.
const (
	DefaultSensorPath = "sensor_data.json"
	DefaultSensorURL  = "https://your-device-url/data.json"
)

// ParseSourceKind accepts the kind names plus the labels shown in the UI.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual", "manual entry", "":
		return SourceManual, nil
	case "file", "local file":
		return SourceFile, nil
	case "remote", "remote url":
		return SourceRemote, nil
	}
	return "", fmt.Errorf("unknown sensor source %q", s)
}

// Label is the human-readable name of the source.
func (k SourceKind) Label() string {
	switch k {
	case SourceFile:
		return "Local File"
	case SourceRemote:
		return "Remote URL"
	default:
		return "Manual Entry"
	}
}

// SensorSource is the session's selected sensor data source.
type SensorSource struct {
	Kind SourceKind `json:"kind"`
	Path string     `json:"path"`
	URL  string     `json:"url"`
}

func DefaultSensorSource() SensorSource {
	return SensorSource{
		Kind: SourceManual,
		Path: DefaultSensorPath,
		URL:  DefaultSensorURL,
	}
}

// SensorReading holds temperature and humidity from a sensor source. Either
// value may be unset when the source did not provide it.
type SensorReading struct {
	Temperature *float64   `json:"temperature"`
	Humidity    *float64   `json:"humidity"`
	Source      SourceKind `json:"source"`
	ReadAt      time.Time  `json:"read_at"`
}

// Available reports whether both values are set.
func (r SensorReading) Available() bool {
	return r.Temperature != nil && r.Humidity != nil
}
