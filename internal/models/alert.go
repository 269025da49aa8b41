package models

// Default alert thresholds for new sessions.
const (
	DefaultMaxTemperature = 30.0
	DefaultMinHumidity    = 80.0
)

// AlertSettings holds the per-session thresholds evaluated on form intake.
type AlertSettings struct {
	MaxTemperature float64 `json:"max_temperature"`
	MinHumidity    float64 `json:"min_humidity"`
}

func DefaultAlertSettings() AlertSettings {
	return AlertSettings{
		MaxTemperature: DefaultMaxTemperature,
		MinHumidity:    DefaultMinHumidity,
	}
}

type AlertKind string

const (
	AlertHighTemperature AlertKind = "high_temperature"
	AlertLowHumidity     AlertKind = "low_humidity"
)

type AlertLevel string

const (
	AlertLevelError   AlertLevel = "error"
	AlertLevelWarning AlertLevel = "warning"
)

// Alert is a cosmetic warning attached to a newly added entry.
type Alert struct {
	Kind    AlertKind  `json:"kind"`
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}
