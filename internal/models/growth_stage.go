package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GrowthStage is the cultivation phase recorded with a log entry.
type GrowthStage string

const (
	StageMycelium  GrowthStage = "Mycelium"
	StagePinhead   GrowthStage = "Pinhead"
	StageFruiting  GrowthStage = "Fruiting"
	StageMature    GrowthStage = "Mature"
	StageHarvested GrowthStage = "Harvested"
)

// GrowthStages lists every stage in cultivation order.
var GrowthStages = []GrowthStage{
	StageMycelium,
	StagePinhead,
	StageFruiting,
	StageMature,
	StageHarvested,
}

// ParseGrowthStage matches a stage name case-insensitively.
func ParseGrowthStage(s string) (GrowthStage, error) {
	for _, stage := range GrowthStages {
		if strings.EqualFold(strings.TrimSpace(s), string(stage)) {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown growth stage %q", s)
}

// Valid reports whether s is exactly one of GrowthStages.
func (s GrowthStage) Valid() bool {
	for _, stage := range GrowthStages {
		if s == stage {
			return true
		}
	}
	return false
}

func (s GrowthStage) String() string {
	return string(s)
}

func (s *GrowthStage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("growth stage must be a string: %w", err)
	}
	stage, err := ParseGrowthStage(raw)
	if err != nil {
		return err
	}
	*s = stage
	return nil
}
