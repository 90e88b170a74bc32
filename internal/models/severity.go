package models

import (
	"math"
	"strings"
)

// SeverityKind tags what Severity.Value means for a given event type.
type SeverityKind string

const (
	SeverityRichter       SeverityKind = "richter"
	SeverityThreatLevel   SeverityKind = "threat_level"
	SeverityAlertLevel    SeverityKind = "alert_level"
	SeverityIntensity     SeverityKind = "intensity"
	SeverityFloodSeverity SeverityKind = "flood_severity"
)

// Alert tiers shared by tsunami threat levels, volcano alert levels and the
// flood base level.
const (
	TierAdvisory uint8 = 1
	TierWatch    uint8 = 2
	TierWarning  uint8 = 3
)

const (
	MaxIntensity     = 10.0
	MaxFloodBoost    = 0.8
	MaxFloodSeverity = float64(TierWarning) + MaxFloodBoost
)

// Severity is a tagged union over the per-type magnitude semantics. It is
// persisted as a (kind, value) pair.
type Severity struct {
	Kind  SeverityKind
	Value float64
}

func Richter(mag float64) Severity {
	return Severity{Kind: SeverityRichter, Value: mag}
}

func ThreatLevel(level uint8) Severity {
	return Severity{Kind: SeverityThreatLevel, Value: float64(clampTier(level))}
}

func AlertLevel(level uint8) Severity {
	return Severity{Kind: SeverityAlertLevel, Value: float64(clampTier(level))}
}

// Intensity is clamped to [0, 10] and rounded to one decimal.
func Intensity(v float64) Severity {
	return Severity{Kind: SeverityIntensity, Value: Round1(math.Min(math.Max(v, 0), MaxIntensity))}
}

// FloodSeverity combines a base tier with urgency/certainty boosts. The boost
// never lifts the value to the next tier and the result stays in [1, 3.8].
func FloodSeverity(tier uint8, boost float64) Severity {
	base := float64(clampTier(tier))
	boost = math.Min(math.Max(boost, 0), MaxFloodBoost)
	v := math.Min(base+boost, MaxFloodSeverity)
	return Severity{Kind: SeverityFloodSeverity, Value: Round1(v)}
}

// Tier returns the integer alert tier for tiered kinds.
func (s Severity) Tier() uint8 {
	switch s.Kind {
	case SeverityThreatLevel, SeverityAlertLevel, SeverityFloodSeverity:
		return clampTier(uint8(math.Floor(s.Value)))
	}
	return 0
}

// Label is the display name of a tiered severity.
func (s Severity) Label() string {
	switch s.Tier() {
	case TierWarning:
		return "Warning"
	case TierWatch:
		return "Watch"
	case TierAdvisory:
		return "Advisory"
	}
	return ""
}

// SeverityKind reports which kind of severity the type carries.
func (t EventType) SeverityKind() SeverityKind {
	switch t {
	case EventTypeEarthquake:
		return SeverityRichter
	case EventTypeTsunami:
		return SeverityThreatLevel
	case EventTypeVolcano:
		return SeverityAlertLevel
	case EventTypeWildfire:
		return SeverityIntensity
	case EventTypeFlood:
		return SeverityFloodSeverity
	}
	return ""
}

// TierFromText maps alert text to a tier by keyword. Warning outranks Watch,
// which outranks Advisory; anything else is an Advisory.
func TierFromText(s string) uint8 {
	switch {
	case strings.Contains(s, "Warning"):
		return TierWarning
	case strings.Contains(s, "Watch"):
		return TierWatch
	case strings.Contains(s, "Advisory"):
		return TierAdvisory
	}
	return TierAdvisory
}

// TierFromExplosivity maps a volcanic explosivity index to an alert tier.
func TierFromExplosivity(vei float64) uint8 {
	switch {
	case vei >= 4:
		return TierWarning
	case vei >= 2:
		return TierWatch
	}
	return TierAdvisory
}

func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampTier(level uint8) uint8 {
	if level < TierAdvisory {
		return TierAdvisory
	}
	if level > TierWarning {
		return TierWarning
	}
	return level
}
