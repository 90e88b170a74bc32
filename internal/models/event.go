package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type EventType string

const (
	EventTypeEarthquake EventType = "earthquake"
	EventTypeTsunami    EventType = "tsunami"
	EventTypeVolcano    EventType = "volcano"
	EventTypeWildfire   EventType = "wildfire"
	EventTypeFlood      EventType = "flood"
)

// EventTypes lists every supported type in display order.
var EventTypes = []EventType{
	EventTypeEarthquake,
	EventTypeTsunami,
	EventTypeVolcano,
	EventTypeWildfire,
	EventTypeFlood,
}

func (t EventType) Valid() bool {
	switch t {
	case EventTypeEarthquake, EventTypeTsunami, EventTypeVolcano, EventTypeWildfire, EventTypeFlood:
		return true
	}
	return false
}

func (t EventType) String() string {
	return string(t)
}

// ParseEventType is case-insensitive. The second return is false for
// anything outside the closed set.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

type Event struct {
	ID               int64     // surrogate key assigned by the store
	ExternalID       string    // unique within Type, e.g. "tsunami_{alertId}_{onset}"
	Type             EventType
	Title            string
	Description      string
	Location         string
	Severity         Severity
	Depth            *float64 // km, earthquakes only
	Latitude         float64
	Longitude        float64
	Time             time.Time // when the event occurred
	URL              string
	AffectedRadiusKm *float64
	CreatedAt        time.Time // when we first stored it
}

// TimeMillis returns Time as epoch milliseconds, the unit used on the wire.
func (e *Event) TimeMillis() int64 {
	return e.Time.UnixMilli()
}

// Validate checks the fields every stored event must carry.
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown event type %q", e.Type)}
	}
	if strings.TrimSpace(e.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if err := ValidateCoordinates(e.Latitude, e.Longitude); err != nil {
		return err
	}
	if e.Time.IsZero() {
		return &ValidationError{Field: "time", Message: "time is required"}
	}
	if e.Severity.Kind != "" && e.Severity.Kind != e.Type.SeverityKind() {
		return &ValidationError{Field: "magnitude", Message: fmt.Sprintf("severity kind %s does not apply to %s", e.Severity.Kind, e.Type)}
	}
	return nil
}

func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return &ValidationError{Field: "latitude", Message: fmt.Sprintf("latitude %v out of range [-90, 90]", lat)}
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return &ValidationError{Field: "longitude", Message: fmt.Sprintf("longitude %v out of range [-180, 180]", lon)}
	}
	return nil
}

// ValidCoordinates is the boolean form used by the adapters, which drop
// bad records instead of reporting them.
func ValidCoordinates(lat, lon float64) bool {
	return ValidateCoordinates(lat, lon) == nil
}

// EventPatch carries the admin-editable fields. Nil means unchanged.
// Type, Time and ExternalID are immutable once stored.
type EventPatch struct {
	Title     *string
	Magnitude *float64
	Depth     *float64
	Latitude  *float64
	Longitude *float64
	Location  *string
}

func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Magnitude == nil && p.Depth == nil &&
		p.Latitude == nil && p.Longitude == nil && p.Location == nil
}

// Apply validates the patch against e and writes it in place. e is left
// untouched when an error is returned.
func (p EventPatch) Apply(e *Event) error {
	next := *e
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Magnitude != nil {
		next.Severity = Severity{Kind: e.Type.SeverityKind(), Value: *p.Magnitude}
	}
	if p.Depth != nil {
		d := *p.Depth
		next.Depth = &d
	}
	if p.Latitude != nil {
		next.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		next.Longitude = *p.Longitude
	}
	if p.Location != nil {
		next.Location = *p.Location
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*e = next
	return nil
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
