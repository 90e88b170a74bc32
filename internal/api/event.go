package api

import (
	"time"

	"github.com/mr1hm/pulsemap/internal/models"
)

// EventResponse is the wire shape of an event. Time is epoch milliseconds.
type EventResponse struct {
	ID               int64     `json:"id"`
	ExternalID       string    `json:"externalId"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	Magnitude        float64   `json:"magnitude"`
	SeverityKind     string    `json:"severityKind"`
	SeverityLabel    string    `json:"severityLabel,omitempty"`
	Depth            *float64  `json:"depth"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Time             int64     `json:"time"`
	URL              string    `json:"url"`
	AffectedRadiusKm *float64  `json:"affectedRadiusKm"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:               e.ID,
		ExternalID:       e.ExternalID,
		Type:             e.Type.String(),
		Title:            e.Title,
		Description:      e.Description,
		Location:         e.Location,
		Magnitude:        e.Severity.Value,
		SeverityKind:     string(e.Severity.Kind),
		SeverityLabel:    e.Severity.Label(),
		Depth:            e.Depth,
		Latitude:         e.Latitude,
		Longitude:        e.Longitude,
		Time:             e.TimeMillis(),
		URL:              e.URL,
		AffectedRadiusKm: e.AffectedRadiusKm,
		CreatedAt:        e.CreatedAt,
	}
}

func toEventResponses(events []models.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i]))
	}
	return out
}
